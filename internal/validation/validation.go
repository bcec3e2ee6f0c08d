// Package validation checks user input before it reaches the router and
// carries the stable error codes returned to API clients.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeEmptyMessage      Code = "empty_message"
	CodeMessageTooLong    Code = "message_too_long"
	CodeSuspiciousContent Code = "suspicious_content"
	CodeFileTooLarge      Code = "file_too_large"
	CodeInvalidFileType   Code = "invalid_file_type"
	CodeNotFound          Code = "not_found"
	CodeServerError       Code = "server_error"
	CodeAPIError          Code = "api_error"
)

// Error is a user-facing validation failure. Message is safe to show.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New returns an *Error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

const (
	DefaultMaxMessageLength       = 1000
	DefaultMaxFileSize      int64 = 16 << 20
)

// DefaultAllowedExtensions are the upload types accepted by default.
var DefaultAllowedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".txt", ".md"}

var suspiciousPatterns = []string{
	"<script",
	"javascript:",
	"data:",
	"vbscript:",
	"onload=",
	"onerror=",
}

// Validator holds the configured limits.
type Validator struct {
	maxMessageLength int
	maxFileSize      int64
	extensions       []string
}

// NewValidator creates a Validator. Non-positive limits and an empty
// extension list use the defaults.
func NewValidator(maxMessageLength int, maxFileSize int64, extensions []string) *Validator {
	if maxMessageLength <= 0 {
		maxMessageLength = DefaultMaxMessageLength
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if len(extensions) == 0 {
		extensions = DefaultAllowedExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &Validator{maxMessageLength: maxMessageLength, maxFileSize: maxFileSize, extensions: normalized}
}

// Message checks a chat message: it must be non-blank, at most the
// configured number of characters after trimming, and free of script
// injection markers.
func (v *Validator) Message(msg string) error {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		return New(CodeEmptyMessage, "Message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > v.maxMessageLength {
		return New(CodeMessageTooLong, "Message must be no more than %d characters long", v.maxMessageLength)
	}
	lower := strings.ToLower(msg)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lower, p) {
			return New(CodeSuspiciousContent, "Message contains potentially harmful content")
		}
	}
	return nil
}

// Upload checks the name and size of an uploaded file.
func (v *Validator) Upload(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return New(CodeValidation, "File name is required")
	}
	if size > v.maxFileSize {
		return v.FileTooLarge()
	}
	if !v.AllowedFile(name) {
		return New(CodeInvalidFileType, "File type not allowed. Allowed types: %s", strings.Join(v.extensions, ", "))
	}
	return nil
}

// MaxFileSize returns the upload size limit in bytes.
func (v *Validator) MaxFileSize() int64 { return v.maxFileSize }

// FileTooLarge is the error for uploads over the size limit.
func (v *Validator) FileTooLarge() *Error {
	return New(CodeFileTooLarge, "File too large. Maximum size is %.1fMB", float64(v.maxFileSize)/(1<<20))
}

// AllowedFile reports whether name has an accepted extension.
func (v *Validator) AllowedFile(name string) bool {
	return slices.Contains(v.extensions, strings.ToLower(filepath.Ext(name)))
}

var (
	unsafeChars = regexp.MustCompile(`[<>"']`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Sanitize strips angle brackets and quotes and collapses whitespace.
func Sanitize(text string) string {
	text = unsafeChars.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilename reduces name to a base name made of ASCII letters, digits,
// dots, dashes and underscores.
func SafeFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "._")
	if base == "" || base == strings.Trim(ext, ".") {
		return "uploaded_file" + ext
	}
	return base
}
