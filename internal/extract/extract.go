// Package extract turns uploaded or ingested files into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for file types without an extractor.
var ErrUnsupported = errors.New("extract: unsupported file type")

// Kind classifies a file by how its text is obtained.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindPDF      Kind = "pdf"
	KindImage    Kind = "image"
	KindUnknown  Kind = ""
)

var kindsByExt = map[string]Kind{
	".txt":  KindText,
	".md":   KindMarkdown,
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
}

// KindOf returns the Kind for a file name.
func KindOf(name string) Kind {
	return kindsByExt[strings.ToLower(filepath.Ext(name))]
}

// Runner executes an external program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Extractor reads text from files. PDFs are parsed in-process; images go
// through the tesseract OCR binary.
type Extractor struct {
	runner    Runner
	tesseract string
	languages string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the process runner used for OCR.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithTesseract sets the OCR binary path and language list (e.g. "deu+eng").
func WithTesseract(path, languages string) Option {
	return func(e *Extractor) {
		if path != "" {
			e.tesseract = path
		}
		if languages != "" {
			e.languages = languages
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{runner: ExecRunner{}, tesseract: "tesseract", languages: "deu+eng"}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the cleaned text of the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	var (
		text string
		err  error
	)
	switch KindOf(path) {
	case KindText, KindMarkdown:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	case KindPDF:
		text, err = readPDF(path)
	case KindImage:
		text, err = e.ocr(ctx, path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	if err != nil {
		return "", fmt.Errorf("extract: %s: %w", filepath.Base(path), err)
	}
	return Clean(text), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Extractor) ocr(ctx context.Context, path string) (string, error) {
	out, err := e.runner.Run(ctx, e.tesseract, path, "stdout", "-l", e.languages, "--oem", "3", "--psm", "6")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankRuns   = regexp.MustCompile(`\n\s*\n+`)
)

// Clean trims each line, collapses inline whitespace and keeps at most one
// blank line between paragraphs.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(l, " "))
	}
	text = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
