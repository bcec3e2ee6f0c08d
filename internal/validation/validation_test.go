package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeOf(t *testing.T, err error) Code {
	t.Helper()
	ve, ok := As(err)
	require.True(t, ok, "expected *Error, got %v", err)
	return ve.Code
}

func TestMessage(t *testing.T) {
	v := NewValidator(0, 0, nil)

	assert.NoError(t, v.Message("Wie fülle ich Feld 17 aus?"))
	assert.NoError(t, v.Message(strings.Repeat("ä", 1000)))

	assert.Equal(t, CodeEmptyMessage, codeOf(t, v.Message("  \n ")))
	assert.Equal(t, CodeMessageTooLong, codeOf(t, v.Message(strings.Repeat("a", 1001))))

	for _, msg := range []string{
		"<SCRIPT>alert(1)</script>",
		"click javascript:void(0)",
		"<img src=x onerror=alert(1)>",
		"data:text/html;base64,xyz",
	} {
		assert.Equal(t, CodeSuspiciousContent, codeOf(t, v.Message(msg)), msg)
	}
}

func TestMessageCustomLimit(t *testing.T) {
	v := NewValidator(10, 0, nil)
	assert.NoError(t, v.Message("  0123456789  "))
	assert.Error(t, v.Message("0123456789x"))
}

func TestUpload(t *testing.T) {
	v := NewValidator(0, 0, nil)

	assert.NoError(t, v.Upload("Bescheid.PDF", 1024))
	assert.Equal(t, CodeValidation, codeOf(t, v.Upload("", 10)))
	assert.Equal(t, CodeFileTooLarge, codeOf(t, v.Upload("scan.jpg", DefaultMaxFileSize+1)))
	assert.Equal(t, CodeInvalidFileType, codeOf(t, v.Upload("macro.docm", 10)))
}

func TestUploadCustomExtensions(t *testing.T) {
	v := NewValidator(0, 100, []string{"PDF", " .txt"})
	assert.True(t, v.AllowedFile("a.pdf"))
	assert.True(t, v.AllowedFile("b.TXT"))
	assert.False(t, v.AllowedFile("c.png"))
	assert.Equal(t, CodeFileTooLarge, codeOf(t, v.Upload("a.pdf", 101)))
}

func TestErrorWrapping(t *testing.T) {
	err := fmt.Errorf("chat: send: %w", New(CodeNotFound, "Chat not found"))
	ve, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "Chat not found", ve.Message)
	assert.Equal(t, "not_found: Chat not found", ve.Error())

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hallo Welt", Sanitize("  <Hallo>\n\t\"Welt'  "))
	assert.Equal(t, "", Sanitize(""))
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "Bescheid_2024.pdf", SafeFilename("../../Bescheid 2024.pdf"))
	assert.Equal(t, "scan.jpg", SafeFilename(`C:\Users\me\scan.jpg`))
	assert.Equal(t, "uploaded_file.pdf", SafeFilename("äöü.pdf"))
}
