package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out  []byte
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name, f.args = name, args
	return f.out, f.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPDF, KindOf("Bescheid.PDF"))
	assert.Equal(t, KindMarkdown, KindOf("notes.md"))
	assert.Equal(t, KindImage, KindOf("scan.jpeg"))
	assert.Equal(t, KindUnknown, KindOf("archive.zip"))
}

func TestExtractText(t *testing.T) {
	path := writeFile(t, "merkblatt.txt", "  Regelbedarf   563 Euro  \r\n\r\n\r\n\tMehrbedarf\t möglich ")
	got, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Regelbedarf 563 Euro\n\nMehrbedarf möglich", got)
}

func TestExtractImageUsesOCR(t *testing.T) {
	path := writeFile(t, "scan.png", "not really a png")
	runner := &fakeRunner{out: []byte("Sehr geehrte  Damen und Herren\n")}

	got, err := New(WithRunner(runner), WithTesseract("/usr/bin/tesseract", "")).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Sehr geehrte Damen und Herren", got)
	assert.Equal(t, "/usr/bin/tesseract", runner.name)
	assert.Equal(t, []string{path, "stdout", "-l", "deu+eng", "--oem", "3", "--psm", "6"}, runner.args)
}

func TestExtractOCRFailure(t *testing.T) {
	path := writeFile(t, "scan.jpg", "x")
	_, err := New(WithRunner(&fakeRunner{err: errors.New("exit status 1")})).Extract(context.Background(), path)
	assert.ErrorContains(t, err, "scan.jpg")
}

func TestExtractInvalidPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", "this is not a pdf")
	_, err := New().Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := New().Extract(context.Background(), "x.docx")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
