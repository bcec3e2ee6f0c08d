package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/amtly/amtly/internal/extract"
)

// writeTree creates files under a temp dir and returns its path.
func writeTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for rel, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWalk_DefaultIncludes(t *testing.T) {
	dir := writeTree(t, map[string][]byte{
		"merkblatt.txt":          []byte("Regelbedarf"),
		"guides/HA_guide.md":     []byte("# Hauptantrag"),
		"guides/Bescheid.PDF":    []byte("%PDF-1.4"),
		"scripts/ingest.py":      []byte("print(1)"),
		"images/scan.png":        []byte("png"),
		"node_modules/x/info.md": []byte("skip"),
	})

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	want := []string{"guides/Bescheid.PDF", "guides/HA_guide.md", "merkblatt.txt"}
	if got := relPaths(files); !equal(got, want) {
		t.Errorf("Walk() = %v, want %v", got, want)
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	dir := writeTree(t, map[string][]byte{
		"a.pdf": []byte("%PDF-1.4"),
		"b.md":  []byte("# B"),
	})

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	kinds := map[string]extract.Kind{"a.pdf": extract.KindPDF, "b.md": extract.KindMarkdown}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("Path %q is not absolute", f.Path)
		}
		if f.Size == 0 {
			t.Errorf("%s: Size is 0", f.RelPath)
		}
		if len(f.ContentHash) != 64 {
			t.Errorf("%s: ContentHash has length %d, want 64", f.RelPath, len(f.ContentHash))
		}
		if f.Kind != kinds[f.RelPath] {
			t.Errorf("%s: Kind = %q, want %q", f.RelPath, f.Kind, kinds[f.RelPath])
		}
	}
}

func TestWalk_IncludeFilter(t *testing.T) {
	dir := writeTree(t, map[string][]byte{
		"official/kdu.txt": []byte("Miete"),
		"drafts/kdu.txt":   []byte("Entwurf"),
		"official/ha.pdf":  []byte("%PDF"),
	})

	files, err := Walk(WalkerConfig{RootDir: dir, Include: []string{"official/**/*.txt"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"official/kdu.txt"}) {
		t.Errorf("Walk() = %v", got)
	}
}

func TestWalk_ExcludeFilter(t *testing.T) {
	dir := writeTree(t, map[string][]byte{
		"keep.md":         []byte("keep"),
		"archive/old.md":  []byte("old"),
		"archive/old.pdf": []byte("%PDF"),
	})

	files, err := Walk(WalkerConfig{RootDir: dir, Exclude: []string{"archive/**"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"keep.md"}) {
		t.Errorf("Walk() = %v", got)
	}
}

func TestWalk_SkipsBinaryText(t *testing.T) {
	binary := make([]byte, 100)
	dir := writeTree(t, map[string][]byte{
		"readme.md":   []byte("# Hello"),
		"corrupt.txt": binary,
	})

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"readme.md"}) {
		t.Errorf("Walk() = %v", got)
	}
}

func TestWalk_SkipsLargeFiles(t *testing.T) {
	big := make([]byte, 200)
	for i := range big {
		big[i] = 'A'
	}
	dir := writeTree(t, map[string][]byte{
		"small.txt": []byte("small"),
		"big.txt":   big,
	})

	files, err := Walk(WalkerConfig{RootDir: dir, MaxFileSize: 100})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"small.txt"}) {
		t.Errorf("Walk() = %v", got)
	}
}

func TestWalk_Gitignore(t *testing.T) {
	dir := writeTree(t, map[string][]byte{
		".gitignore":        []byte("# private\nsecret.txt\nprivate/\n"),
		"public.txt":        []byte("ok"),
		"secret.txt":        []byte("password"),
		"private/notes.md":  []byte("notes"),
		"sub/secret.txt":    []byte("password"),
	})

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := relPaths(files); !equal(got, []string{"public.txt"}) {
		t.Errorf("Walk() = %v", got)
	}
}

func TestWalk_ContentHashConsistency(t *testing.T) {
	dir := writeTree(t, map[string][]byte{"a.txt": []byte("same"), "b.txt": []byte("same")})

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].ContentHash != files[1].ContentHash {
		t.Errorf("identical content hashed differently: %s vs %s", files[0].ContentHash, files[1].ContentHash)
	}
}

func TestWalk_MissingRoot(t *testing.T) {
	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestMatchesInclude(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"docs/a.pdf", nil, true},
		{"docs/a.pdf", []string{"**/*.pdf"}, true},
		{"a.PDF", []string{"**/*.pdf"}, true},
		{"docs/a.txt", []string{"**/*.pdf"}, false},
		{"deep/er/a.md", []string{"*.md"}, true},
	}
	for _, tt := range tests {
		if got := MatchesInclude(tt.path, tt.patterns); got != tt.want {
			t.Errorf("MatchesInclude(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}
