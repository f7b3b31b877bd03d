package storage

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempContent(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempContent(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("page.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("page.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestOpen(t *testing.T) {
	s := tempContent(t)
	_ = s.Write("a/b/c.mdx", []byte("deep"))
	rc, err := s.Open("a/b/c.mdx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempContent(t)
	for _, p := range []string{
		"index.mdx",
		"guide.md",
		"sub/b.md",
		"sub/_partial.md",
		"_drafts/wip.md",
		"_draft.md",
		"404.md",
		"sub/404.mdx",
		"readme.txt",
	} {
		if err := s.Write(p, []byte("x")); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"guide.md", "index.mdx", "sub/b.md"}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("List = %v, want %v", items, want)
	}
}

func TestIsContent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"guide.md", true},
		{"a/b/page.mdx", true},
		{"a/_hidden.md", false},
		{"_drafts/page.md", false},
		{"a/_b/page.mdx", false},
		{"404.md", false},
		{"404-not.md", true},
		{"notes.txt", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		if got := IsContent(tt.path); got != tt.want {
			t.Errorf("IsContent(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAbsRel(t *testing.T) {
	s := tempContent(t)
	abs, err := s.Abs("en/guide.md")
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if abs != filepath.Join(s.Root(), "en", "guide.md") {
		t.Errorf("Abs = %q", abs)
	}
	rel, err := s.Rel(abs)
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if rel != "en/guide.md" {
		t.Errorf("Rel = %q, want en/guide.md", rel)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
	if _, err := s.Rel("relative/path.md"); err == nil {
		t.Error("expected error for relative input")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempContent(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempContent(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, "_starlinks-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "starlinks-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestProvider_ReadOnly(t *testing.T) {
	p := reflect.TypeOf((*Provider)(nil)).Elem()
	for _, name := range []string{"Write", "Delete", "Rename"} {
		if _, ok := p.MethodByName(name); ok {
			t.Errorf("Provider exposes %s", name)
		}
	}
}
