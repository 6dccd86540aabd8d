package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("---\ntitle: Hello\n---\nWorld\n")
	if err := s.Write("hello.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("posts/page/2/index.html", []byte("<p>2</p>")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("posts/page/2/index.html")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "<p>2</p>" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteIsWorldReadable(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("index.html", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestList_PostExtensionsOnly(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("posts/b.mdx", []byte("b"))
	_ = s.Write("posts/a.md", []byte("a"))
	_ = s.Write("posts/readme.txt", []byte("not a post"))
	_ = s.Write("about.md", []byte("outside posts"))

	items, err := s.List("posts")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "posts/a.md" || items[1].Path != "posts/b.mdx" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Checksum == "" {
		t.Error("expected checksum")
	}
}

func TestList_MissingDir(t *testing.T) {
	s := tempRoot(t)
	items, err := s.List("nope")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
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

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.html", []byte("original"))
	if err := s.Write("atomic.html", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.html")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".folio-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestIsPostFile(t *testing.T) {
	cases := map[string]bool{
		"a.md":      true,
		"a.mdx":     true,
		"a.txt":     false,
		".md":       false,
		"notes.md~": false,
	}
	for name, want := range cases {
		if got := IsPostFile(name); got != want {
			t.Errorf("IsPostFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/folio-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "folio-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestSub(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("locales/en/common.yaml", []byte("a: b\n"))

	sub, err := s.Sub("locales")
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	data, err := fs.ReadFile(sub, "en/common.yaml")
	if err != nil || string(data) != "a: b\n" {
		t.Errorf("read through sub = %q, %v", data, err)
	}
	if _, err := s.Sub("../x"); err == nil {
		t.Error("expected error for escaping sub dir")
	}
}
