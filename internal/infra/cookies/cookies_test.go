package cookies

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.TXT", "notes.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("# Netscape HTTP Cookie File"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0755); err != nil {
		t.Fatal(err)
	}

	provider := FromDir(dir)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		path, err := provider()
		if err != nil {
			t.Fatalf("provider() error = %v", err)
		}
		seen[filepath.Base(path)] = true
	}
	for name := range seen {
		if name != "a.txt" && name != "b.TXT" {
			t.Fatalf("unexpected cookie file %q", name)
		}
	}
}

func TestFromDir_Empty(t *testing.T) {
	if _, err := FromDir(t.TempDir())(); !errors.Is(err, ErrNoCookies) {
		t.Fatalf("expected ErrNoCookies, got %v", err)
	}
	if _, err := FromDir(filepath.Join(t.TempDir(), "missing"))(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestStatic(t *testing.T) {
	if p, err := Static("cookies.txt")(); err != nil || p != "cookies.txt" {
		t.Fatalf("Static() = %q, %v", p, err)
	}
}
