package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func mustPath(t *testing.T, c *ArtifactCache, id, ext string) string {
	t.Helper()
	p, err := c.Path(id, ext)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLookup_Order(t *testing.T) {
	dir := t.TempDir()
	c := NewArtifactCache(dir, nil)

	touch(t, filepath.Join(dir, "abc.webm"), "w")
	touch(t, filepath.Join(dir, "abc.m4a"), "m")

	got, ok := c.Lookup("abc")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Extension != "m4a" || got.Path != filepath.Join(dir, "abc.m4a") {
		t.Fatalf("Lookup() = %+v, want m4a first", got)
	}

	touch(t, filepath.Join(dir, "abc.mp3"), "3")
	if got, _ := c.Lookup("abc"); got.Extension != "mp3" {
		t.Fatalf("mp3 should win, got %s", got.Extension)
	}
}

func TestLookup_Miss(t *testing.T) {
	dir := t.TempDir()
	c := NewArtifactCache(dir, nil)

	touch(t, filepath.Join(dir, "abc.mp4"), "v")
	if err := os.Mkdir(filepath.Join(dir, "xyz.mp3"), 0755); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"abc", "xyz", "nope", ""} {
		if _, ok := c.Lookup(id); ok {
			t.Fatalf("Lookup(%q) should miss", id)
		}
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	c := NewArtifactCache(filepath.Join(dir, "downloads"), nil)

	if n, size := c.Stats(); n != 0 || size != 0 {
		t.Fatalf("missing dir Stats() = %d, %d", n, size)
	}
	if err := c.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	touch(t, mustPath(t, c, "a", "mp3"), "12345")
	touch(t, mustPath(t, c, "b", "mp4"), "123")
	touch(t, mustPath(t, c, "c", "mp3")+PartialSuffix, "1")

	n, size := c.Stats()
	if n != 2 || size != 8 {
		t.Fatalf("Stats() = %d, %d; want 2, 8", n, size)
	}
}

func TestPath_RejectsEscapingIDs(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "downloads")
	c := NewArtifactCache(dir, nil)
	if err := c.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(root, "escaped.mp3"), "outside")

	for _, id := range []string{"", "../escaped", "..", "a/b", `a\b`, "x..y"} {
		if _, err := c.Path(id, "mp3"); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Path(%q) error = %v, want ErrInvalidID", id, err)
		}
		if _, ok := c.Lookup(id); ok {
			t.Errorf("Lookup(%q) should miss", id)
		}
	}

	p, err := c.Path("dQw4w9WgXcQ", "mp3")
	if err != nil || filepath.Dir(p) != dir {
		t.Fatalf("Path() = %q, %v", p, err)
	}
}
