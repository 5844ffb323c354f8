package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweeper_SweepNow(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	write := func(name string, mtime time.Time) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return path
	}

	stale := write("a.mp3"+PartialSuffix, old)
	fresh := write("b.mp3"+PartialSuffix, time.Now())
	done := write("c.mp3", old)

	s := NewSweeper(dir, time.Hour, time.Minute)
	if got := s.SweepNow(); got != 1 {
		t.Fatalf("SweepNow() = %d, want 1", got)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale partial file should be removed")
	}
	for _, p := range []string{fresh, done} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be kept: %v", filepath.Base(p), err)
		}
	}
}

func TestSweeper_MissingDir(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Minute)
	if got := s.SweepNow(); got != 0 {
		t.Fatalf("SweepNow() = %d, want 0", got)
	}
}
