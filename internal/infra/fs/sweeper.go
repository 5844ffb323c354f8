package fs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweeper removes partial downloads left behind by crashed or cancelled
// transfers. Completed artifacts are never touched.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
}

// NewSweeper creates a Sweeper for dir. Partial files older than maxAge are
// removed every interval.
func NewSweeper(dir string, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{dir: dir, maxAge: maxAge, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	slog.Info("Starting partial file sweeper",
		"dir", s.dir,
		"max_age", s.maxAge,
		"interval", s.interval,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepNow()

	for {
		select {
		case <-ticker.C:
			s.SweepNow()
		case <-ctx.Done():
			return
		}
	}
}

// SweepNow removes stale partial files and returns how many were deleted.
func (s *Sweeper) SweepNow() int {
	threshold := time.Now().Add(-s.maxAge)
	deleted := 0

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, PartialSuffix) {
			return nil
		}
		if info.ModTime().After(threshold) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to delete partial file",
				"path", path,
				"error", err,
			)
			return nil
		}
		deleted++
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		slog.Error("Partial sweep error",
			"dir", s.dir,
			"error", err,
		)
	}

	if deleted > 0 {
		slog.Info("Partial sweep completed",
			"deleted", deleted,
			"max_age", s.maxAge,
		)
	}
	return deleted
}
