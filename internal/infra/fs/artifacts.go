// Package fs provides the on-disk artifact cache.
package fs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// ErrInvalidID is returned for ids that cannot name a file inside the
// download directory.
var ErrInvalidID = errors.New("invalid artifact id")

// DefaultExtensions is the lookup order used by ArtifactCache.
var DefaultExtensions = []string{domain.ExtMP3, domain.ExtM4A, domain.ExtWebM}

// ArtifactCache answers "is <id> already downloaded?" by file presence.
// No checksums, no expiry.
type ArtifactCache struct {
	dir        string
	extensions []string
}

// NewArtifactCache creates an ArtifactCache rooted at dir. A nil extensions
// slice uses DefaultExtensions.
func NewArtifactCache(dir string, extensions []string) *ArtifactCache {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &ArtifactCache{dir: dir, extensions: extensions}
}

// Dir returns the download directory.
func (c *ArtifactCache) Dir() string {
	return c.dir
}

// EnsureDir creates the download directory if needed.
func (c *ArtifactCache) EnsureDir() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	return nil
}

// ValidID reports whether id is a single path element that stays inside the
// download directory.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// Path returns the canonical location of <id>.<ext>.
func (c *ArtifactCache) Path(id, ext string) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(c.dir, id+"."+ext), nil
}

// Lookup returns the first existing artifact for id, trying each extension
// in order.
func (c *ArtifactCache) Lookup(id string) (*domain.CachedArtifact, bool) {
	if !ValidID(id) {
		return nil, false
	}
	for _, ext := range c.extensions {
		path := filepath.Join(c.dir, id+"."+ext)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return &domain.CachedArtifact{ID: id, Path: path, Extension: ext}, true
	}
	return nil, false
}

// Stats walks the download directory and reports file count and total size.
// Partial downloads are not counted.
func (c *ArtifactCache) Stats() (count int, size int64) {
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) == PartialSuffix {
			return nil
		}
		count++
		size += info.Size()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("Artifact scan error",
			"dir", c.dir,
			"error", err,
		)
	}
	return count, size
}

// PartialSuffix marks a download still being written.
const PartialSuffix = ".part"
