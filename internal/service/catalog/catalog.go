// Package catalog lists playlist entries and available formats.
package catalog

import (
	"context"
	"fmt"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// DefaultPlaylistLimit is used when a caller passes a non-positive limit.
const DefaultPlaylistLimit = 10

// Lister is the extraction tool as seen by the catalog.
type Lister interface {
	EnumeratePlaylist(ctx context.Context, link string, limit int) ([]string, error)
	ProbeFormats(ctx context.Context, ref domain.VideoRef) ([]domain.FormatDescriptor, error)
}

// Catalog passes listing requests straight to the extractor. Results are
// not cached and there is no fallback tier.
type Catalog struct {
	lister Lister
}

// New creates a Catalog.
func New(lister Lister) *Catalog {
	return &Catalog{lister: lister}
}

// Playlist returns up to limit video ids of the playlist ref, in order.
// A bare playlist id is expanded to a playlist URL.
func (c *Catalog) Playlist(ctx context.Context, ref string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultPlaylistLimit
	}
	ids, err := c.lister.EnumeratePlaylist(ctx, domain.PlaylistURL(ref), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playlist: %w", err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Formats lists the non-DASH formats of ref.
func (c *Catalog) Formats(ctx context.Context, ref domain.VideoRef) ([]domain.FormatDescriptor, error) {
	formats, err := c.lister.ProbeFormats(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list formats: %w", err)
	}
	return formats, nil
}
