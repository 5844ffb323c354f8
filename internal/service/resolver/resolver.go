// Package resolver resolves video metadata with a remote-first, search-second strategy.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// SliderSize is the number of search rows fetched for Slider.
const SliderSize = 10

// ErrNoMatch is returned when the search fallback has no usable row.
var ErrNoMatch = errors.New("no search result for reference")

// Remote is the subset of the remote service used here.
type Remote interface {
	LookupMetadata(ctx context.Context, id string) (*domain.Metadata, error)
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// SearchIndex is the fallback search collaborator.
type SearchIndex interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Resolver turns a reference into Metadata.
type Resolver struct {
	remote Remote
	index  SearchIndex
}

// New creates a Resolver.
func New(remote Remote, index SearchIndex) *Resolver {
	return &Resolver{remote: remote, index: index}
}

// Resolve tries the remote lookup, then falls back to exactly one search.
// Only a failing search surfaces as an error.
func (r *Resolver) Resolve(ctx context.Context, ref domain.VideoRef) (*domain.Metadata, error) {
	meta, err := r.remote.LookupMetadata(ctx, ref.ID)
	if err == nil {
		return meta, nil
	}
	slog.Debug("Remote metadata lookup failed, falling back to search",
		"id", ref.ID,
		"error", err,
	)
	return r.searchRow(ctx, ref.Raw, 0, 1)
}

// Title returns only the resolved title.
func (r *Resolver) Title(ctx context.Context, ref domain.VideoRef) (string, error) {
	meta, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return meta.Title, nil
}

// Duration returns only the resolved duration display string.
func (r *Resolver) Duration(ctx context.Context, ref domain.VideoRef) (string, error) {
	meta, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return meta.DurationDisplay, nil
}

// Thumbnail returns only the resolved thumbnail URL.
func (r *Resolver) Thumbnail(ctx context.Context, ref domain.VideoRef) (string, error) {
	meta, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return meta.ThumbnailURL, nil
}

// Track resolves ref into the record used when queueing playback.
func (r *Resolver) Track(ctx context.Context, ref domain.VideoRef) (*domain.Track, error) {
	meta, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &domain.Track{
		Title:           meta.Title,
		Link:            domain.WatchBase + meta.ID.ID,
		ID:              meta.ID.ID,
		DurationDisplay: meta.DurationDisplay,
		Thumbnail:       meta.ThumbnailURL,
	}, nil
}

// Slider returns the index-th of the first SliderSize search rows for query,
// asking the remote service first and the search index second.
func (r *Resolver) Slider(ctx context.Context, query string, index int) (*domain.Metadata, error) {
	if index < 0 || index >= SliderSize {
		return nil, fmt.Errorf("slider index %d out of range", index)
	}

	rows, err := r.remote.Search(ctx, query, SliderSize)
	if err == nil && len(rows) > index {
		return rows[index].Metadata(), nil
	}
	slog.Debug("Remote search unusable, falling back to search index",
		"query", query,
		"rows", len(rows),
		"error", err,
	)
	return r.searchRow(ctx, query, index, SliderSize)
}

func (r *Resolver) searchRow(ctx context.Context, query string, index, limit int) (*domain.Metadata, error) {
	rows, err := r.index.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search fallback failed: %w", err)
	}
	if len(rows) <= index {
		return nil, ErrNoMatch
	}
	return rows[index].Metadata(), nil
}
