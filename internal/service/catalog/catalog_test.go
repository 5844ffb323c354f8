package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

type fakeLister struct {
	ids       []string
	formats   []domain.FormatDescriptor
	err       error
	lastLink  string
	lastLimit int
}

func (f *fakeLister) EnumeratePlaylist(ctx context.Context, link string, limit int) ([]string, error) {
	f.lastLink = link
	f.lastLimit = limit
	return f.ids, f.err
}

func (f *fakeLister) ProbeFormats(ctx context.Context, ref domain.VideoRef) ([]domain.FormatDescriptor, error) {
	return f.formats, f.err
}

func TestPlaylist(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		limit     int
		wantLink  string
		wantLimit int
	}{
		{
			name:      "bare id expanded",
			ref:       "PL123",
			limit:     5,
			wantLink:  "https://youtube.com/playlist?list=PL123",
			wantLimit: 5,
		},
		{
			name:      "url passes through",
			ref:       "https://www.youtube.com/playlist?list=PL9",
			limit:     0,
			wantLink:  "https://www.youtube.com/playlist?list=PL9",
			wantLimit: DefaultPlaylistLimit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{ids: []string{"a", "b"}}
			ids, err := New(lister).Playlist(context.Background(), tt.ref, tt.limit)
			if err != nil {
				t.Fatalf("Playlist() error = %v", err)
			}
			if len(ids) != 2 || lister.lastLink != tt.wantLink || lister.lastLimit != tt.wantLimit {
				t.Fatalf("ids=%v link=%q limit=%d", ids, lister.lastLink, lister.lastLimit)
			}
		})
	}
}

func TestPlaylist_TruncatesToLimit(t *testing.T) {
	lister := &fakeLister{ids: []string{"a", "b", "c"}}
	ids, err := New(lister).Playlist(context.Background(), "PL1", 2)
	if err != nil || len(ids) != 2 {
		t.Fatalf("Playlist() = %v, %v", ids, err)
	}
}

func TestFormats(t *testing.T) {
	lister := &fakeLister{formats: []domain.FormatDescriptor{{FormatID: "18"}}}
	formats, err := New(lister).Formats(context.Background(), domain.ParseRef("abc"))
	if err != nil || len(formats) != 1 {
		t.Fatalf("Formats() = %v, %v", formats, err)
	}

	toolErr := errors.New("tool failed")
	if _, err := New(&fakeLister{err: toolErr}).Formats(context.Background(), domain.ParseRef("abc")); !errors.Is(err, toolErr) {
		t.Fatalf("expected wrapped tool error, got %v", err)
	}
}
