package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// WatchBase is prepended to bare ids to build a watch URL.
	WatchBase = "https://www.youtube.com/watch?v="
	// PlaylistBase is prepended to bare playlist ids.
	PlaylistBase = "https://youtube.com/playlist?list="
)

var supportedHost = regexp.MustCompile(`(?:youtube\.com|youtu\.be)`)

// VideoRef is a canonical video id plus the raw reference it came from.
type VideoRef struct {
	ID  string `json:"id"`
	Raw string `json:"raw"`
}

// ParseRef builds a VideoRef from a user supplied URL or bare id.
func ParseRef(raw string) VideoRef {
	raw = strings.TrimSpace(raw)
	return VideoRef{ID: ExtractVideoID(raw), Raw: raw}
}

// RefFromID builds a VideoRef from a bare id; Raw becomes the watch URL.
func RefFromID(id string) VideoRef {
	id = strings.TrimSpace(id)
	return VideoRef{ID: id, Raw: WatchBase + id}
}

// URL returns the reference handed to the extraction tool.
func (r VideoRef) URL() string {
	if r.Raw != "" && r.Raw != r.ID {
		return r.Raw
	}
	return WatchBase + r.ID
}

func (r VideoRef) String() string {
	return r.ID
}

// ExtractVideoID returns the text after the last "v=" marker, cut at the
// next "&". Input without the marker is returned unchanged, so the function
// is idempotent on bare ids.
func ExtractVideoID(raw string) string {
	id := raw
	if i := strings.LastIndex(id, "v="); i >= 0 {
		id = id[i+len("v="):]
	}
	if i := strings.Index(id, "&"); i >= 0 {
		id = id[:i]
	}
	return id
}

// IsSupportedReference reports whether raw points at a supported host, or
// looks like a bare id when isID is set.
func IsSupportedReference(raw string, isID bool) bool {
	if isID {
		raw = WatchBase + raw
	}
	return supportedHost.MatchString(raw)
}

// PlaylistURL expands a bare playlist id; URLs pass through.
func PlaylistURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") || supportedHost.MatchString(raw) {
		return raw
	}
	return PlaylistBase + raw
}

// StripQuery drops everything from the first '?'.
func StripQuery(u string) string {
	if i := strings.Index(u, "?"); i >= 0 {
		return u[:i]
	}
	return u
}

// Metadata is the resolved description of a video.
type Metadata struct {
	Title           string   `json:"title"`
	DurationDisplay string   `json:"duration"`
	DurationSeconds int      `json:"duration_seconds"`
	ThumbnailURL    string   `json:"thumbnail"`
	ID              VideoRef `json:"id"`
}

// NewMetadata normalises raw field values into Metadata.
func NewMetadata(title, duration, thumbnail string, ref VideoRef) *Metadata {
	if duration == "" {
		duration = "0:00"
	}
	return &Metadata{
		Title:           title,
		DurationDisplay: duration,
		DurationSeconds: DurationToSeconds(duration),
		ThumbnailURL:    StripQuery(thumbnail),
		ID:              ref,
	}
}

// Track is the metadata view used when queueing a video.
type Track struct {
	Title           string `json:"title"`
	Link            string `json:"link"`
	ID              string `json:"vidid"`
	DurationDisplay string `json:"duration_min"`
	Thumbnail       string `json:"thumb"`
}

// SearchResult is one row returned by a search index.
type SearchResult struct {
	ID        string `json:"video_id"`
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Thumbnail string `json:"thumbnail"`
	Link      string `json:"link,omitempty"`
}

// Metadata converts a search row into Metadata.
func (r SearchResult) Metadata() *Metadata {
	return NewMetadata(r.Title, r.Duration, r.Thumbnail, RefFromID(r.ID))
}

// Supported artifact extensions, in cache lookup order.
const (
	ExtMP3  = "mp3"
	ExtM4A  = "m4a"
	ExtWebM = "webm"
	ExtMP4  = "mp4"
)

// CachedArtifact is a media file already present in the download directory.
type CachedArtifact struct {
	ID        string
	Path      string
	Extension string
}

// Mode selects the acquisition policy for a DownloadRequest.
type Mode string

const (
	ModeAudio     Mode = "audio"
	ModeVideo     Mode = "video"
	ModeSongAudio Mode = "song_audio"
	ModeSongVideo Mode = "song_video"
)

// ParseMode maps a user supplied mode name. Empty selects ModeAudio.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAudio, nil
	case ModeAudio, ModeVideo, ModeSongAudio, ModeSongVideo:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// WantsVideo reports whether the local tool should use the video policy.
func (m Mode) WantsVideo() bool {
	return m == ModeVideo || m == ModeSongVideo
}

// Video quality ceiling applied to local extraction.
const (
	MaxVideoHeight = 720
	MaxVideoWidth  = 1280
)

// DownloadRequest asks for one reference in one mode.
type DownloadRequest struct {
	Ref  VideoRef
	Mode Mode
}

// DownloadResult is either a local file path or a direct stream URL.
type DownloadResult struct {
	PathOrURL   string `json:"path_or_url"`
	IsLocalFile bool   `json:"is_local_file"`
}

// FormatDescriptor is one non-DASH encoding reported by the extraction tool.
type FormatDescriptor struct {
	Label     string `json:"format"`
	Filesize  int64  `json:"filesize"`
	FormatID  string `json:"format_id"`
	Extension string `json:"ext"`
	Note      string `json:"format_note"`
	SourceRef string `json:"yturl"`
}
