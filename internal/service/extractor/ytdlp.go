// Package extractor wraps the yt-dlp command-line tool.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// Encoding policies handed to yt-dlp's -f flag.
var (
	StreamFormat = fmt.Sprintf("best[height<=?%d][width<=?%d]", domain.MaxVideoHeight, domain.MaxVideoWidth)
	AudioFormat  = "bestaudio/best"
	VideoFormat  = fmt.Sprintf("(bestvideo[height<=?%d][width<=?%d][ext=mp4])+(bestaudio[ext=m4a])",
		domain.MaxVideoHeight, domain.MaxVideoWidth)
)

// CookieProvider returns the path of a cookie file to pass to yt-dlp.
type CookieProvider func() (string, error)

// Config holds extractor configuration.
type Config struct {
	YtDlpPath string         // Path to yt-dlp binary
	OutputDir string         // Directory for downloaded files
	Cookies   CookieProvider // Credential bundle for every invocation
	Runner    Runner         // Defaults to ExecRunner
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() *Config {
	return &Config{
		YtDlpPath: "yt-dlp",
		OutputDir: "downloads",
		Runner:    ExecRunner{},
	}
}

// Extractor runs yt-dlp to probe, resolve and download media.
type Extractor struct {
	config *Config
}

// New creates a new Extractor with the given configuration.
func New(config *Config) *Extractor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.YtDlpPath == "" {
		config.YtDlpPath = "yt-dlp"
	}
	if config.Runner == nil {
		config.Runner = ExecRunner{}
	}
	return &Extractor{config: config}
}

// OutputDir returns the directory downloads are written to.
func (e *Extractor) OutputDir() string {
	return e.config.OutputDir
}

// run invokes yt-dlp and fails on a non-zero exit or empty stdout.
func (e *Extractor) run(ctx context.Context, args ...string) ([]byte, error) {
	stdout, stderr, err := e.invoke(ctx, args...)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(stdout))) == 0 {
		return nil, &ToolError{Stderr: string(stderr), Err: ErrNoOutput}
	}
	return stdout, nil
}

// invoke prepends the cookie flag and runs yt-dlp, failing only on a
// non-zero exit. Whatever the tool printed is returned alongside the error.
func (e *Extractor) invoke(ctx context.Context, args ...string) ([]byte, []byte, error) {
	if e.config.Cookies != nil {
		cookieFile, err := e.config.Cookies()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to select cookie file: %w", err)
		}
		args = append([]string{"--cookies", cookieFile}, args...)
	}

	stdout, stderr, err := e.config.Runner.Run(ctx, e.config.YtDlpPath, args...)
	if err != nil {
		return stdout, stderr, &ToolError{Stderr: string(stderr), Err: err}
	}
	return stdout, stderr, nil
}

// info is the subset of `yt-dlp -J` output this package reads.
type info struct {
	ID      string                       `json:"id"`
	Ext     string                       `json:"ext"`
	Formats []map[string]json.RawMessage `json:"formats"`
	Entries []entry                      `json:"entries"`
}

type entry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration"`
	URL        string   `json:"url"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

func (e *Extractor) probe(ctx context.Context, args ...string) (*info, error) {
	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var i info
	if err := json.Unmarshal(out, &i); err != nil {
		return nil, fmt.Errorf("failed to parse video info: %w", err)
	}
	return &i, nil
}

// requiredFormatKeys must all be present for a format to be listed. A null
// value still counts as present.
var requiredFormatKeys = []string{"format", "filesize", "format_id", "ext", "format_note"}

// ProbeFormats lists the non-DASH formats available for ref.
func (e *Extractor) ProbeFormats(ctx context.Context, ref domain.VideoRef) ([]domain.FormatDescriptor, error) {
	link := ref.URL()
	i, err := e.probe(ctx, "-J", "--no-playlist", "--no-warnings", link)
	if err != nil {
		return nil, err
	}

	formats := make([]domain.FormatDescriptor, 0, len(i.Formats))
	for _, f := range i.Formats {
		if !hasKeys(f, requiredFormatKeys) {
			continue
		}
		label := stringField(f["format"])
		if strings.Contains(strings.ToLower(label), "dash") {
			continue
		}
		formats = append(formats, domain.FormatDescriptor{
			Label:     label,
			Filesize:  intField(f["filesize"]),
			FormatID:  stringField(f["format_id"]),
			Extension: stringField(f["ext"]),
			Note:      stringField(f["format_note"]),
			SourceRef: link,
		})
	}
	return formats, nil
}

// ResolveStreamURL returns a direct media URL within the quality ceiling.
func (e *Extractor) ResolveStreamURL(ctx context.Context, ref domain.VideoRef) (string, error) {
	out, err := e.run(ctx, "-g", "-f", StreamFormat, ref.URL())
	if err != nil {
		return "", err
	}
	return firstLine(string(out)), nil
}

// ProbeTotalFilesize sums the filesize of every listed format. The second
// return value is false when the tool fails or lists no formats.
func (e *Extractor) ProbeTotalFilesize(ctx context.Context, ref domain.VideoRef) (int64, bool) {
	i, err := e.probe(ctx, "-J", ref.URL())
	if err != nil {
		slog.Debug("Filesize probe failed", "id", ref.ID, "error", err)
		return 0, false
	}
	if len(i.Formats) == 0 {
		return 0, false
	}

	var total int64
	for _, f := range i.Formats {
		total += intField(f["filesize"])
	}
	return total, true
}

// EnumeratePlaylist returns up to limit video ids of a playlist, in order.
// yt-dlp exits non-zero when a single entry is unavailable, so ids printed
// before a failure are kept.
func (e *Extractor) EnumeratePlaylist(ctx context.Context, link string, limit int) ([]string, error) {
	out, stderr, err := e.invoke(ctx,
		"-i",
		"--get-id",
		"--flat-playlist",
		"--playlist-end", strconv.Itoa(limit),
		"--skip-download",
		link,
	)

	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}

	switch {
	case len(ids) > 0:
		if err != nil {
			slog.Warn("Playlist listed with errors", "link", link, "ids", len(ids), "error", err)
		}
		return ids, nil
	case err != nil:
		return nil, err
	default:
		return nil, &ToolError{Stderr: string(stderr), Err: ErrNoOutput}
	}
}

// Search queries yt-dlp's search extractor and returns up to limit rows.
func (e *Extractor) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit < 1 {
		limit = 1
	}
	i, err := e.probe(ctx, "--flat-playlist", "-J", fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(i.Entries))
	for _, en := range i.Entries {
		r := domain.SearchResult{
			ID:    en.ID,
			Title: en.Title,
			Link:  en.URL,
		}
		if en.Duration != nil {
			r.Duration = domain.FormatDuration(int(*en.Duration))
		}
		if len(en.Thumbnails) > 0 {
			r.Thumbnail = en.Thumbnails[len(en.Thumbnails)-1].URL
		}
		if r.Link == "" {
			r.Link = domain.WatchBase + en.ID
		}
		results = append(results, r)
	}
	return results, nil
}

// Download fetches ref with the audio or video policy into OutputDir as
// <id>.<ext>. A metadata-only probe runs first; when its target path already
// exists the download is skipped.
func (e *Extractor) Download(ctx context.Context, ref domain.VideoRef, mode domain.Mode) (string, error) {
	if err := os.MkdirAll(e.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	format := AudioFormat
	if mode.WantsVideo() {
		format = VideoFormat
	}
	link := ref.URL()

	i, err := e.probe(ctx, "-J", "--no-playlist", "--no-warnings", "-f", format, link)
	if err != nil {
		return "", err
	}
	if i.ID == "" || i.Ext == "" {
		return "", errors.New("could not determine downloaded file path")
	}

	path := filepath.Join(e.config.OutputDir, fmt.Sprintf("%s.%s", i.ID, i.Ext))
	if _, err := os.Stat(path); err == nil {
		slog.Debug("Extractor output already on disk", "path", path)
		return path, nil
	}

	outputTemplate := filepath.Join(e.config.OutputDir, "%(id)s.%(ext)s")
	if _, _, err := e.invoke(ctx, e.buildDownloadArgs(format, outputTemplate, link)...); err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("downloaded file not found: %w", err)
	}
	return path, nil
}

// buildDownloadArgs constructs the yt-dlp arguments for a file download.
func (e *Extractor) buildDownloadArgs(format, outputTemplate, link string) []string {
	return []string{
		"-f", format,
		"-o", outputTemplate,
		"--no-playlist",
		"--geo-bypass",
		"--no-check-certificates",
		"--quiet",
		"--no-warnings",
		link,
	}
}

// CheckYtDlp verifies that yt-dlp is installed and accessible.
func (e *Extractor) CheckYtDlp(ctx context.Context) error {
	if _, _, err := e.config.Runner.Run(ctx, e.config.YtDlpPath, "--version"); err != nil {
		return fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return nil
}

func hasKeys(m map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func intField(raw json.RawMessage) int64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return int64(n)
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
