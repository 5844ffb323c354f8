// Package acquirer obtains a playable artifact for a reference, trying the
// local cache, the remote service and the local extractor in turn.
package acquirer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
	"github.com/emanuelef/yt-resolve-go/internal/infra/fs"
)

const (
	// DefaultMaxVideoSize is the largest total filesize accepted for a local
	// video download.
	DefaultMaxVideoSize int64 = 100 * 1024 * 1024
	// ChunkSize is the read size used when streaming a remote payload to disk.
	ChunkSize = 8192
)

// ErrAcquisitionFailed is returned when every tier failed.
var ErrAcquisitionFailed = errors.New("acquisition failed")

// ArtifactStore is the download directory.
type ArtifactStore interface {
	Lookup(id string) (*domain.CachedArtifact, bool)
	Path(id, ext string) (string, error)
	EnsureDir() error
}

// Remote is the subset of the remote service used here.
type Remote interface {
	RequestDownloadURL(ctx context.Context, id string) (string, error)
	ResolveStreamURL(ctx context.Context, id string) (string, error)
}

// Extractor is the local extraction tool.
type Extractor interface {
	Download(ctx context.Context, ref domain.VideoRef, mode domain.Mode) (string, error)
	ResolveStreamURL(ctx context.Context, ref domain.VideoRef) (string, error)
	ProbeTotalFilesize(ctx context.Context, ref domain.VideoRef) (int64, bool)
}

// Offloader runs blocking work on a bounded pool and waits for it.
type Offloader interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Config holds acquirer configuration.
type Config struct {
	Store        ArtifactStore
	Remote       Remote
	Extractor    Extractor
	Pool         Offloader    // Runs local downloads; nil runs them inline
	HTTPClient   *http.Client // Fetches remote payloads
	MaxVideoSize int64
	Coalesce     bool // Share one in-flight acquisition per id and mode
}

// Acquirer turns DownloadRequests into DownloadResults.
type Acquirer struct {
	store        ArtifactStore
	remote       Remote
	extractor    Extractor
	pool         Offloader
	client       *http.Client
	maxVideoSize int64
	coalesce     bool
	group        singleflight.Group
}

// New creates an Acquirer.
func New(cfg Config) *Acquirer {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.MaxVideoSize <= 0 {
		cfg.MaxVideoSize = DefaultMaxVideoSize
	}
	return &Acquirer{
		store:        cfg.Store,
		remote:       cfg.Remote,
		extractor:    cfg.Extractor,
		pool:         cfg.Pool,
		client:       cfg.HTTPClient,
		maxVideoSize: cfg.MaxVideoSize,
		coalesce:     cfg.Coalesce,
	}
}

// Acquire returns a local file or a direct stream URL for req.
//
// A nil result with a nil error means the request was rejected by policy:
// a video whose size is unknown or above the limit.
//
// With coalescing on, the shared acquisition runs detached from any caller's
// cancellation; a caller whose ctx ends stops waiting and gets ctx.Err().
func (a *Acquirer) Acquire(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if !fs.ValidID(req.Ref.ID) {
		return nil, fmt.Errorf("%w: %w", ErrAcquisitionFailed, fs.ErrInvalidID)
	}
	if !a.coalesce {
		return a.acquire(ctx, req)
	}

	key := string(req.Mode) + ":" + req.Ref.ID
	shared := context.WithoutCancel(ctx)
	ch := a.group.DoChan(key, func() (interface{}, error) {
		return a.acquire(shared, req)
	})

	select {
	case r := <-ch:
		if r.Shared {
			slog.Debug("Shared in-flight acquisition", "key", key)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		res, _ := r.Val.(*domain.DownloadResult)
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Acquirer) acquire(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	ref := req.Ref

	if artifact, ok := a.store.Lookup(ref.ID); ok {
		slog.Debug("Artifact cache hit", "id", ref.ID, "path", artifact.Path)
		return localFile(artifact.Path), nil
	}

	switch req.Mode {
	case domain.ModeSongAudio, domain.ModeSongVideo:
		if path, err := a.remoteDownload(ctx, ref); err == nil {
			return localFile(path), nil
		}
		return a.localDownload(ctx, ref, req.Mode)

	case domain.ModeVideo:
		if path, err := a.remoteDownload(ctx, ref); err == nil {
			return localFile(path), nil
		}
		u, err := a.extractor.ResolveStreamURL(ctx, ref)
		if err == nil {
			return &domain.DownloadResult{PathOrURL: u, IsLocalFile: false}, nil
		}
		slog.Debug("Direct stream URL unavailable", "id", ref.ID, "error", err)

		size, ok := a.extractor.ProbeTotalFilesize(ctx, ref)
		if !ok || size <= 0 || size > a.maxVideoSize {
			slog.Info("Rejecting video download",
				"id", ref.ID,
				"size", humanize.IBytes(uint64(max(size, 0))),
				"known", ok,
				"limit", humanize.IBytes(uint64(a.maxVideoSize)),
			)
			return nil, nil
		}
		return a.localDownload(ctx, ref, req.Mode)

	default:
		if path, err := a.remoteDownload(ctx, ref); err == nil {
			return localFile(path), nil
		}
		return a.localDownload(ctx, ref, domain.ModeAudio)
	}
}

// StreamURL returns a direct media URL, asking the remote service first.
func (a *Acquirer) StreamURL(ctx context.Context, ref domain.VideoRef) (string, error) {
	u, err := a.remote.ResolveStreamURL(ctx, ref.ID)
	if err == nil {
		return u, nil
	}
	slog.Debug("Remote stream lookup failed, using extractor", "id", ref.ID, "error", err)

	u, err = a.extractor.ResolveStreamURL(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve stream url: %w", err)
	}
	return u, nil
}

func localFile(path string) *domain.DownloadResult {
	return &domain.DownloadResult{PathOrURL: path, IsLocalFile: true}
}

func (a *Acquirer) localDownload(ctx context.Context, ref domain.VideoRef, mode domain.Mode) (*domain.DownloadResult, error) {
	var path string
	run := func(ctx context.Context) error {
		p, err := a.extractor.Download(ctx, ref, mode)
		path = p
		return err
	}

	var err error
	if a.pool != nil {
		err = a.pool.Do(ctx, "download:"+ref.ID, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		slog.Warn("Local download failed", "id", ref.ID, "mode", mode, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAcquisitionFailed, err)
	}
	return localFile(path), nil
}

// remoteDownload asks the remote service for a download URL and streams the
// payload to <dir>/<id>.mp3.
func (a *Acquirer) remoteDownload(ctx context.Context, ref domain.VideoRef) (string, error) {
	u, err := a.remote.RequestDownloadURL(ctx, ref.ID)
	if err != nil {
		slog.Debug("Remote download unavailable", "id", ref.ID, "error", err)
		return "", err
	}

	path, err := a.store.Path(ref.ID, domain.ExtMP3)
	if err != nil {
		return "", err
	}
	n, err := a.fetchPayload(ctx, u, path)
	if err != nil {
		slog.Warn("Remote payload fetch failed", "id", ref.ID, "error", err)
		return "", err
	}

	slog.Info("Remote payload saved", "id", ref.ID, "path", path, "size", humanize.IBytes(uint64(n)))
	return path, nil
}

func (a *Acquirer) fetchPayload(ctx context.Context, u, path string) (int64, error) {
	if err := a.store.EnsureDir(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("payload returned status %d", resp.StatusCode)
	}

	partial := path + fs.PartialSuffix
	f, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := copyChunks(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to write payload: %w", err)
	}

	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to finalize payload: %w", err)
	}
	return n, nil
}

func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			total += int64(w)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
