// Package http exposes the resolver, acquirer and catalog over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
	"github.com/emanuelef/yt-resolve-go/internal/infra/cache"
	"github.com/emanuelef/yt-resolve-go/internal/service/queue"
	"github.com/emanuelef/yt-resolve-go/internal/service/resolver"
	"github.com/emanuelef/yt-resolve-go/internal/transport/http/middleware"
)

// MaxPlaylistLimit caps the limit query parameter of /api/playlist.
const MaxPlaylistLimit = 100

// Resolver resolves metadata.
type Resolver interface {
	Resolve(ctx context.Context, ref domain.VideoRef) (*domain.Metadata, error)
	Track(ctx context.Context, ref domain.VideoRef) (*domain.Track, error)
	Slider(ctx context.Context, query string, index int) (*domain.Metadata, error)
}

// Acquirer obtains artifacts and stream URLs.
type Acquirer interface {
	Acquire(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error)
	StreamURL(ctx context.Context, ref domain.VideoRef) (string, error)
}

// Catalog lists playlists and formats.
type Catalog interface {
	Playlist(ctx context.Context, ref string, limit int) ([]string, error)
	Formats(ctx context.Context, ref domain.VideoRef) ([]domain.FormatDescriptor, error)
}

// JobStore persists acquisition jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	ListUnfinished(ctx context.Context) ([]*domain.Job, error)
}

// JobQueue runs acquisition jobs in the background.
type JobQueue interface {
	Enqueue(name string, task queue.Task) error
	IsFull() bool
	QueueSize() int
	WorkerCount() int
}

// Mirror copies local artifacts to object storage.
type Mirror interface {
	Put(ctx context.Context, path string) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ArtifactStats reports the size of the download directory.
type ArtifactStats interface {
	Stats() (count int, size int64)
}

// Deps groups the collaborators of Handlers. Mirror is optional.
type Deps struct {
	Resolver      Resolver
	Acquirer      Acquirer
	Catalog       Catalog
	Jobs          JobStore
	Queue         JobQueue
	Artifacts     ArtifactStats
	Metadata      *cache.MetadataCache
	Mirror        Mirror
	PresignExpiry time.Duration
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	resolver      Resolver
	acquirer      Acquirer
	catalog       Catalog
	jobs          JobStore
	queue         JobQueue
	artifacts     ArtifactStats
	metadata      *cache.MetadataCache
	mirror        Mirror
	presignExpiry time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	if deps.Metadata == nil {
		deps.Metadata = cache.DefaultMetadataCache()
	}
	if deps.PresignExpiry <= 0 {
		deps.PresignExpiry = 15 * time.Minute
	}
	return &Handlers{
		resolver:      deps.Resolver,
		acquirer:      deps.Acquirer,
		catalog:       deps.Catalog,
		jobs:          deps.Jobs,
		queue:         deps.Queue,
		artifacts:     deps.Artifacts,
		metadata:      deps.Metadata,
		mirror:        deps.Mirror,
		presignExpiry: deps.PresignExpiry,
	}
}

// HealthHandler handles GET /api/health requests.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := &domain.HealthResponse{
		Status:    "ok",
		QueueSize: h.queue.QueueSize(),
		Workers:   h.queue.WorkerCount(),
	}
	if h.artifacts != nil {
		response.Artifacts, response.ArtifactBytes = h.artifacts.Stats()
	}

	writeJSON(w, http.StatusOK, response)
}

// ResolveHandler handles GET /api/resolve?ref= requests.
func (h *Handlers) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	ref := domain.ParseRef(r.URL.Query().Get("ref"))

	if meta, ok := h.metadata.Get(ref.ID); ok {
		writeJSON(w, http.StatusOK, meta)
		return
	}

	meta, err := h.resolver.Resolve(r.Context(), ref)
	if err != nil {
		writeResolveError(w, ref, err)
		return
	}

	h.metadata.Set(ref.ID, meta)
	writeJSON(w, http.StatusOK, meta)
}

// TrackHandler handles GET /api/track?ref= requests.
func (h *Handlers) TrackHandler(w http.ResponseWriter, r *http.Request) {
	ref := domain.ParseRef(r.URL.Query().Get("ref"))

	track, err := h.resolver.Track(r.Context(), ref)
	if err != nil {
		writeResolveError(w, ref, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// SearchHandler handles GET /api/search?q=&index= requests.
func (h *Handlers) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required", "MISSING_QUERY")
		return
	}

	index := 0
	if s := r.URL.Query().Get("index"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n >= resolver.SliderSize {
			writeError(w, http.StatusBadRequest, "index must be between 0 and 9", "INVALID_INDEX")
			return
		}
		index = n
	}

	meta, err := h.resolver.Slider(r.Context(), query, index)
	if err != nil {
		writeResolveError(w, domain.VideoRef{Raw: query}, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// StreamHandler handles GET /api/stream?ref= requests.
func (h *Handlers) StreamHandler(w http.ResponseWriter, r *http.Request) {
	ref := domain.ParseRef(r.URL.Query().Get("ref"))

	u, err := h.acquirer.StreamURL(r.Context(), ref)
	if err != nil {
		slog.Warn("Stream URL resolution failed", "id", ref.ID, "error", err)
		writeError(w, http.StatusBadGateway, "could not resolve stream url", "STREAM_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, &domain.StreamResponse{ID: ref.ID, URL: u})
}

// FormatsHandler handles GET /api/formats?ref= requests.
func (h *Handlers) FormatsHandler(w http.ResponseWriter, r *http.Request) {
	ref := domain.ParseRef(r.URL.Query().Get("ref"))

	formats, err := h.catalog.Formats(r.Context(), ref)
	if err != nil {
		slog.Warn("Format listing failed", "id", ref.ID, "error", err)
		writeError(w, http.StatusBadGateway, "could not list formats", "FORMATS_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, &domain.FormatsResponse{Ref: ref.URL(), Formats: formats})
}

// PlaylistHandler handles GET /api/playlist?ref=&limit= requests.
func (h *Handlers) PlaylistHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ref")

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxPlaylistLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100", "INVALID_LIMIT")
			return
		}
		limit = n
	}

	ids, err := h.catalog.Playlist(r.Context(), raw, limit)
	if err != nil {
		slog.Warn("Playlist enumeration failed", "ref", raw, "error", err)
		writeError(w, http.StatusBadGateway, "could not enumerate playlist", "PLAYLIST_FAILED")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, &domain.PlaylistResponse{IDs: ids})
}

// AcquireHandler handles POST /api/acquire requests.
func (h *Handlers) AcquireHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AcquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	if err := middleware.ValidateReference(req.Ref); err != nil {
		slog.Warn("Reference validation failed",
			"ref", req.Ref,
			"error", err,
			"ip", middleware.ClientIP(r),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REFERENCE")
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MODE")
		return
	}

	if h.queue.IsFull() {
		writeError(w, http.StatusServiceUnavailable, "server is busy, please try again later", "QUEUE_FULL")
		return
	}

	job := domain.NewJob(uuid.New().String(), domain.DownloadRequest{Ref: domain.ParseRef(req.Ref), Mode: mode})
	if err := h.jobs.Create(r.Context(), job); err != nil {
		slog.Error("Failed to create job", "error", err, "job_id", job.ID)
		writeError(w, http.StatusInternalServerError, "failed to create job", "DB_ERROR")
		return
	}

	if err := h.enqueue(job); err != nil {
		slog.Error("Failed to enqueue job", "error", err, "job_id", job.ID)
		job.MarkError("failed to enqueue job")
		if err := h.jobs.Update(r.Context(), job); err != nil {
			slog.Error("Failed to update job", "error", err, "job_id", job.ID)
		}
		writeError(w, http.StatusServiceUnavailable, "server is busy, please try again later", "QUEUE_FULL")
		return
	}

	slog.Info("Acquisition job created",
		"job_id", job.ID,
		"video_id", job.VideoID,
		"mode", job.Mode,
		"ip", middleware.ClientIP(r),
	)

	writeJSON(w, http.StatusAccepted, &domain.AcquireResponse{JobID: job.ID})
}

// StatusHandler handles GET /api/status/{job_id} requests.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job_id format", "INVALID_JOB_ID")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		slog.Error("Failed to get job", "error", err, "job_id", jobID)
		writeError(w, http.StatusInternalServerError, "failed to get job status", "DB_ERROR")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	}

	resp := job.ToStatusResponse()
	if job.MirrorKey != "" && h.mirror != nil {
		u, err := h.mirror.PresignedURL(r.Context(), job.MirrorKey, h.presignExpiry)
		if err != nil {
			slog.Warn("Failed to presign mirrored artifact", "error", err, "job_id", jobID)
		} else {
			resp.DownloadURL = u
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) enqueue(job *domain.Job) error {
	return h.queue.Enqueue("job:"+job.ID, func(ctx context.Context) {
		h.ProcessJob(ctx, job)
	})
}

// ProcessJob runs one acquisition job. It is called by the job queue.
func (h *Handlers) ProcessJob(ctx context.Context, job *domain.Job) {
	slog.Info("Processing job",
		"job_id", job.ID,
		"video_id", job.VideoID,
		"mode", job.Mode,
	)

	job.MarkProcessing()
	h.save(ctx, job)

	res, err := h.acquirer.Acquire(ctx, job.Request())
	switch {
	case err != nil:
		slog.Error("Acquisition failed", "error", err, "job_id", job.ID)
		job.MarkError(err.Error())
	case res == nil:
		slog.Info("Acquisition rejected by policy", "job_id", job.ID, "video_id", job.VideoID)
		job.MarkRejected()
	default:
		job.MarkDone(*res)
		if res.IsLocalFile && h.mirror != nil {
			key, err := h.mirror.Put(ctx, res.PathOrURL)
			if err != nil {
				slog.Warn("Failed to mirror artifact", "error", err, "job_id", job.ID)
			} else {
				job.MirrorKey = key
			}
		}
	}

	h.save(ctx, job)

	slog.Info("Job finished",
		"job_id", job.ID,
		"status", job.Status,
	)
}

// RequeueUnfinished re-enqueues jobs left pending or processing by a
// previous run. Jobs that do not fit in the queue are marked as failed.
func (h *Handlers) RequeueUnfinished(ctx context.Context) (int, error) {
	jobs, err := h.jobs.ListUnfinished(ctx)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, job := range jobs {
		if err := h.enqueue(job); err != nil {
			job.MarkError("interrupted by restart")
			h.save(ctx, job)
			continue
		}
		requeued++
	}
	return requeued, nil
}

func (h *Handlers) save(ctx context.Context, job *domain.Job) {
	if err := h.jobs.Update(ctx, job); err != nil {
		slog.Error("Failed to update job", "error", err, "job_id", job.ID)
	}
}

func writeResolveError(w http.ResponseWriter, ref domain.VideoRef, err error) {
	if errors.Is(err, resolver.ErrNoMatch) {
		writeError(w, http.StatusNotFound, "no match for reference", "NO_MATCH")
		return
	}
	slog.Warn("Metadata resolution failed", "id", ref.ID, "raw", ref.Raw, "error", err)
	writeError(w, http.StatusBadGateway, "could not resolve metadata", "RESOLVE_FAILED")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, &domain.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
