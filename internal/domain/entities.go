// Package domain contains the core business entities and types.
package domain

import (
	"time"
)

// JobStatus represents the current state of an acquisition job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusRejected   JobStatus = "rejected" // size gate, not an error
	JobStatusError      JobStatus = "error"
)

// Job is an asynchronous acquisition submitted over HTTP.
type Job struct {
	ID          string     `json:"id"`
	Ref         string     `json:"ref"`
	VideoID     string     `json:"video_id"`
	Mode        Mode       `json:"mode"`
	Status      JobStatus  `json:"status"`
	Result      string     `json:"result,omitempty"` // local path or direct URL
	IsLocalFile bool       `json:"is_local_file"`
	MirrorKey   string     `json:"-"` // R2 object key (internal use)
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending Job for the given request.
func NewJob(id string, req DownloadRequest) *Job {
	return &Job{
		ID:        id,
		Ref:       req.Ref.Raw,
		VideoID:   req.Ref.ID,
		Mode:      req.Mode,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Request rebuilds the DownloadRequest the job was created from.
func (j *Job) Request() DownloadRequest {
	return DownloadRequest{
		Ref:  VideoRef{ID: j.VideoID, Raw: j.Ref},
		Mode: j.Mode,
	}
}

// MarkProcessing updates the job status to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
}

// MarkDone records a successful acquisition.
func (j *Job) MarkDone(res DownloadResult) {
	j.Status = JobStatusDone
	j.Result = res.PathOrURL
	j.IsLocalFile = res.IsLocalFile
	j.complete()
}

// MarkRejected records a policy rejection (no result, no error).
func (j *Job) MarkRejected() {
	j.Status = JobStatusRejected
	j.complete()
}

// MarkError updates the job status to error with the error message.
func (j *Job) MarkError(err string) {
	j.Status = JobStatusError
	j.Error = err
	j.complete()
}

func (j *Job) complete() {
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	switch j.Status {
	case JobStatusDone, JobStatusRejected, JobStatusError:
		return true
	}
	return false
}

// AcquireRequest is the JSON body for POST /api/acquire.
type AcquireRequest struct {
	Ref  string `json:"ref"`
	Mode string `json:"mode,omitempty"`
}

// AcquireResponse represents the response after enqueuing an acquisition.
type AcquireResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse represents the response for a job status check.
type StatusResponse struct {
	ID          string     `json:"id"`
	VideoID     string     `json:"video_id"`
	Mode        Mode       `json:"mode"`
	Status      JobStatus  `json:"status"`
	Result      string     `json:"result,omitempty"`
	IsLocalFile bool       `json:"is_local_file"`
	DownloadURL string     `json:"download_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HealthResponse represents the response for a health check.
type HealthResponse struct {
	Status        string `json:"status"`
	QueueSize     int    `json:"queue_size"`
	Workers       int    `json:"workers"`
	Artifacts     int    `json:"artifacts"`
	ArtifactBytes int64  `json:"artifact_bytes"`
}

// StreamResponse is returned by GET /api/stream.
type StreamResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PlaylistResponse is returned by GET /api/playlist.
type PlaylistResponse struct {
	IDs []string `json:"ids"`
}

// FormatsResponse is returned by GET /api/formats.
type FormatsResponse struct {
	Ref     string             `json:"ref"`
	Formats []FormatDescriptor `json:"formats"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ToStatusResponse converts a Job to a StatusResponse.
func (j *Job) ToStatusResponse() *StatusResponse {
	return &StatusResponse{
		ID:          j.ID,
		VideoID:     j.VideoID,
		Mode:        j.Mode,
		Status:      j.Status,
		Result:      j.Result,
		IsLocalFile: j.IsLocalFile,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}
