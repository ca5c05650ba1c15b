package models

import "time"

// JobStatus is the lifecycle state of a categorization job.
// Transitions are forward-only: running <-> paused, and any non-terminal
// state may move to completed, error or cancelled. Terminal states are sticky.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true for completed, error and cancelled.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError || s == JobStatusCancelled
}

// CategorizationJob tracks one batch categorization run. The job store owns
// all instances; workers and handlers operate on ids and receive snapshots.
type CategorizationJob struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"owner_id"`
	Status  JobStatus `json:"status"`

	// Progress counters. Completed counts every processed video, success or
	// failure, so 0 <= Failed <= Completed <= Total always holds.
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`

	CurrentVideo string `json:"current_video,omitempty"`
	Error        string `json:"error,omitempty"`

	// Paused is distinct from Status so a resume can restore Running, and
	// CancelRequested is distinct from Cancelled: workers drain in-flight
	// work before the job reaches the terminal state.
	Paused          bool `json:"paused"`
	CancelRequested bool `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns an immutable point-in-time copy of the job's observable
// fields, safe to hand to subscribers.
func (j *CategorizationJob) Snapshot() JobSnapshot {
	return JobSnapshot{
		JobID:        j.ID,
		OwnerID:      j.OwnerID,
		Status:       j.Status,
		Total:        j.Total,
		Completed:    j.Completed,
		Failed:       j.Failed,
		CurrentVideo: j.CurrentVideo,
		Paused:       j.Paused,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
	}
}

// JobSnapshot is the wire representation streamed to subscribers and returned
// by the poll endpoint.
type JobSnapshot struct {
	JobID        string    `json:"job_id"`
	OwnerID      string    `json:"owner_id"`
	Status       JobStatus `json:"status"`
	Total        int       `json:"total"`
	Completed    int       `json:"completed"`
	Failed       int       `json:"failed"`
	CurrentVideo string    `json:"current_video,omitempty"`
	Paused       bool      `json:"paused"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Terminal reports whether this is the final snapshot of its stream.
func (s JobSnapshot) Terminal() bool {
	return s.Status.IsTerminal()
}

// ClassificationResult is the per-video outcome a worker feeds back into the
// job store. Ephemeral: produced by one classifier call, consumed immediately.
type ClassificationResult struct {
	VideoID     string   `json:"video_id"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	TagIDs      []string `json:"tag_ids,omitempty"`
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
}
