package job

import "time"

// Record tracks one recreation job through the queue. It is keyed by article
// id, so a later job for the same article replaces the previous record.
type Record struct {
	JobID            string     `json:"job_id"`
	ArticleID        string     `json:"article_id"`
	Category         string     `json:"category"`
	Title            string     `json:"title,omitempty"`
	OriginalImageURL string     `json:"original_image_url"`
	Status           Status     `json:"status"`
	ResultURL        string     `json:"result_url,omitempty"`
	Provider         string     `json:"provider,omitempty"`
	Cached           bool       `json:"cached,omitempty"`
	Error            string     `json:"error,omitempty"`
	EnqueuedAt       time.Time  `json:"enqueued_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// Status of a recreation job
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the job has finished.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }
