package domain

// JobStatus is the publication state of a job posting.
type JobStatus string

// Job statuses.
const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
	JobDraft  JobStatus = "draft"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	return s == JobOpen || s == JobClosed || s == JobDraft
}

// Job is a posting that owns one hiring pipeline.
type Job struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Department string    `json:"department,omitempty"`
	Location   string    `json:"location,omitempty"`
	Status     JobStatus `json:"status"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}
