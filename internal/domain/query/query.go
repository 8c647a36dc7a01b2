// Package query defines the Query domain entity and its cancellation token.
package query

import "time"

// Status represents the lifecycle state of a query.
type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusErrored     Status = "errored"
)

// Terminal reports whether the status is a terminal state.
// Status transitions are monotonic: once terminal, a query never changes again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusInterrupted, StatusErrored:
		return true
	default:
		return false
	}
}

// Query represents one user-submitted request being processed.
// It is created by the orchestrator on submission and mutated only by the
// orchestrator; workers never touch it directly.
type Query struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	Text      string     `json:"text"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SubmitRequest is the request body for submitting a query.
type SubmitRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// CancelRequest is the request body for cancelling a query.
type CancelRequest struct {
	QueryID string `json:"query_id"`
	Reason  string `json:"reason,omitempty"`
}

// ResumeRequest is the request body for resuming a thread after interruption.
type ResumeRequest struct {
	Query           string `json:"query"`
	ThreadID        string `json:"thread_id"`
	PreviousQueryID string `json:"previous_query_id,omitempty"`
}

// StatusInfo is the read-only projection returned by status lookups.
type StatusInfo struct {
	QueryID       string `json:"query_id"`
	Status        Status `json:"status"`
	IsActive      bool   `json:"is_active"`
	IsInterrupted bool   `json:"is_interrupted"`
	Info          *Query `json:"query_info,omitempty"`
}
