// Package threadstore defines the port interface for durable thread state.
package threadstore

import (
	"context"
	"encoding/json"

	"github.com/voyago/voyago/internal/domain/thread"
)

// Checkpoint is the durable progress marker a worker writes at entry and
// around each external call. Writes to the same thread are serialized by
// the implementation; a reader never observes a torn update.
type Checkpoint struct {
	QueryID        string                     `json:"query_id"`
	Worker         string                     `json:"worker"`
	Stage          string                     `json:"stage"`
	PartialResults map[string]json.RawMessage `json:"partial_results,omitempty"`
}

// Store is the port interface for thread persistence.
type Store interface {
	// GetOrCreate returns the thread with the given id, creating it if absent.
	GetOrCreate(ctx context.Context, threadID, userID string) (*thread.Thread, error)

	// AppendMessages appends messages to the thread in order.
	AppendMessages(ctx context.Context, threadID string, msgs []thread.Message) error

	// SaveCheckpoint overwrites the thread's checkpoint and partial results.
	// A nil checkpoint clears both.
	SaveCheckpoint(ctx context.Context, threadID string, cp *Checkpoint) error

	// SaveState persists the thread's agent and intent bookkeeping.
	SaveState(ctx context.Context, th *thread.Thread) error

	// LoadHistory returns the thread's messages and state summary.
	// Returns domain.ErrNotFound for an unknown thread.
	LoadHistory(ctx context.Context, threadID string) (*thread.History, error)
}
