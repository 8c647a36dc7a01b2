package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
	"github.com/voyago/voyago/internal/port/threadstore"
)

// Checkpoint stages written by workers. Every worker checkpoints at entry
// and around each external call so an interrupted query can be resumed
// from the last durable marker.
const (
	StageEntry    = "entry"
	StagePreCall  = "pre_call"
	StagePostCall = "post_call"
)

// RunContext carries everything a worker needs for one dispatch. Workers
// read partial results left by earlier workers in the same query but only
// ever write their own slot.
type RunContext struct {
	QueryID   string
	ThreadID  string
	QueryText string
	Decision  travel.Decision
	Token     *query.CancelToken
	Partials  map[string]json.RawMessage

	stream eventStream
	store  threadstore.Store
}

// eventStream is the producer side of a query's event stream.
type eventStream interface {
	Emit(event.Event) bool
}

// Emit publishes an event on the query's stream. Workers stop emitting the
// moment they observe cancellation; Emit itself does not check the token.
func (rc *RunContext) Emit(ev event.Event) bool {
	return rc.stream.Emit(ev)
}

// Checkpoint durably records worker progress on the thread.
func (rc *RunContext) Checkpoint(ctx context.Context, worker travel.Agent, stage string) error {
	return rc.store.SaveCheckpoint(ctx, rc.ThreadID, &threadstore.Checkpoint{
		QueryID:        rc.QueryID,
		Worker:         string(worker),
		Stage:          stage,
		PartialResults: rc.Partials,
	})
}

// Outcome is the single result every worker run produces.
type Outcome struct {
	Status  query.Status
	Result  json.RawMessage // structured result, set on completion
	Message string          // rendered chat message, set on completion
	Reason  string          // interruption reason
	Err     error
}

// Complete builds a successful outcome from a structured result.
func Complete(result any, message string) Outcome {
	data, err := json.Marshal(result)
	if err != nil {
		return Errored(fmt.Errorf("encode result: %w", err))
	}
	return Outcome{Status: query.StatusCompleted, Result: data, Message: message}
}

// Interrupted builds an outcome for a cancelled run.
func Interrupted(reason string) Outcome {
	if reason == "" {
		reason = query.DefaultCancelReason
	}
	return Outcome{Status: query.StatusInterrupted, Reason: reason}
}

// Errored builds an outcome for a failed run.
func Errored(err error) Outcome {
	return Outcome{Status: query.StatusErrored, Err: err}
}

// Worker is a specialist agent the coordinator dispatches to. Run returns
// exactly one outcome; after observing cancellation a worker emits no
// further events and returns Interrupted.
type Worker interface {
	Name() travel.Agent
	Run(ctx context.Context, rc *RunContext) Outcome
}

// upstreamMessage renders a provider failure as the user-facing error text.
func upstreamMessage(err error) string {
	var ue *searchprovider.UpstreamError
	if errors.As(err, &ue) {
		return fmt.Sprintf("upstream_%s", ue.Kind)
	}
	return err.Error()
}
