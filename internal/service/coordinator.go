package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voyago/voyago/internal/adapter/otel"
	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/classifier"
	"github.com/voyago/voyago/internal/port/threadstore"
)

// Coordinator runs one query end to end: route the request, dispatch the
// worker sequence, finalize thread state, and emit exactly one terminal
// event. The cancel token is checked before every dispatch; once
// cancellation is acted on, nothing but the terminal event is emitted.
type Coordinator struct {
	classifier classifier.Classifier
	store      threadstore.Store
	workers    map[travel.Agent]Worker
	log        *slog.Logger
}

// NewCoordinator creates a coordinator with its worker set.
func NewCoordinator(cls classifier.Classifier, store threadstore.Store, workers []Worker, log *slog.Logger) *Coordinator {
	byName := make(map[travel.Agent]Worker, len(workers))
	for _, w := range workers {
		byName[w.Name()] = w
	}
	return &Coordinator{
		classifier: cls,
		store:      store,
		workers:    byName,
		log:        log,
	}
}

// Run executes the query and returns its final status plus a detail string
// (the interruption reason or error message).
func (c *Coordinator) Run(ctx context.Context, rc *RunContext, th *thread.Thread) (query.Status, string) {
	log := c.log.With("query_id", rc.QueryID, "thread_id", rc.ThreadID)

	rc.Emit(event.Start(rc.QueryID, rc.ThreadID))

	if rc.Token.Cancelled() {
		return c.finishInterrupted(ctx, rc, th, nil)
	}

	// Routing.
	rc.Emit(event.AgentStart(rc.QueryID, string(travel.AgentCoordinator)))

	decision, err := c.classifier.Classify(ctx, rc.QueryText, th.Messages)
	if err != nil {
		if rc.Token.Cancelled() {
			return c.finishInterrupted(ctx, rc, th, nil)
		}
		return c.finishErrored(ctx, rc, th, nil, fmt.Errorf("classify: %w", err))
	}
	rc.Decision = decision
	th.RecordIntent(string(decision.Intent))
	th.RecordAgent(string(travel.AgentCoordinator))
	log.Info("query routed", "intent", decision.Intent, "confidence", decision.Confidence)

	if rc.Token.Cancelled() {
		return c.finishInterrupted(ctx, rc, th, nil)
	}
	rc.Emit(event.AgentComplete(rc.QueryID, string(travel.AgentCoordinator)))

	// Dispatching.
	var agentMsgs []thread.Message
	for _, name := range decision.Intent.Workers() {
		if rc.Token.Cancelled() {
			return c.finishInterrupted(ctx, rc, th, agentMsgs)
		}

		w, ok := c.workers[name]
		if !ok {
			return c.finishErrored(ctx, rc, th, agentMsgs, fmt.Errorf("no worker registered for %s", name))
		}

		rc.Emit(event.AgentStart(rc.QueryID, string(name)))
		workerCtx, span := otel.StartWorkerSpan(ctx, rc.QueryID, string(name))
		outcome := w.Run(workerCtx, rc)
		span.End()

		switch outcome.Status {
		case query.StatusCompleted:
			th.RecordAgent(string(name))
			agentMsgs = append(agentMsgs, newAgentMessage(rc.ThreadID, name, outcome.Message))
			rc.Emit(event.AgentComplete(rc.QueryID, string(name)))
		case query.StatusInterrupted:
			return c.finishInterrupted(ctx, rc, th, agentMsgs)
		default:
			log.Warn("worker failed", "worker", name, "error", outcome.Err)
			return c.finishErrored(ctx, rc, th, agentMsgs, outcome.Err)
		}
	}

	// Finalizing.
	th.LastStatus = string(query.StatusCompleted)
	c.persist(ctx, rc, th, agentMsgs, true)
	rc.Emit(event.Complete(rc.QueryID))
	return query.StatusCompleted, ""
}

func (c *Coordinator) finishInterrupted(ctx context.Context, rc *RunContext, th *thread.Thread, agentMsgs []thread.Message) (query.Status, string) {
	reason := rc.Token.Reason()
	if reason == "" {
		reason = query.DefaultCancelReason
	}
	th.LastStatus = string(query.StatusInterrupted)
	// Checkpoint and partials are kept so a follow-up query can resume.
	c.persist(ctx, rc, th, agentMsgs, false)
	rc.Emit(event.Interrupted(rc.QueryID, reason))
	return query.StatusInterrupted, reason
}

func (c *Coordinator) finishErrored(ctx context.Context, rc *RunContext, th *thread.Thread, agentMsgs []thread.Message, err error) (query.Status, string) {
	msg := upstreamMessage(err)
	th.LastStatus = string(query.StatusErrored)
	c.persist(ctx, rc, th, agentMsgs, false)
	rc.Emit(event.Error(rc.QueryID, msg))
	return query.StatusErrored, msg
}

// persist appends the exchange to the thread and saves its state. On a
// clean completion the checkpoint and partials are cleared.
func (c *Coordinator) persist(ctx context.Context, rc *RunContext, th *thread.Thread, agentMsgs []thread.Message, clearCheckpoint bool) {
	msgs := append([]thread.Message{newUserMessage(rc.ThreadID, rc.QueryText)}, agentMsgs...)
	if err := c.store.AppendMessages(ctx, rc.ThreadID, msgs); err != nil {
		c.log.Error("append messages failed", "thread_id", rc.ThreadID, "error", err)
	}
	if err := c.store.SaveState(ctx, th); err != nil {
		c.log.Error("save thread state failed", "thread_id", rc.ThreadID, "error", err)
	}
	if clearCheckpoint {
		if err := c.store.SaveCheckpoint(ctx, rc.ThreadID, nil); err != nil {
			c.log.Error("clear checkpoint failed", "thread_id", rc.ThreadID, "error", err)
		}
	}
}

func newUserMessage(threadID, content string) thread.Message {
	return thread.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Author:    thread.AuthorUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func newAgentMessage(threadID string, agent travel.Agent, content string) thread.Message {
	return thread.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Author:    thread.AuthorAgent,
		Agent:     string(agent),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
