package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/voyago/voyago/internal/adapter/otel"
	"github.com/voyago/voyago/internal/adapter/ws"
	"github.com/voyago/voyago/internal/config"
	"github.com/voyago/voyago/internal/domain"
	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/port/broadcast"
	"github.com/voyago/voyago/internal/port/eventsink"
	"github.com/voyago/voyago/internal/port/threadstore"
)

// Orchestrator is the single entry point for query lifecycle operations.
// It admits queries, enforces one active query per thread, runs the
// coordinator in the background, and owns terminal bookkeeping.
type Orchestrator struct {
	cfg         config.Orchestrator
	registry    *Registry
	store       threadstore.Store
	coordinator *Coordinator
	sink        eventsink.Sink
	hub         broadcast.Broadcaster
	metrics     *otel.Metrics
	slots       *semaphore.Weighted
	threadLocks sync.Map // threadID -> *sync.Mutex
	log         *slog.Logger
}

// NewOrchestrator wires the orchestrator. sink, hub, and metrics may be nil.
func NewOrchestrator(
	cfg config.Orchestrator,
	registry *Registry,
	store threadstore.Store,
	coordinator *Coordinator,
	sink eventsink.Sink,
	hub broadcast.Broadcaster,
	metrics *otel.Metrics,
	log *slog.Logger,
) *Orchestrator {
	if sink == nil {
		sink = eventsink.Nop{}
	}
	return &Orchestrator{
		cfg:         cfg,
		registry:    registry,
		store:       store,
		coordinator: coordinator,
		sink:        sink,
		hub:         hub,
		metrics:     metrics,
		slots:       semaphore.NewWeighted(int64(cfg.MaxActiveQueries)),
		log:         log,
	}
}

// Submit admits a query and starts it in the background. The returned entry
// carries the event stream the caller consumes. When the thread already has
// an active query, that query is cancelled and Submit waits for it to drain
// before starting the new one.
func (o *Orchestrator) Submit(ctx context.Context, req query.SubmitRequest) (*Entry, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrValidation)
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	return o.start(ctx, req.Query, threadID, req.UserID)
}

// Resume continues an interrupted thread with a new query. Prior partial
// results and the checkpoint are loaded from the thread and carried into
// the new run's context.
func (o *Orchestrator) Resume(ctx context.Context, req query.ResumeRequest) (*Entry, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrValidation)
	}
	if req.ThreadID == "" {
		return nil, fmt.Errorf("resume requires a thread id: %w", domain.ErrValidation)
	}
	if req.PreviousQueryID != "" {
		if e, ok := o.registry.Get(req.PreviousQueryID); ok && !e.Query.Status.Terminal() && e.Query.ThreadID != req.ThreadID {
			return nil, fmt.Errorf("previous query belongs to another thread: %w", domain.ErrValidation)
		}
	}

	return o.start(ctx, req.Query, req.ThreadID, "")
}

func (o *Orchestrator) start(ctx context.Context, text, threadID, userID string) (*Entry, error) {
	// Admission is serialized per thread so concurrent submits cannot both
	// slip past the active-query check.
	mu := o.threadLock(threadID)
	mu.Lock()
	defer mu.Unlock()

	// One active query per thread: supersede the running one and wait for
	// it to reach a terminal state before this query begins.
	if prev, ok := o.registry.ActiveByThread(threadID); ok {
		prev.Token.Cancel("Superseded by a new request")
		if err := o.waitDrained(ctx, prev); err != nil {
			return nil, err
		}
	}

	if !o.slots.TryAcquire(1) {
		return nil, fmt.Errorf("too many active queries: %w", domain.ErrConflict)
	}

	th, err := o.store.GetOrCreate(ctx, threadID, userID)
	if err != nil {
		o.slots.Release(1)
		return nil, fmt.Errorf("load thread: %w", err)
	}

	q := &query.Query{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Text:      text,
		Status:    query.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	token := query.NewCancelToken()
	stream := NewStream(q.ID, o.cfg.StreamBuffer)
	entry := o.registry.Register(q, token, stream)

	partials := th.PartialResults
	if partials == nil {
		partials = make(map[string]json.RawMessage)
	}
	rc := &RunContext{
		QueryID:   q.ID,
		ThreadID:  threadID,
		QueryText: text,
		Token:     token,
		Partials:  partials,
		stream:    &observedStream{Stream: stream, o: o},
		store:     o.store,
	}

	if o.metrics != nil {
		o.metrics.QueriesStarted.Add(ctx, 1)
	}
	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventQueryStatus, ws.QueryStatusEvent{
			QueryID: q.ID, ThreadID: threadID, Status: string(query.StatusActive),
		})
	}

	go o.run(entry, rc, th)
	return entry, nil
}

// run executes the coordinator on a background context so client
// disconnects never abort persistence.
func (o *Orchestrator) run(entry *Entry, rc *RunContext, th *thread.Thread) {
	defer o.slots.Release(1)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A gone consumer cancels the query.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-entry.Stream.Abandoned():
			entry.Token.Cancel("Client disconnected")
		case <-watchDone:
		}
	}()

	start := time.Now()
	spanCtx, span := otel.StartQuerySpan(runCtx, rc.QueryID, rc.ThreadID)
	status, detail := o.coordinator.Run(spanCtx, rc, th)
	span.End()
	o.registry.SetTerminal(rc.QueryID, status)

	o.log.Info("query finished",
		"query_id", rc.QueryID, "thread_id", rc.ThreadID,
		"status", status, "detail", detail, "duration_ms", time.Since(start).Milliseconds())

	if o.metrics != nil {
		o.metrics.QueryDuration.Record(runCtx, time.Since(start).Seconds())
		switch status {
		case query.StatusCompleted:
			o.metrics.QueriesCompleted.Add(runCtx, 1)
		case query.StatusInterrupted:
			o.metrics.QueriesInterrupted.Add(runCtx, 1)
		case query.StatusErrored:
			o.metrics.QueriesErrored.Add(runCtx, 1)
		}
	}
	if o.hub != nil {
		o.hub.BroadcastEvent(runCtx, ws.EventQueryStatus, ws.QueryStatusEvent{
			QueryID: rc.QueryID, ThreadID: rc.ThreadID, Status: string(status),
		})
	}
}

func (o *Orchestrator) threadLock(threadID string) *sync.Mutex {
	v, _ := o.threadLocks.LoadOrStore(threadID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// waitDrained blocks until the superseded query reaches a terminal state,
// bounded by the configured drain timeout.
func (o *Orchestrator) waitDrained(ctx context.Context, prev *Entry) error {
	timer := time.NewTimer(o.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-prev.Done():
		return nil
	case <-timer.C:
		return fmt.Errorf("thread busy, previous query %s did not drain: %w", prev.Query.ID, domain.ErrConflict)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel requests cancellation of a query. Finished queries still in the
// registry report already_terminal; ids the registry no longer knows are
// not found.
func (o *Orchestrator) Cancel(req query.CancelRequest) (string, error) {
	if req.QueryID == "" {
		return "", fmt.Errorf("empty query_id: %w", domain.ErrValidation)
	}
	status, ok := o.registry.Cancel(req.QueryID, req.Reason)
	if !ok {
		return "", fmt.Errorf("query %s: %w", req.QueryID, domain.ErrNotFound)
	}
	return status, nil
}

// Status returns the observable state of a query.
func (o *Orchestrator) Status(queryID string) (query.StatusInfo, error) {
	info, ok := o.registry.Status(queryID)
	if !ok {
		return query.StatusInfo{}, fmt.Errorf("query %s: %w", queryID, domain.ErrNotFound)
	}
	return info, nil
}

// History returns a thread's messages and state.
func (o *Orchestrator) History(ctx context.Context, threadID string) (*thread.History, error) {
	return o.store.LoadHistory(ctx, threadID)
}

// ActiveCount reports the number of in-flight queries, for health checks.
func (o *Orchestrator) ActiveCount() int {
	return o.registry.ActiveCount()
}

// observedStream mirrors every emitted event to the sink, metrics, and the
// websocket hub while preserving stream semantics for consumers.
type observedStream struct {
	*Stream
	o *Orchestrator
}

func (s *observedStream) Emit(ev event.Event) bool {
	ok := s.Stream.Emit(ev)
	if !ok {
		return false
	}
	if s.o.metrics != nil {
		s.o.metrics.EventsEmitted.Add(context.Background(), 1)
	}
	if err := s.o.sink.Publish(context.Background(), ev); err != nil {
		s.o.log.Debug("event sink publish failed", "type", ev.Type, "error", err)
	}
	s.broadcastAgentState(ev)
	return true
}

// broadcastAgentState projects agent lifecycle events onto the hub so
// monitoring clients can track which agent is working on a query.
func (s *observedStream) broadcastAgentState(ev event.Event) {
	if s.o.hub == nil {
		return
	}
	var state string
	switch ev.Type {
	case event.TypeAgentStart:
		state = ws.AgentActive
	case event.TypeAgentComplete:
		state = ws.AgentDone
	default:
		return
	}
	s.o.hub.BroadcastEvent(context.Background(), ws.EventAgentState, ws.AgentStateEvent{
		QueryID: ev.QueryID,
		Agent:   ev.Agent,
		State:   state,
	})
}
