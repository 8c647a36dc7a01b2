package service

import (
	"sync"
	"time"

	"github.com/voyago/voyago/internal/domain/query"
)

// Entry tracks one submitted query for its lifetime in memory.
type Entry struct {
	Query  *query.Query
	Token  *query.CancelToken
	Stream *Stream

	done       chan struct{}
	terminalAt time.Time
}

// Done is closed once the query reaches a terminal state.
func (e *Entry) Done() <-chan struct{} { return e.done }

// Registry holds in-flight and recently terminal queries. Terminal entries
// stay visible until one status poll observes the final state or the TTL
// elapses, whichever comes first.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
}

// NewRegistry creates a registry whose terminal entries expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		ttl:     ttl,
	}
}

// Register adds a query to the registry.
func (r *Registry) Register(q *query.Query, token *query.CancelToken, stream *Stream) *Entry {
	e := &Entry{
		Query:  q,
		Token:  token,
		Stream: stream,
		done:   make(chan struct{}),
	}
	r.mu.Lock()
	r.entries[q.ID] = e
	r.mu.Unlock()
	return e
}

// Get returns the entry for a query id.
func (r *Registry) Get(queryID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[queryID]
	return e, ok
}

// ActiveByThread returns the entry for the thread's active query, if any.
func (r *Registry) ActiveByThread(threadID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Query.ThreadID == threadID && !e.Query.Status.Terminal() {
			return e, true
		}
	}
	return nil, false
}

// SetTerminal records the query's final status and releases waiters.
func (r *Registry) SetTerminal(queryID string, status query.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[queryID]
	if !ok || e.Query.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	e.Query.Status = status
	e.Query.EndedAt = &now
	e.terminalAt = now
	close(e.done)
}

// Cancel requests cancellation of a query. The returned status is
// "cancelled" when this call flipped an active query's token, and
// "already_terminal" for finished or already-cancelled queries still in
// the registry. Unknown ids return ok=false.
func (r *Registry) Cancel(queryID, reason string) (string, bool) {
	r.mu.RLock()
	e, ok := r.entries[queryID]
	terminal := ok && e.Query.Status.Terminal()
	r.mu.RUnlock()

	if !ok {
		return "", false
	}
	if terminal {
		return "already_terminal", true
	}

	if e.Token.Cancel(reason) {
		return "cancelled", true
	}
	return "already_terminal", true
}

// Status returns the observable state of a query. Unknown ids return
// ok=false. The first poll that observes a terminal state evicts the entry.
func (r *Registry) Status(queryID string) (query.StatusInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[queryID]
	if !ok {
		return query.StatusInfo{}, false
	}

	q := *e.Query
	info := query.StatusInfo{
		QueryID:       queryID,
		Status:        q.Status,
		IsActive:      !q.Status.Terminal(),
		IsInterrupted: q.Status == query.StatusInterrupted,
		Info:          &q,
	}

	// One poll is allowed to observe the final state; then the entry goes.
	if q.Status.Terminal() {
		delete(r.entries, queryID)
	}
	return info, true
}

// ActiveCount returns the number of non-terminal queries.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if !e.Query.Status.Terminal() {
			n++
		}
	}
	return n
}

// StartJanitor evicts terminal entries older than the TTL every interval.
// Returns a stop function.
func (r *Registry) StartJanitor(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.evictExpired()
			}
		}
	}()
	return func() { close(stop) }
}

func (r *Registry) evictExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-r.ttl)
	for id, e := range r.entries {
		if e.Query.Status.Terminal() && e.terminalAt.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}
