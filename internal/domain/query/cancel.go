package query

import (
	"sync"
	"sync/atomic"
)

// DefaultCancelReason is used when a cancel request carries no reason.
const DefaultCancelReason = "User requested cancellation"

// CancelToken is the cooperative cancellation signal for one query.
//
// The flag makes exactly one transition, not-requested -> requested, and is
// never reset. Reads are wait-free; workers may poll it any number of times
// without side effects. The token carries an optional human-readable reason
// set by the first (and only) successful Cancel call.
type CancelToken struct {
	requested atomic.Bool
	once      sync.Once
	reason    string
}

// NewCancelToken returns a token in the not-requested state.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel requests cancellation with the given reason. It returns true on the
// first call and false on every subsequent call; the reason recorded by the
// first call wins.
func (t *CancelToken) Cancel(reason string) bool {
	first := false
	t.once.Do(func() {
		if reason == "" {
			reason = DefaultCancelReason
		}
		t.reason = reason
		t.requested.Store(true)
		first = true
	})
	return first
}

// Cancelled reports whether cancellation has been requested.
func (t *CancelToken) Cancelled() bool {
	return t.requested.Load()
}

// Reason returns the cancellation reason, or "" if not cancelled.
// The reason is written before the flag, so any caller that observed
// Cancelled() == true sees the final reason.
func (t *CancelToken) Reason() string {
	if !t.requested.Load() {
		return ""
	}
	return t.reason
}
