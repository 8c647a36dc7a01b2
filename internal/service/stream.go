// Package service implements query orchestration: the coordinator state
// machine, worker agents, the in-flight query registry, and event streaming.
package service

import (
	"sync"

	"github.com/voyago/voyago/internal/domain/event"
)

// Stream is the bounded, ordered event channel between a running query and
// its SSE consumer. A single producer emits; Emit blocks when the buffer is
// full so a slow consumer exerts back-pressure on the pipeline. The stream
// carries exactly one terminal event, after which it is closed.
type Stream struct {
	queryID string

	ch        chan event.Event
	abandoned chan struct{}

	abandonOnce sync.Once
	sendMu      sync.Mutex
	terminal    bool
}

// NewStream creates a stream with the given buffer size.
func NewStream(queryID string, buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{
		queryID:   queryID,
		ch:        make(chan event.Event, buffer),
		abandoned: make(chan struct{}),
	}
}

// QueryID returns the query this stream belongs to.
func (s *Stream) QueryID() string { return s.queryID }

// Events returns the consumer side of the stream. The channel is closed
// after the terminal event.
func (s *Stream) Events() <-chan event.Event { return s.ch }

// Emit appends an event in order. It blocks while the buffer is full and
// returns false if the stream already carried its terminal event or the
// consumer is gone. Emitting a terminal event closes the stream.
func (s *Stream) Emit(ev event.Event) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.terminal {
		return false
	}

	select {
	case s.ch <- ev:
		if ev.Type.Terminal() {
			s.terminal = true
			close(s.ch)
		}
		return true
	case <-s.abandoned:
		return false
	}
}

// Abandon marks the consumer as gone. Blocked and future emits return
// false instead of blocking forever.
func (s *Stream) Abandon() {
	s.abandonOnce.Do(func() { close(s.abandoned) })
}

// Abandoned is closed once the consumer disconnects.
func (s *Stream) Abandoned() <-chan struct{} { return s.abandoned }
