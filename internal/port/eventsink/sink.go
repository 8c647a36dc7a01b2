// Package eventsink defines the port for mirroring stream events to a message bus.
package eventsink

import (
	"context"

	"github.com/voyago/voyago/internal/domain/event"
)

// Subject prefixes for published events. The full subject is
// queries.events.{type}, e.g. queries.events.agent_start.
const SubjectPrefix = "queries.events"

// Sink publishes query events for out-of-process consumers. Publishing is
// best-effort; a sink failure never interrupts the client stream.
type Sink interface {
	Publish(ctx context.Context, ev event.Event) error
	Close() error
}

// Nop is a Sink that discards everything. Used when no bus is configured.
type Nop struct{}

func (Nop) Publish(context.Context, event.Event) error { return nil }
func (Nop) Close() error                               { return nil }
