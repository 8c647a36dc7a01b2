// Package classifier defines the port for intent classification.
package classifier

import (
	"context"

	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/domain/travel"
)

// Classifier decides which travel intent a user query expresses.
// Implementations fall back to keyword matching when the model
// backend is unreachable, so Classify only fails on cancellation.
type Classifier interface {
	Classify(ctx context.Context, query string, history []thread.Message) (travel.Decision, error)
}
