// Package memory implements the thread store port in process memory.
// Used for development mode and tests; state does not survive restarts.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voyago/voyago/internal/domain"
	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/port/threadstore"
)

// Store holds threads in a map. A single mutex serializes writes; the
// per-thread ordering guarantee falls out of that.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*thread.Thread
}

// NewStore creates an empty in-memory thread store.
func NewStore() *Store {
	return &Store{threads: make(map[string]*thread.Thread)}
}

var _ threadstore.Store = (*Store)(nil)

func (s *Store) GetOrCreate(_ context.Context, threadID, userID string) (*thread.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		now := time.Now().UTC()
		th = &thread.Thread{
			ID:        threadID,
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.threads[threadID] = th
	}
	return cloneThread(th), nil
}

func (s *Store) AppendMessages(_ context.Context, threadID string, msgs []thread.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("append to thread %s: %w", threadID, domain.ErrNotFound)
	}
	th.Messages = append(th.Messages, msgs...)
	th.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SaveCheckpoint(_ context.Context, threadID string, cp *threadstore.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("save checkpoint for %s: %w", threadID, domain.ErrNotFound)
	}
	if cp == nil {
		th.Checkpoint = nil
		th.PartialResults = nil
	} else {
		data, err := encodeCheckpoint(cp)
		if err != nil {
			return err
		}
		th.Checkpoint = data
		th.PartialResults = clonePartials(cp.PartialResults)
	}
	th.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SaveState(_ context.Context, in *thread.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	th, ok := s.threads[in.ID]
	if !ok {
		return fmt.Errorf("save state for %s: %w", in.ID, domain.ErrNotFound)
	}
	th.LastAgent = in.LastAgent
	th.PreviouslyInvokedAgents = append([]string(nil), in.PreviouslyInvokedAgents...)
	th.DetectedIntents = append([]string(nil), in.DetectedIntents...)
	th.LastStatus = in.LastStatus
	th.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) LoadHistory(_ context.Context, threadID string) (*thread.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	th, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("load history %s: %w", threadID, domain.ErrNotFound)
	}
	c := cloneThread(th)
	return &thread.History{
		ThreadID: threadID,
		Messages: c.Messages,
		State:    c.Summary(),
	}, nil
}
