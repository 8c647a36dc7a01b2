package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyago/voyago/internal/domain"
	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/port/threadstore"
)

// Store implements threadstore.Store backed by PostgreSQL. Per-thread
// write serialization relies on row-level locking inside transactions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a thread store using the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ threadstore.Store = (*Store)(nil)

func (s *Store) GetOrCreate(ctx context.Context, threadID, userID string) (*thread.Thread, error) {
	var (
		th             thread.Thread
		partialResults []byte
		checkpoint     []byte
	)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO threads (id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
		 RETURNING id, user_id, last_agent, invoked_agents, detected_intents,
		           partial_results, checkpoint, last_status, created_at, updated_at`,
		threadID, userID,
	).Scan(&th.ID, &th.UserID, &th.LastAgent, &th.PreviouslyInvokedAgents, &th.DetectedIntents,
		&partialResults, &checkpoint, &th.LastStatus, &th.CreatedAt, &th.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create thread %s: %w", threadID, err)
	}

	if len(partialResults) > 0 {
		if err := json.Unmarshal(partialResults, &th.PartialResults); err != nil {
			return nil, fmt.Errorf("decode partial results for %s: %w", threadID, err)
		}
	}
	th.Checkpoint = checkpoint

	msgs, err := s.listMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	th.Messages = msgs
	return &th, nil
}

func (s *Store) AppendMessages(ctx context.Context, threadID string, msgs []thread.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the thread row so concurrent writers serialize per thread.
	var exists string
	err = tx.QueryRow(ctx, `SELECT id FROM threads WHERE id = $1 FOR UPDATE`, threadID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("append to thread %s: %w", threadID, domain.ErrNotFound)
		}
		return fmt.Errorf("lock thread %s: %w", threadID, err)
	}

	for _, m := range msgs {
		_, err := tx.Exec(ctx,
			`INSERT INTO thread_messages (id, thread_id, author, agent, content, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, threadID, m.Author, m.Agent, m.Content, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `UPDATE threads SET updated_at = NOW() WHERE id = $1`, threadID)
	if err != nil {
		return fmt.Errorf("touch thread %s: %w", threadID, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) SaveCheckpoint(ctx context.Context, threadID string, cp *threadstore.Checkpoint) error {
	var (
		checkpoint     any
		partialResults any
	)
	if cp != nil {
		data, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("encode checkpoint: %w", err)
		}
		checkpoint = data
		if len(cp.PartialResults) > 0 {
			pr, err := json.Marshal(cp.PartialResults)
			if err != nil {
				return fmt.Errorf("encode partial results: %w", err)
			}
			partialResults = pr
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE threads SET checkpoint = $2, partial_results = $3, updated_at = NOW() WHERE id = $1`,
		threadID, checkpoint, partialResults)
	if err != nil {
		return fmt.Errorf("save checkpoint for %s: %w", threadID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save checkpoint for %s: %w", threadID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) SaveState(ctx context.Context, th *thread.Thread) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE threads
		 SET last_agent = $2, invoked_agents = $3, detected_intents = $4, last_status = $5, updated_at = NOW()
		 WHERE id = $1`,
		th.ID, th.LastAgent, textArray(th.PreviouslyInvokedAgents), textArray(th.DetectedIntents), th.LastStatus)
	if err != nil {
		return fmt.Errorf("save state for %s: %w", th.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save state for %s: %w", th.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, threadID string) (*thread.History, error) {
	var th thread.Thread
	var partialResults []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, last_agent, invoked_agents, detected_intents, partial_results, last_status
		 FROM threads WHERE id = $1`,
		threadID,
	).Scan(&th.ID, &th.LastAgent, &th.PreviouslyInvokedAgents, &th.DetectedIntents, &partialResults, &th.LastStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("load history %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load history %s: %w", threadID, err)
	}
	if len(partialResults) > 0 {
		if err := json.Unmarshal(partialResults, &th.PartialResults); err != nil {
			return nil, fmt.Errorf("decode partial results for %s: %w", threadID, err)
		}
	}

	msgs, err := s.listMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}

	return &thread.History{
		ThreadID: threadID,
		Messages: msgs,
		State:    th.Summary(),
	}, nil
}

func (s *Store) listMessages(ctx context.Context, threadID string) ([]thread.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, thread_id, author, agent, content, created_at
		 FROM thread_messages WHERE thread_id = $1 ORDER BY seq ASC`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	result := []thread.Message{}
	for rows.Next() {
		var m thread.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Author, &m.Agent, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// textArray converts a string slice to a pgx-compatible text array.
// nil slices become empty arrays to avoid SQL NULL.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
