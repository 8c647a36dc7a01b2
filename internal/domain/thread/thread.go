// Package thread defines the conversational thread entity and its durable state.
package thread

import (
	"encoding/json"
	"time"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser  Author = "user"
	AuthorAgent Author = "agent"
)

// Message is a single message in a thread, ordered by insertion.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Author    Author    `json:"author"`
	Agent     string    `json:"agent,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is the unit of conversational continuity. Partial results and the
// checkpoint survive interruption so a follow-up query can resume from them.
type Thread struct {
	ID                      string                     `json:"id"`
	UserID                  string                     `json:"user_id,omitempty"`
	Messages                []Message                  `json:"messages"`
	LastAgent               string                     `json:"last_agent,omitempty"`
	PreviouslyInvokedAgents []string                   `json:"previously_invoked_agents"`
	DetectedIntents         []string                   `json:"detected_intents"`
	PartialResults          map[string]json.RawMessage `json:"partial_results,omitempty"`
	Checkpoint              json.RawMessage            `json:"checkpoint,omitempty"`
	LastStatus              string                     `json:"last_status,omitempty"`
	CreatedAt               time.Time                  `json:"created_at"`
	UpdatedAt               time.Time                  `json:"updated_at"`
}

// RecordAgent marks an agent as invoked on this thread, preserving first-seen order.
func (t *Thread) RecordAgent(agent string) {
	t.LastAgent = agent
	for _, a := range t.PreviouslyInvokedAgents {
		if a == agent {
			return
		}
	}
	t.PreviouslyInvokedAgents = append(t.PreviouslyInvokedAgents, agent)
}

// RecordIntent remembers a detected intent, preserving first-seen order.
func (t *Thread) RecordIntent(intent string) {
	for _, i := range t.DetectedIntents {
		if i == intent {
			return
		}
	}
	t.DetectedIntents = append(t.DetectedIntents, intent)
}

// StateSummary is the thread-level state block returned alongside history.
type StateSummary struct {
	LastAgent               string   `json:"last_agent,omitempty"`
	PreviouslyInvokedAgents []string `json:"previously_invoked_agents"`
	DetectedIntents         []string `json:"detected_intents"`
	Status                  string   `json:"status,omitempty"`
	HasPartialResults       bool     `json:"has_partial_results"`
}

// Summary derives the state block from the thread.
func (t *Thread) Summary() StateSummary {
	agents := t.PreviouslyInvokedAgents
	if agents == nil {
		agents = []string{}
	}
	intents := t.DetectedIntents
	if intents == nil {
		intents = []string{}
	}
	return StateSummary{
		LastAgent:               t.LastAgent,
		PreviouslyInvokedAgents: agents,
		DetectedIntents:         intents,
		Status:                  t.LastStatus,
		HasPartialResults:       len(t.PartialResults) > 0,
	}
}

// History is the full history payload for a thread.
type History struct {
	ThreadID string       `json:"thread_id"`
	Messages []Message    `json:"messages"`
	State    StateSummary `json:"state"`
}
