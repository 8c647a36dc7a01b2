package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventQueryStatus = "query.status"
	EventAgentState  = "agent.state"
)

// Agent states carried by AgentStateEvent.
const (
	AgentActive = "active"
	AgentDone   = "done"
)

// QueryStatusEvent is broadcast when a query starts or reaches a terminal state.
type QueryStatusEvent struct {
	QueryID  string `json:"query_id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

// AgentStateEvent is broadcast when an agent starts or finishes work on a query.
type AgentStateEvent struct {
	QueryID string `json:"query_id"`
	Agent   string `json:"agent"`
	State   string `json:"state"` // "active" or "done"
}

// BroadcastEvent marshals a typed event and broadcasts it to all clients.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
