// Package event defines the stream events emitted during query execution.
package event

import "time"

// Type identifies the kind of stream event.
type Type string

const (
	TypeStart         Type = "start"
	TypeAgentStart    Type = "agent_start"
	TypeAgentMessage  Type = "agent_message"
	TypeToken         Type = "token"
	TypeToolStart     Type = "tool_start"
	TypeToolComplete  Type = "tool_complete"
	TypeAgentComplete Type = "agent_complete"
	TypeComplete      Type = "complete"
	TypeInterrupted   Type = "interrupted"
	TypeError         Type = "error"
)

// Terminal reports whether this event type ends a stream. Every stream
// carries exactly one terminal event as its last frame.
func (t Type) Terminal() bool {
	switch t {
	case TypeComplete, TypeInterrupted, TypeError:
		return true
	}
	return false
}

// Event is a single frame on a query's event stream.
type Event struct {
	Type      Type      `json:"type"`
	QueryID   string    `json:"query_id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Content   string    `json:"content,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func now() time.Time { return time.Now().UTC() }

// Start marks the beginning of query processing.
func Start(queryID, threadID string) Event {
	return Event{Type: TypeStart, QueryID: queryID, ThreadID: threadID, Timestamp: now()}
}

// AgentStart marks an agent beginning work.
func AgentStart(queryID, agent string) Event {
	return Event{Type: TypeAgentStart, QueryID: queryID, Agent: agent, Timestamp: now()}
}

// AgentMessage carries a complete message produced by an agent.
func AgentMessage(queryID, agent, content string) Event {
	return Event{Type: TypeAgentMessage, QueryID: queryID, Agent: agent, Content: content, Timestamp: now()}
}

// Token carries an incremental content fragment from an agent.
func Token(queryID, agent, content string) Event {
	return Event{Type: TypeToken, QueryID: queryID, Agent: agent, Content: content, Timestamp: now()}
}

// ToolStart marks an agent invoking an external tool.
func ToolStart(queryID, agent, tool string) Event {
	return Event{Type: TypeToolStart, QueryID: queryID, Agent: agent, Tool: tool, Timestamp: now()}
}

// ToolComplete marks a tool call returning.
func ToolComplete(queryID, agent, tool string) Event {
	return Event{Type: TypeToolComplete, QueryID: queryID, Agent: agent, Tool: tool, Timestamp: now()}
}

// AgentComplete marks an agent finishing its work.
func AgentComplete(queryID, agent string) Event {
	return Event{Type: TypeAgentComplete, QueryID: queryID, Agent: agent, Timestamp: now()}
}

// Complete is the terminal event for a successful query.
func Complete(queryID string) Event {
	return Event{Type: TypeComplete, QueryID: queryID, Timestamp: now()}
}

// Interrupted is the terminal event for a cancelled query.
func Interrupted(queryID, reason string) Event {
	return Event{Type: TypeInterrupted, QueryID: queryID, Reason: reason, Timestamp: now()}
}

// Error is the terminal event for a failed query.
func Error(queryID, message string) Event {
	return Event{Type: TypeError, QueryID: queryID, Message: message, Timestamp: now()}
}
