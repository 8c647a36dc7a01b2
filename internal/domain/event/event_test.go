package event

import (
	"encoding/json"
	"testing"
)

func TestTerminal(t *testing.T) {
	terminal := []Type{TypeComplete, TypeInterrupted, TypeError}
	for _, typ := range terminal {
		if !typ.Terminal() {
			t.Errorf("%s should be terminal", typ)
		}
	}
	nonTerminal := []Type{TypeStart, TypeAgentStart, TypeAgentMessage, TypeToken, TypeToolStart, TypeToolComplete, TypeAgentComplete}
	for _, typ := range nonTerminal {
		if typ.Terminal() {
			t.Errorf("%s should not be terminal", typ)
		}
	}
}

func TestEventJSONOmitsEmpty(t *testing.T) {
	ev := Complete("q-1")
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "complete" || m["query_id"] != "q-1" {
		t.Errorf("unexpected fields: %v", m)
	}
	for _, key := range []string{"agent", "tool", "content", "reason", "message"} {
		if _, ok := m[key]; ok {
			t.Errorf("field %q should be omitted when empty", key)
		}
	}
}

func TestInterruptedCarriesReason(t *testing.T) {
	ev := Interrupted("q-2", "User requested cancellation")
	if ev.Reason != "User requested cancellation" {
		t.Errorf("reason = %q", ev.Reason)
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
