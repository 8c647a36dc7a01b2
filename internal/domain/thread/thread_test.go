package thread

import (
	"encoding/json"
	"testing"
)

func TestRecordAgentDeduplicates(t *testing.T) {
	th := &Thread{ID: "t-1"}
	th.RecordAgent("flight")
	th.RecordAgent("hotel")
	th.RecordAgent("flight")

	if th.LastAgent != "flight" {
		t.Errorf("last agent = %q, want flight", th.LastAgent)
	}
	if len(th.PreviouslyInvokedAgents) != 2 {
		t.Fatalf("invoked agents = %v, want 2 entries", th.PreviouslyInvokedAgents)
	}
	if th.PreviouslyInvokedAgents[0] != "flight" || th.PreviouslyInvokedAgents[1] != "hotel" {
		t.Errorf("order not preserved: %v", th.PreviouslyInvokedAgents)
	}
}

func TestSummary(t *testing.T) {
	th := &Thread{ID: "t-2", LastStatus: "interrupted"}
	th.RecordAgent("flight")
	th.RecordIntent("flight")
	th.PartialResults = map[string]json.RawMessage{"flight": json.RawMessage(`{"origin":"NYC"}`)}

	s := th.Summary()
	if !s.HasPartialResults {
		t.Error("expected partial results flag")
	}
	if s.Status != "interrupted" {
		t.Errorf("status = %q", s.Status)
	}
	if len(s.PreviouslyInvokedAgents) != 1 || s.PreviouslyInvokedAgents[0] != "flight" {
		t.Errorf("agents = %v", s.PreviouslyInvokedAgents)
	}
}

func TestSummaryEmptyThread(t *testing.T) {
	s := (&Thread{ID: "t-3"}).Summary()
	if s.PreviouslyInvokedAgents == nil || s.DetectedIntents == nil {
		t.Error("summary slices should never be nil")
	}
	if s.HasPartialResults {
		t.Error("empty thread should not report partial results")
	}
}
