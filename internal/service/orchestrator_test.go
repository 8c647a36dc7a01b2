package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voyago/voyago/internal/adapter/ws"
	"github.com/voyago/voyago/internal/domain"
	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

func TestSubmitFlightHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.orch.Submit(ctx, query.SubmitRequest{Query: "flights NYC to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	evs := collect(t, entry.Stream)
	assertSubsequence(t, evs,
		event.TypeStart,
		event.TypeAgentStart,    // coordinator
		event.TypeAgentComplete, // coordinator
		event.TypeAgentStart,    // flight
		event.TypeAgentMessage,
		event.TypeAgentComplete, // flight
		event.TypeComplete,
	)

	last := evs[len(evs)-1]
	if last.Type != event.TypeComplete {
		t.Errorf("last event = %s, want complete", last.Type)
	}

	first := evs[0]
	if first.Type != event.TypeStart || first.ThreadID != "t-1" {
		t.Errorf("first event = %+v", first)
	}

	// Coordinator events precede worker events.
	var agents []string
	for _, ev := range evs {
		if ev.Type == event.TypeAgentStart {
			agents = append(agents, ev.Agent)
		}
	}
	if len(agents) != 2 || agents[0] != "coordinator" || agents[1] != "flight" {
		t.Errorf("agent_start order = %v", agents)
	}

	h, err := f.orch.History(ctx, "t-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Messages) != 2 {
		t.Fatalf("history messages = %d, want user + flight", len(h.Messages))
	}
	if h.State.LastAgent != "flight" || h.State.Status != "completed" {
		t.Errorf("state = %+v", h.State)
	}
	if h.State.HasPartialResults {
		t.Error("partials should be cleared after clean completion")
	}
}

func TestAgentStateBroadcasts(t *testing.T) {
	f := newFixture(t)

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights NYC to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, entry.Stream)

	var states []ws.AgentStateEvent
	for _, rec := range f.hub.recorded() {
		if rec.Type != ws.EventAgentState {
			continue
		}
		se, ok := rec.Payload.(ws.AgentStateEvent)
		if !ok {
			t.Fatalf("agent state payload = %T", rec.Payload)
		}
		states = append(states, se)
	}

	want := []ws.AgentStateEvent{
		{QueryID: entry.Query.ID, Agent: "coordinator", State: ws.AgentActive},
		{QueryID: entry.Query.ID, Agent: "coordinator", State: ws.AgentDone},
		{QueryID: entry.Query.ID, Agent: "flight", State: ws.AgentActive},
		{QueryID: entry.Query.ID, Agent: "flight", State: ws.AgentDone},
	}
	if len(states) != len(want) {
		t.Fatalf("agent state broadcasts = %+v, want %d", states, len(want))
	}
	for i, w := range want {
		if states[i] != w {
			t.Errorf("broadcast[%d] = %+v, want %+v", i, states[i], w)
		}
	}
}

func TestCancelBeforeWorkersStart(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.classifier.gate = gate

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	// Wait for the run to reach routing, then cancel and release.
	select {
	case ev := <-entry.Stream.Events():
		if ev.Type != event.TypeStart {
			t.Fatalf("first event = %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no start event")
	}

	status, err := f.orch.Cancel(query.CancelRequest{QueryID: entry.Query.ID})
	if err != nil || status != "cancelled" {
		t.Fatalf("cancel = %q, %v", status, err)
	}
	close(gate)

	evs := collect(t, entry.Stream)
	for _, ev := range evs {
		if ev.Type == event.TypeAgentStart && ev.Agent != "coordinator" {
			t.Errorf("worker %s started after cancellation", ev.Agent)
		}
	}
	last := evs[len(evs)-1]
	if last.Type != event.TypeInterrupted {
		t.Fatalf("last event = %s, want interrupted", last.Type)
	}
	if last.Reason != query.DefaultCancelReason {
		t.Errorf("reason = %q", last.Reason)
	}

	if f.flights.callCount() != 0 {
		t.Error("flight provider called despite cancellation")
	}
}

func TestCancelMidFlightSearch(t *testing.T) {
	f := newFixture(t)
	idCh := make(chan string, 1)
	f.flights.onCall = func() {
		id := <-idCh
		if status, err := f.orch.Cancel(query.CancelRequest{QueryID: id}); err != nil || status != "cancelled" {
			t.Errorf("cancel = %q, %v", status, err)
		}
	}

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights NYC to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}
	idCh <- entry.Query.ID

	evs := collect(t, entry.Stream)
	last := evs[len(evs)-1]
	if last.Type != event.TypeInterrupted {
		t.Fatalf("last event = %s, want interrupted", last.Type)
	}
	for _, ev := range evs {
		if ev.Type == event.TypeToolComplete || ev.Type == event.TypeComplete {
			t.Errorf("unexpected %s after mid-call cancellation", ev.Type)
		}
	}

	<-entry.Done()
	info, err := f.orch.Status(entry.Query.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsInterrupted || info.IsActive {
		t.Errorf("status = %+v", info)
	}
}

func TestInterruptionPreservesCompletedPartials(t *testing.T) {
	f := newFixture(t)
	f.classifier.decision = travel.Decision{
		Intent:  travel.IntentFlightAndHotel,
		Details: travel.Details{Origin: "NYC", Destination: "LAX", Dates: "2026-09-15"},
	}
	idCh := make(chan string, 1)
	f.hotels.onCall = func() {
		_, _ = f.orch.Cancel(query.CancelRequest{QueryID: <-idCh})
	}

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flight and hotel to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}
	idCh <- entry.Query.ID

	evs := collect(t, entry.Stream)
	if evs[len(evs)-1].Type != event.TypeInterrupted {
		t.Fatalf("last event = %s", evs[len(evs)-1].Type)
	}

	h, err := f.orch.History(context.Background(), "t-1")
	if err != nil {
		t.Fatal(err)
	}
	var flightMsg bool
	for _, m := range h.Messages {
		if m.Agent == "flight" {
			flightMsg = true
		}
	}
	if !flightMsg {
		t.Error("completed flight message missing from history")
	}
	if !h.State.HasPartialResults {
		t.Error("flight partial result should survive interruption")
	}
	if h.State.Status != "interrupted" {
		t.Errorf("thread status = %q", h.State.Status)
	}
}

func TestResumeCarriesPartialsIntoNewRun(t *testing.T) {
	f := newFixture(t)
	f.classifier.decision = travel.Decision{
		Intent:  travel.IntentFlightAndHotel,
		Details: travel.Details{Origin: "NYC", Destination: "LAX", Dates: "2026-09-15"},
	}
	idCh := make(chan string, 1)
	f.hotels.onCall = func() {
		_, _ = f.orch.Cancel(query.CancelRequest{QueryID: <-idCh})
	}

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flight and hotel to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}
	idCh <- entry.Query.ID
	collect(t, entry.Stream)

	// Continue the thread: only the hotel remains, chained off the
	// preserved flight result.
	f.hotels.onCall = nil
	f.classifier.decision = travel.Decision{
		Intent:  travel.IntentHotel,
		Details: travel.Details{Destination: ""},
	}

	resumed, err := f.orch.Resume(context.Background(), query.ResumeRequest{
		Query: "continue with the hotel", ThreadID: "t-1", PreviousQueryID: entry.Query.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, resumed.Stream)
	if evs[len(evs)-1].Type != event.TypeComplete {
		t.Fatalf("resumed run ended with %s", evs[len(evs)-1].Type)
	}

	seen := f.hotels.params()
	lastCall := seen[len(seen)-1]
	if lastCall.Location != "LAX" {
		t.Errorf("resumed hotel search location = %q, want flight destination", lastCall.Location)
	}
}

func TestConcurrentSubmitSameThreadSupersedes(t *testing.T) {
	f := newFixture(t)
	f.flights.onCall = func() { time.Sleep(50 * time.Millisecond) }

	first, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	// Give the first query time to enter its provider call.
	time.Sleep(10 * time.Millisecond)

	second, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "actually, flights to SFO", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	firstEvs := collect(t, first.Stream)
	if firstEvs[len(firstEvs)-1].Type != event.TypeInterrupted {
		t.Errorf("first query ended with %s, want interrupted", firstEvs[len(firstEvs)-1].Type)
	}

	secondEvs := collect(t, second.Stream)
	if secondEvs[len(secondEvs)-1].Type != event.TypeComplete {
		t.Errorf("second query ended with %s, want complete", secondEvs[len(secondEvs)-1].Type)
	}

	// The first query was terminal before the second was admitted.
	if first.Query.EndedAt == nil {
		t.Fatal("first query has no end time")
	}
	if second.Query.CreatedAt.Before(*first.Query.EndedAt) {
		t.Error("second query admitted before the first drained")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.classifier.gate = gate

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	if status, _ := f.orch.Cancel(query.CancelRequest{QueryID: entry.Query.ID}); status != "cancelled" {
		t.Fatalf("first cancel = %q", status)
	}
	if status, _ := f.orch.Cancel(query.CancelRequest{QueryID: entry.Query.ID}); status != "already_terminal" {
		t.Errorf("second cancel = %q, want already_terminal", status)
	}
	if _, err := f.orch.Cancel(query.CancelRequest{QueryID: "unknown"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cancel unknown = %v, want ErrNotFound", err)
	}

	close(gate)
	collect(t, entry.Stream)
}

func TestSubmitRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: ""})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestStatusUnknownQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Status("nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpstreamTimeoutEndsErrored(t *testing.T) {
	f := newFixture(t)
	f.flights.err = &searchprovider.UpstreamError{Kind: searchprovider.KindTimeout, Provider: "flights"}

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	evs := collect(t, entry.Stream)
	last := evs[len(evs)-1]
	if last.Type != event.TypeError {
		t.Fatalf("last event = %s, want error", last.Type)
	}
	if last.Message != "upstream_timeout" {
		t.Errorf("message = %q", last.Message)
	}

	<-entry.Done()
	info, err := f.orch.Status(entry.Query.ID)
	if err != nil {
		t.Fatal(err)
	}
	if info.Status != query.StatusErrored {
		t.Errorf("status = %s", info.Status)
	}
}

func TestAbandonedStreamCancelsQuery(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.classifier.gate = gate

	entry, err := f.orch.Submit(context.Background(), query.SubmitRequest{Query: "flights to LAX", ThreadID: "t-1"})
	if err != nil {
		t.Fatal(err)
	}

	entry.Stream.Abandon()

	deadline := time.After(time.Second)
	for !entry.Token.Cancelled() {
		select {
		case <-deadline:
			t.Fatal("token not cancelled after consumer disconnect")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(gate)

	select {
	case <-entry.Done():
	case <-time.After(time.Second):
		t.Fatal("query did not reach a terminal state")
	}
}
