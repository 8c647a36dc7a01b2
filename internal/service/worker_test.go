package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/voyago/voyago/internal/adapter/memory"
	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

func newWorkerFixture(t *testing.T) (*memory.Store, *RunContext, *Stream) {
	t.Helper()
	store := memory.NewStore()
	if _, err := store.GetOrCreate(context.Background(), "t-1", ""); err != nil {
		t.Fatal(err)
	}
	s := NewStream("q-1", 64)
	rc := testRunContext(s, store, "t-1", flightDecision())
	return store, rc, s
}

func TestFlightWorkerCompletes(t *testing.T) {
	store, rc, s := newWorkerFixture(t)
	w := NewFlightWorker(&fakeFlights{})

	out := w.Run(context.Background(), rc)
	if out.Status != query.StatusCompleted {
		t.Fatalf("status = %s, err = %v", out.Status, out.Err)
	}
	if out.Message == "" || len(out.Result) == 0 {
		t.Error("completed outcome should carry a message and result")
	}
	if _, ok := rc.Partials["flight"]; !ok {
		t.Error("flight partial result not recorded")
	}

	s.Emit(event.Complete("q-1"))
	evs := collect(t, s)
	assertSubsequence(t, evs, event.TypeToolStart, event.TypeToolComplete, event.TypeAgentMessage)

	// The post-call checkpoint must be durable.
	th, err := store.GetOrCreate(context.Background(), "t-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(th.Checkpoint) == 0 {
		t.Error("checkpoint not persisted")
	}
}

func TestFlightWorkerInterruptedBeforeCall(t *testing.T) {
	_, rc, s := newWorkerFixture(t)
	provider := &fakeFlights{}
	w := NewFlightWorker(provider)

	rc.Token.Cancel("changed my mind")
	out := w.Run(context.Background(), rc)

	if out.Status != query.StatusInterrupted {
		t.Fatalf("status = %s", out.Status)
	}
	if out.Reason != "changed my mind" {
		t.Errorf("reason = %q", out.Reason)
	}
	if provider.callCount() != 0 {
		t.Error("provider should not be called after cancellation")
	}

	s.Emit(event.Complete("q-1"))
	for _, ev := range collect(t, s) {
		if ev.Type == event.TypeToolStart || ev.Type == event.TypeAgentMessage {
			t.Errorf("unexpected %s after cancellation", ev.Type)
		}
	}
}

func TestFlightWorkerInterruptedDuringCall(t *testing.T) {
	_, rc, s := newWorkerFixture(t)
	provider := &fakeFlights{}
	provider.onCall = func() { rc.Token.Cancel("") }
	w := NewFlightWorker(provider)

	out := w.Run(context.Background(), rc)
	if out.Status != query.StatusInterrupted {
		t.Fatalf("status = %s", out.Status)
	}
	if out.Reason != query.DefaultCancelReason {
		t.Errorf("reason = %q", out.Reason)
	}

	// Nothing after the pre-call tool_start may reach the stream.
	s.Emit(event.Complete("q-1"))
	for _, ev := range collect(t, s) {
		if ev.Type == event.TypeToolComplete || ev.Type == event.TypeAgentMessage {
			t.Errorf("unexpected %s after cancellation", ev.Type)
		}
	}
}

func TestFlightWorkerUpstreamTimeout(t *testing.T) {
	_, rc, _ := newWorkerFixture(t)
	provider := &fakeFlights{err: &searchprovider.UpstreamError{Kind: searchprovider.KindTimeout, Provider: "flights"}}
	w := NewFlightWorker(provider)

	out := w.Run(context.Background(), rc)
	if out.Status != query.StatusErrored {
		t.Fatalf("status = %s", out.Status)
	}
	if got := upstreamMessage(out.Err); got != "upstream_timeout" {
		t.Errorf("message = %q, want upstream_timeout", got)
	}
	if provider.callCount() != 1 {
		t.Errorf("calls = %d, workers must not retry", provider.callCount())
	}
}

func TestHotelWorkerChainsOffFlightResult(t *testing.T) {
	_, rc, _ := newWorkerFixture(t)
	flight := travel.FlightResult{Origin: "NYC", Destination: "LAX", Date: "2026-09-15"}
	raw, _ := json.Marshal(flight)
	rc.Partials["flight"] = raw
	rc.Decision.Details.Destination = "somewhere else"

	hotels := &fakeHotels{}
	out := NewHotelWorker(hotels).Run(context.Background(), rc)
	if out.Status != query.StatusCompleted {
		t.Fatalf("status = %s, err = %v", out.Status, out.Err)
	}

	seen := hotels.params()
	if len(seen) != 1 {
		t.Fatalf("provider calls = %d", len(seen))
	}
	if seen[0].Location != "LAX" {
		t.Errorf("location = %q, want the flight destination", seen[0].Location)
	}
	if seen[0].CheckIn != "2026-09-15" || seen[0].CheckOut != "2026-09-17" {
		t.Errorf("stay = %q to %q", seen[0].CheckIn, seen[0].CheckOut)
	}
}

func TestHotelWorkerWithoutFlightUsesDecision(t *testing.T) {
	_, rc, _ := newWorkerFixture(t)
	rc.Decision.Details.Destination = "Paris"
	rc.Decision.Details.Dates = "2026-10-01"

	hotels := &fakeHotels{}
	out := NewHotelWorker(hotels).Run(context.Background(), rc)
	if out.Status != query.StatusCompleted {
		t.Fatalf("status = %s", out.Status)
	}
	seen := hotels.params()
	if seen[0].Location != "Paris" || seen[0].CheckOut != "2026-10-03" {
		t.Errorf("params = %+v", seen[0])
	}
}

func TestResearchWorkerPicksAttractions(t *testing.T) {
	_, rc, s := newWorkerFixture(t)
	rc.QueryText = "things to do in Rome"
	rc.Decision.Details.Destination = "Rome"

	out := NewResearchWorker(fakeResearch{}, fakeResearch{}).Run(context.Background(), rc)
	if out.Status != query.StatusCompleted {
		t.Fatalf("status = %s", out.Status)
	}

	s.Emit(event.Complete("q-1"))
	var tool string
	for _, ev := range collect(t, s) {
		if ev.Type == event.TypeToolStart {
			tool = ev.Tool
		}
	}
	if tool != toolSearchAttractions {
		t.Errorf("tool = %q, want %q", tool, toolSearchAttractions)
	}
}

func TestResearchWorkerDefaultsToWebSearch(t *testing.T) {
	_, rc, s := newWorkerFixture(t)
	rc.QueryText = "best time to visit Iceland"

	out := NewResearchWorker(fakeResearch{}, fakeResearch{}).Run(context.Background(), rc)
	if out.Status != query.StatusCompleted {
		t.Fatalf("status = %s", out.Status)
	}

	s.Emit(event.Complete("q-1"))
	var tool string
	for _, ev := range collect(t, s) {
		if ev.Type == event.TypeToolStart {
			tool = ev.Tool
		}
	}
	if tool != toolWebSearch {
		t.Errorf("tool = %q, want %q", tool, toolWebSearch)
	}
}
