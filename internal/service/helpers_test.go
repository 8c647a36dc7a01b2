package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/voyago/voyago/internal/adapter/memory"
	"github.com/voyago/voyago/internal/config"
	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/query"
	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeClassifier struct {
	mu       sync.Mutex
	decision travel.Decision
	err      error
	gate     chan struct{} // when non-nil, Classify blocks until closed
}

func (f *fakeClassifier) Classify(ctx context.Context, _ string, _ []thread.Message) (travel.Decision, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return travel.Decision{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return travel.Decision{}, err
	}
	return f.decision, f.err
}

func flightDecision() travel.Decision {
	return travel.Decision{
		Intent:     travel.IntentFlight,
		Confidence: 0.9,
		Details:    travel.Details{Origin: "NYC", Destination: "LAX", Dates: "2026-09-15", Passengers: 1},
	}
}

type fakeFlights struct {
	mu     sync.Mutex
	result *travel.FlightResult
	err    error
	onCall func() // runs while the "call" is in flight
	calls  int
}

func (f *fakeFlights) SearchFlights(_ context.Context, p searchprovider.FlightParams) (*travel.FlightResult, error) {
	f.mu.Lock()
	f.calls++
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &travel.FlightResult{
		Origin:      p.Origin,
		Destination: p.Destination,
		Date:        p.Date,
		Options: []travel.FlightOption{{
			ID: "f1", Airline: "United", Origin: p.Origin, Destination: p.Destination,
			DepartTime: "08:00", ArriveTime: "11:15", Duration: "5h15m",
			Price: travel.Price{Amount: 450, Currency: "USD"},
		}},
		SearchedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeFlights) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeHotels struct {
	mu     sync.Mutex
	err    error
	onCall func()
	seen   []searchprovider.HotelParams
}

func (f *fakeHotels) SearchHotels(_ context.Context, p searchprovider.HotelParams) (*travel.HotelResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, p)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &travel.HotelResult{
		Location: p.Location,
		CheckIn:  p.CheckIn,
		CheckOut: p.CheckOut,
		Options: []travel.HotelOption{{
			ID: "h1", Name: "Grand Plaza", Location: p.Location, Rating: 4.5,
			PricePerNight: travel.Price{Amount: 180, Currency: "USD"}, RoomType: "Double",
		}},
		SearchedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeHotels) params() []searchprovider.HotelParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]searchprovider.HotelParams(nil), f.seen...)
}

type fakeResearch struct{}

func (fakeResearch) SearchAttractions(_ context.Context, p searchprovider.AttractionParams) (*travel.ResearchResult, error) {
	return &travel.ResearchResult{
		Query:    p.Location,
		Location: p.Location,
		Attractions: []travel.AttractionOption{
			{ID: "a1", Name: "Old Town Walk", Rating: 4.7},
		},
		SearchedAt: time.Now().UTC(),
	}, nil
}

func (fakeResearch) SearchWeb(_ context.Context, p searchprovider.WebSearchParams) (*travel.ResearchResult, error) {
	return &travel.ResearchResult{
		Query: p.Query,
		Findings: []travel.ResearchFinding{
			{Title: "Travel guide", URL: "https://example.com", Snippet: "Everything you need."},
		},
		SearchedAt: time.Now().UTC(),
	}, nil
}

// fakeBroadcaster records hub broadcasts for inspection.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastRecord
}

type broadcastRecord struct {
	Type    string
	Payload any
}

func (b *fakeBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastRecord{Type: eventType, Payload: payload})
}

func (b *fakeBroadcaster) recorded() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastRecord(nil), b.events...)
}

type fixture struct {
	store      *memory.Store
	classifier *fakeClassifier
	flights    *fakeFlights
	hotels     *fakeHotels
	hub        *fakeBroadcaster
	orch       *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	cls := &fakeClassifier{decision: flightDecision()}
	flights := &fakeFlights{}
	hotels := &fakeHotels{}

	coord := NewCoordinator(cls, store, []Worker{
		NewFlightWorker(flights),
		NewHotelWorker(hotels),
		NewResearchWorker(fakeResearch{}, fakeResearch{}),
	}, discardLogger())

	cfg := config.Orchestrator{
		MaxActiveQueries: 8,
		StreamBuffer:     64,
		DrainTimeout:     2 * time.Second,
		RegistryTTL:      time.Minute,
		JanitorInterval:  time.Minute,
	}
	hub := &fakeBroadcaster{}
	orch := NewOrchestrator(cfg, NewRegistry(cfg.RegistryTTL), store, coord, nil, hub, nil, discardLogger())

	return &fixture{store: store, classifier: cls, flights: flights, hotels: hotels, hub: hub, orch: orch}
}

// collect drains the stream until it closes and returns all events.
func collect(t *testing.T, s *Stream) []event.Event {
	t.Helper()
	var events []event.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %v", types(events))
		}
	}
}

func types(events []event.Event) []event.Type {
	out := make([]event.Type, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// assertSubsequence checks that want appears in order within got.
func assertSubsequence(t *testing.T, got []event.Event, want ...event.Type) {
	t.Helper()
	i := 0
	for _, ev := range got {
		if i < len(want) && ev.Type == want[i] {
			i++
		}
	}
	if i != len(want) {
		t.Errorf("event sequence %v does not contain %v in order", types(got), want)
	}
}

func testRunContext(s *Stream, store *memory.Store, threadID string, decision travel.Decision) *RunContext {
	return &RunContext{
		QueryID:   s.QueryID(),
		ThreadID:  threadID,
		QueryText: "test query",
		Decision:  decision,
		Token:     query.NewCancelToken(),
		Partials:  make(map[string]json.RawMessage),
		stream:    s,
		store:     store,
	}
}
