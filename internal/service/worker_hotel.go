package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

const toolSearchHotels = "search_hotels"

// defaultStayNights is the stay length assumed when the query gives only
// an arrival date.
const defaultStayNights = 2

// HotelWorker searches for hotels through the hotel provider. When a flight
// result is already present in the query's partial results, the search is
// chained off it: the flight destination becomes the hotel location and the
// flight date becomes check-in.
type HotelWorker struct {
	provider searchprovider.HotelSearcher
}

// NewHotelWorker creates the hotel worker.
func NewHotelWorker(provider searchprovider.HotelSearcher) *HotelWorker {
	return &HotelWorker{provider: provider}
}

func (w *HotelWorker) Name() travel.Agent { return travel.AgentHotel }

func (w *HotelWorker) Run(ctx context.Context, rc *RunContext) Outcome {
	if err := rc.Checkpoint(ctx, w.Name(), StageEntry); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	params := w.params(rc)

	rc.Emit(event.ToolStart(rc.QueryID, string(w.Name()), toolSearchHotels))
	if err := rc.Checkpoint(ctx, w.Name(), StagePreCall); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	result, err := w.provider.SearchHotels(ctx, params)

	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}
	if err != nil {
		return Errored(err)
	}

	data, encErr := json.Marshal(result)
	if encErr != nil {
		return Errored(encErr)
	}
	rc.Partials[string(w.Name())] = data
	if err := rc.Checkpoint(ctx, w.Name(), StagePostCall); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	rc.Emit(event.ToolComplete(rc.QueryID, string(w.Name()), toolSearchHotels))
	msg := result.Render()
	rc.Emit(event.AgentMessage(rc.QueryID, string(w.Name()), msg))

	return Complete(result, msg)
}

// params builds the hotel search from the routing decision, overridden by
// the flight partial when one exists.
func (w *HotelWorker) params(rc *RunContext) searchprovider.HotelParams {
	p := searchprovider.HotelParams{
		Location: rc.Decision.Details.Destination,
		CheckIn:  rc.Decision.Details.Dates,
		Guests:   rc.Decision.Details.Passengers,
	}
	if p.Guests < 1 {
		p.Guests = 1
	}

	if raw, ok := rc.Partials[string(travel.AgentFlight)]; ok {
		var fr travel.FlightResult
		if err := json.Unmarshal(raw, &fr); err == nil {
			if fr.Destination != "" {
				p.Location = fr.Destination
			}
			if fr.Date != "" {
				p.CheckIn = fr.Date
			}
		}
	}

	if t, err := time.Parse("2006-01-02", p.CheckIn); err == nil {
		p.CheckOut = t.AddDate(0, 0, defaultStayNights).Format("2006-01-02")
	}
	return p
}
