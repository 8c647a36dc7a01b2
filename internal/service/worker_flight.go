package service

import (
	"context"
	"encoding/json"

	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

const toolSearchFlights = "search_flights"

// FlightWorker searches for flights through the flight provider.
type FlightWorker struct {
	provider searchprovider.FlightSearcher
}

// NewFlightWorker creates the flight worker.
func NewFlightWorker(provider searchprovider.FlightSearcher) *FlightWorker {
	return &FlightWorker{provider: provider}
}

func (w *FlightWorker) Name() travel.Agent { return travel.AgentFlight }

func (w *FlightWorker) Run(ctx context.Context, rc *RunContext) Outcome {
	if err := rc.Checkpoint(ctx, w.Name(), StageEntry); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	params := searchprovider.FlightParams{
		Origin:      rc.Decision.Details.Origin,
		Destination: rc.Decision.Details.Destination,
		Date:        rc.Decision.Details.Dates,
		Passengers:  rc.Decision.Details.Passengers,
	}
	if params.Passengers < 1 {
		params.Passengers = 1
	}

	rc.Emit(event.ToolStart(rc.QueryID, string(w.Name()), toolSearchFlights))
	if err := rc.Checkpoint(ctx, w.Name(), StagePreCall); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	result, err := w.provider.SearchFlights(ctx, params)

	// Cancellation observed after the call wins over whatever it returned.
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

	rc.Emit(event.ToolComplete(rc.QueryID, string(w.Name()), toolSearchFlights))
	msg := result.Render()
	rc.Emit(event.AgentMessage(rc.QueryID, string(w.Name()), msg))

	return Complete(result, msg)
}
