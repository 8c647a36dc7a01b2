// Package searchprovider defines the ports for external travel data providers.
package searchprovider

import (
	"context"
	"fmt"

	"github.com/voyago/voyago/internal/domain/travel"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
	KindBadResponse ErrorKind = "bad_response"
)

// UpstreamError describes a failed call to an external provider.
// Providers surface these directly; retries are the caller's decision.
type UpstreamError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("upstream %s: %s", e.Provider, e.Kind)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// FlightParams are the inputs for a flight search.
type FlightParams struct {
	Origin      string
	Destination string
	Date        string
	Passengers  int
}

// HotelParams are the inputs for a hotel search.
type HotelParams struct {
	Location string
	CheckIn  string
	CheckOut string
	Guests   int
}

// AttractionParams are the inputs for an attraction search.
type AttractionParams struct {
	Location string
}

// WebSearchParams are the inputs for a general web search.
type WebSearchParams struct {
	Query string
	Limit int
}

// FlightSearcher searches for flight options.
type FlightSearcher interface {
	SearchFlights(ctx context.Context, p FlightParams) (*travel.FlightResult, error)
}

// HotelSearcher searches for hotel options.
type HotelSearcher interface {
	SearchHotels(ctx context.Context, p HotelParams) (*travel.HotelResult, error)
}

// AttractionSearcher searches for attractions at a destination.
type AttractionSearcher interface {
	SearchAttractions(ctx context.Context, p AttractionParams) (*travel.ResearchResult, error)
}

// WebSearcher performs a general web search for travel research.
type WebSearcher interface {
	SearchWeb(ctx context.Context, p WebSearchParams) (*travel.ResearchResult, error)
}
