// Package travel defines the travel planning domain: intents, worker
// identities, and the structured result types carried end-to-end by the
// coordinator.
package travel

import "strings"

// Agent identifies an event source on the stream.
type Agent string

const (
	AgentCoordinator Agent = "coordinator"
	AgentFlight      Agent = "flight"
	AgentHotel       Agent = "hotel"
	AgentResearch    Agent = "research"
)

// Intent is the closed set of routing decisions the coordinator can make.
// A query is either transactional (flight/hotel) or informational (research),
// decided once during routing.
type Intent string

const (
	IntentFlight         Intent = "flight"
	IntentHotel          Intent = "hotel"
	IntentFlightAndHotel Intent = "flight_and_hotel"
	IntentResearch       Intent = "research"
)

// Valid reports whether the intent is a member of the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentFlight, IntentHotel, IntentFlightAndHotel, IntentResearch:
		return true
	}
	return false
}

// Workers returns the dispatch sequence for the intent. Flight always
// precedes hotel so the hotel search can reuse the flight destination.
func (i Intent) Workers() []Agent {
	switch i {
	case IntentFlight:
		return []Agent{AgentFlight}
	case IntentHotel:
		return []Agent{AgentHotel}
	case IntentFlightAndHotel:
		return []Agent{AgentFlight, AgentHotel}
	default:
		return []Agent{AgentResearch}
	}
}

// Details holds the parameters the classifier extracted from the query.
type Details struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Dates       string `json:"dates,omitempty"`
	Passengers  int    `json:"passengers,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Decision is the routing decision produced by an intent classifier.
type Decision struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Details    Details `json:"details"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

var (
	flightKeywords     = []string{"flight", "fly", "airline", "airport", "plane ticket"}
	hotelKeywords      = []string{"hotel", "stay", "accommodation", "lodge", "hostel", "resort"}
	attractionKeywords = []string{"attraction", "things to do", "places to visit", "sightseeing"}
)

// KeywordIntent classifies a query by keyword matching. It is the fallback
// used when the LLM classifier is unavailable, and mirrors its tie-break:
// flight+hotel keywords together mean FlightAndHotel, anything unmatched is
// research.
func KeywordIntent(text string) Intent {
	lower := strings.ToLower(text)

	hasFlight := containsAny(lower, flightKeywords)
	hasHotel := containsAny(lower, hotelKeywords)

	switch {
	case hasFlight && hasHotel:
		return IntentFlightAndHotel
	case hasFlight:
		return IntentFlight
	case hasHotel:
		return IntentHotel
	default:
		return IntentResearch
	}
}

// IsAttractionQuery reports whether the text asks about attractions.
// Attraction queries are informational and handled by the research worker
// through the attractions provider instead of web search.
func IsAttractionQuery(text string) bool {
	return containsAny(strings.ToLower(text), attractionKeywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
