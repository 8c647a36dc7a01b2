package travel

import (
	"fmt"
	"strings"
	"time"
)

// Price is a monetary amount with its currency code.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (p Price) String() string {
	return fmt.Sprintf("%.0f %s", p.Amount, p.Currency)
}

// FlightOption is one flight itinerary returned by the flight provider.
type FlightOption struct {
	ID           string `json:"id"`
	Airline      string `json:"airline"`
	FlightNumber string `json:"flight_number,omitempty"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	DepartTime   string `json:"depart_time"`
	ArriveTime   string `json:"arrive_time"`
	Duration     string `json:"duration,omitempty"`
	Price        Price  `json:"price"`
	Stops        int    `json:"stops"`
}

// FlightResult is the flight worker's structured output.
type FlightResult struct {
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Date        string         `json:"date"`
	Options     []FlightOption `json:"options"`
	SearchedAt  time.Time      `json:"searched_at"`
}

// Render formats the result as the flight worker's chat message.
func (r FlightResult) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flights from %s to %s on %s:\n", r.Origin, r.Destination, r.Date)
	if len(r.Options) == 0 {
		b.WriteString("No flights found for this route.")
		return b.String()
	}
	for i, opt := range r.Options {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s %s | %s -> %s | %s | stops: %d\n",
			opt.Airline, opt.Price, opt.DepartTime, opt.ArriveTime, opt.Duration, opt.Stops)
	}
	return strings.TrimRight(b.String(), "\n")
}
