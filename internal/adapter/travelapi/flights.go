package travelapi

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

type flightWire struct {
	Data struct {
		Flights []struct {
			ID       string `json:"id"`
			Airline  string `json:"airline"`
			Number   string `json:"flight_number"`
			Depart   string `json:"departure_time"`
			Arrive   string `json:"arrival_time"`
			Duration string `json:"duration"`
			Stops    int    `json:"stops"`
			Price    struct {
				Amount   float64 `json:"amount"`
				Currency string  `json:"currency"`
			} `json:"price"`
		} `json:"flights"`
	} `json:"data"`
}

// SearchFlights queries the flight provider and maps the response.
func (c *Client) SearchFlights(ctx context.Context, p searchprovider.FlightParams) (*travel.FlightResult, error) {
	params := url.Values{}
	params.Set("from", p.Origin)
	params.Set("to", p.Destination)
	params.Set("date", p.Date)
	if p.Passengers > 0 {
		params.Set("adults", strconv.Itoa(p.Passengers))
	}

	var wire flightWire
	if err := c.get(ctx, "flights", c.cfg.FlightsURL, params, &wire); err != nil {
		return nil, err
	}

	result := &travel.FlightResult{
		Origin:      p.Origin,
		Destination: p.Destination,
		Date:        p.Date,
		SearchedAt:  time.Now().UTC(),
	}
	for _, f := range wire.Data.Flights {
		result.Options = append(result.Options, travel.FlightOption{
			ID:           f.ID,
			Airline:      f.Airline,
			FlightNumber: f.Number,
			Origin:       p.Origin,
			Destination:  p.Destination,
			DepartTime:   f.Depart,
			ArriveTime:   f.Arrive,
			Duration:     f.Duration,
			Stops:        f.Stops,
			Price:        travel.Price{Amount: f.Price.Amount, Currency: f.Price.Currency},
		})
	}
	return result, nil
}
