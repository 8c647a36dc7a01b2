package travelapi

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

type hotelWire struct {
	Data struct {
		Hotels []struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Rating    float64  `json:"rating"`
			Reviews   int      `json:"reviews_count"`
			RoomType  string   `json:"room_type"`
			Image     string   `json:"image_url"`
			Distance  string   `json:"distance_from_center"`
			Amenities []string `json:"amenities"`
			Price     struct {
				Amount   float64 `json:"amount"`
				Currency string  `json:"currency"`
			} `json:"price_per_night"`
		} `json:"hotels"`
	} `json:"data"`
}

// SearchHotels queries the hotel provider and maps the response.
func (c *Client) SearchHotels(ctx context.Context, p searchprovider.HotelParams) (*travel.HotelResult, error) {
	params := url.Values{}
	params.Set("location", p.Location)
	params.Set("checkin", p.CheckIn)
	params.Set("checkout", p.CheckOut)
	if p.Guests > 0 {
		params.Set("guests", strconv.Itoa(p.Guests))
	}

	var wire hotelWire
	if err := c.get(ctx, "hotels", c.cfg.HotelsURL, params, &wire); err != nil {
		return nil, err
	}

	result := &travel.HotelResult{
		Location:   p.Location,
		CheckIn:    p.CheckIn,
		CheckOut:   p.CheckOut,
		SearchedAt: time.Now().UTC(),
	}
	for _, h := range wire.Data.Hotels {
		result.Options = append(result.Options, travel.HotelOption{
			ID:                 h.ID,
			Name:               h.Name,
			Location:           p.Location,
			Rating:             h.Rating,
			ReviewsCount:       h.Reviews,
			RoomType:           h.RoomType,
			ImageURL:           h.Image,
			DistanceFromCenter: h.Distance,
			Amenities:          h.Amenities,
			PricePerNight:      travel.Price{Amount: h.Price.Amount, Currency: h.Price.Currency},
		})
	}
	return result, nil
}
