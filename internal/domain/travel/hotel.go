package travel

import (
	"fmt"
	"strings"
	"time"
)

// HotelOption is one property returned by the hotel provider.
type HotelOption struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Location           string   `json:"location"`
	Rating             float64  `json:"rating"`
	ReviewsCount       int      `json:"reviews_count,omitempty"`
	PricePerNight      Price    `json:"price_per_night"`
	Amenities          []string `json:"amenities,omitempty"`
	RoomType           string   `json:"room_type,omitempty"`
	ImageURL           string   `json:"image_url,omitempty"`
	DistanceFromCenter string   `json:"distance_from_center,omitempty"`
}

// HotelResult is the hotel worker's structured output.
type HotelResult struct {
	Location   string        `json:"location"`
	CheckIn    string        `json:"check_in"`
	CheckOut   string        `json:"check_out"`
	Options    []HotelOption `json:"options"`
	SearchedAt time.Time     `json:"searched_at"`
}

// Render formats the result as the hotel worker's chat message.
func (r HotelResult) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hotels in %s for %s to %s:\n", r.Location, r.CheckIn, r.CheckOut)
	if len(r.Options) == 0 {
		b.WriteString("No hotels found for this location.")
		return b.String()
	}
	for i, opt := range r.Options {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s | %.1f stars | %s/night | %s\n",
			opt.Name, opt.Rating, opt.PricePerNight, opt.RoomType)
	}
	return strings.TrimRight(b.String(), "\n")
}
