package travelapi

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

type attractionWire struct {
	Data struct {
		Attractions []struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			Rating      float64 `json:"rating"`
			Reviews     int     `json:"reviews"`
			Duration    string  `json:"duration"`
			Description string  `json:"description"`
			Price       *struct {
				Amount   float64 `json:"amount"`
				Currency string  `json:"currency"`
			} `json:"price"`
		} `json:"attractions"`
	} `json:"data"`
}

// SearchAttractions queries the attractions provider and maps the response.
func (c *Client) SearchAttractions(ctx context.Context, p searchprovider.AttractionParams) (*travel.ResearchResult, error) {
	params := url.Values{}
	params.Set("location", p.Location)

	var wire attractionWire
	if err := c.get(ctx, "attractions", c.cfg.AttractionsURL, params, &wire); err != nil {
		return nil, err
	}

	result := &travel.ResearchResult{
		Query:      p.Location,
		Location:   p.Location,
		SearchedAt: time.Now().UTC(),
	}
	for _, a := range wire.Data.Attractions {
		opt := travel.AttractionOption{
			ID:          a.ID,
			Name:        a.Name,
			Rating:      a.Rating,
			Reviews:     a.Reviews,
			Duration:    a.Duration,
			Description: a.Description,
		}
		if a.Price != nil {
			opt.Price = &travel.Price{Amount: a.Price.Amount, Currency: a.Price.Currency}
		}
		result.Attractions = append(result.Attractions, opt)
	}
	return result, nil
}

type webSearchWire struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
		Source  string `json:"source"`
	} `json:"results"`
}

// SearchWeb queries the web search provider and maps the response.
func (c *Client) SearchWeb(ctx context.Context, p searchprovider.WebSearchParams) (*travel.ResearchResult, error) {
	params := url.Values{}
	params.Set("q", p.Query)
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}

	var wire webSearchWire
	if err := c.get(ctx, "websearch", c.cfg.WebSearchURL, params, &wire); err != nil {
		return nil, err
	}

	result := &travel.ResearchResult{
		Query:      p.Query,
		SearchedAt: time.Now().UTC(),
	}
	for _, r := range wire.Results {
		result.Findings = append(result.Findings, travel.ResearchFinding{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Source:  r.Source,
		})
	}
	return result, nil
}
