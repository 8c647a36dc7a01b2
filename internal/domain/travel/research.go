package travel

import (
	"fmt"
	"strings"
	"time"
)

// ResearchFinding is one web search hit used by the research worker.
type ResearchFinding struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// AttractionOption is one attraction returned by the attractions provider.
type AttractionOption struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating,omitempty"`
	Reviews     int     `json:"reviews,omitempty"`
	Price       *Price  `json:"price,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ResearchResult is the research worker's structured output. Exactly one of
// Findings or Attractions is populated depending on the query kind.
type ResearchResult struct {
	Query       string             `json:"query"`
	Location    string             `json:"location,omitempty"`
	Findings    []ResearchFinding  `json:"findings,omitempty"`
	Attractions []AttractionOption `json:"attractions,omitempty"`
	SearchedAt  time.Time          `json:"searched_at"`
}

// Render formats the result as the research worker's chat message.
func (r ResearchResult) Render() string {
	var b strings.Builder
	if len(r.Attractions) > 0 {
		fmt.Fprintf(&b, "Top attractions in %s:\n", r.Location)
		for i, a := range r.Attractions {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s", a.Name)
			if a.Rating > 0 {
				fmt.Fprintf(&b, " | %.1f stars", a.Rating)
			}
			if a.Price != nil {
				fmt.Fprintf(&b, " | from %s", *a.Price)
			}
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("Here's what I found about your travel query:\n")
	if len(r.Findings) == 0 {
		b.WriteString("No results found.")
		return b.String()
	}
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "- %s\n  %s\n", f.Title, f.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}
