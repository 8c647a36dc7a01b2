package service

import (
	"context"
	"encoding/json"

	"github.com/voyago/voyago/internal/domain/event"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/port/searchprovider"
)

const (
	toolSearchAttractions = "search_attractions"
	toolWebSearch         = "web_search"
)

// ResearchWorker answers informational queries. Attraction questions go to
// the attractions provider; everything else goes to web search. Research is
// a single worker and never runs alongside flight or hotel.
type ResearchWorker struct {
	attractions searchprovider.AttractionSearcher
	web         searchprovider.WebSearcher
}

// NewResearchWorker creates the research worker.
func NewResearchWorker(attractions searchprovider.AttractionSearcher, web searchprovider.WebSearcher) *ResearchWorker {
	return &ResearchWorker{attractions: attractions, web: web}
}

func (w *ResearchWorker) Name() travel.Agent { return travel.AgentResearch }

func (w *ResearchWorker) Run(ctx context.Context, rc *RunContext) Outcome {
	if err := rc.Checkpoint(ctx, w.Name(), StageEntry); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	attractions := travel.IsAttractionQuery(rc.QueryText) && rc.Decision.Details.Destination != ""
	tool := toolWebSearch
	if attractions {
		tool = toolSearchAttractions
	}

	rc.Emit(event.ToolStart(rc.QueryID, string(w.Name()), tool))
	if err := rc.Checkpoint(ctx, w.Name(), StagePreCall); err != nil {
		return Errored(err)
	}
	if rc.Token.Cancelled() {
		return Interrupted(rc.Token.Reason())
	}

	var (
		result *travel.ResearchResult
		err    error
	)
	if attractions {
		result, err = w.attractions.SearchAttractions(ctx, searchprovider.AttractionParams{
			Location: rc.Decision.Details.Destination,
		})
	} else {
		result, err = w.web.SearchWeb(ctx, searchprovider.WebSearchParams{
			Query: rc.QueryText,
			Limit: 5,
		})
	}

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

	rc.Emit(event.ToolComplete(rc.QueryID, string(w.Name()), tool))
	msg := result.Render()
	rc.Emit(event.AgentMessage(rc.QueryID, string(w.Name()), msg))

	return Complete(result, msg)
}
