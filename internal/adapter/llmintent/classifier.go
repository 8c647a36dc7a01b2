// Package llmintent implements the classifier port against an
// OpenAI-compatible chat completions endpoint.
package llmintent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/voyago/voyago/internal/config"
	"github.com/voyago/voyago/internal/domain/thread"
	"github.com/voyago/voyago/internal/domain/travel"
	"github.com/voyago/voyago/internal/resilience"
)

const systemPrompt = `You are a travel request router. Classify the user's request into exactly one intent:
- "flight": flight search only
- "hotel": hotel search only
- "flight_and_hotel": both flight and hotel
- "research": destination research, attractions, or general travel questions

Respond with JSON only: {"intent": "...", "confidence": 0.0, "details": {"origin": "", "destination": "", "dates": "", "passengers": 1}, "reasoning": "..."}`

// Classifier calls a chat completions model to classify travel intent,
// falling back to keyword matching on any upstream failure.
type Classifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
	log        *slog.Logger
}

// New creates a classifier from config.
func New(cfg config.Classifier, log *slog.Logger) *Classifier {
	return &Classifier{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Classifier) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify asks the model for an intent decision. Upstream failure or an
// unparsable reply degrades to the keyword classifier rather than failing
// the query.
func (c *Classifier) Classify(ctx context.Context, query string, history []thread.Message) (travel.Decision, error) {
	if err := ctx.Err(); err != nil {
		return travel.Decision{}, err
	}
	if c.baseURL == "" {
		return keywordDecision(query), nil
	}

	decision, err := c.classifyLLM(ctx, query, history)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return travel.Decision{}, ctxErr
		}
		c.log.Warn("llm classification failed, using keyword fallback", "error", err)
		return keywordDecision(query), nil
	}
	return decision, nil
}

func (c *Classifier) classifyLLM(ctx context.Context, query string, history []thread.Message) (travel.Decision, error) {
	msgs := []chatMessage{{Role: "system", Content: systemPrompt}}
	// Only recent history matters for routing.
	start := len(history) - 6
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		role := "assistant"
		if m.Author == thread.AuthorUser {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: query})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0,
	})
	if err != nil {
		return travel.Decision{}, fmt.Errorf("marshal chat request: %w", err)
	}

	data, err := c.doRequest(ctx, body)
	if err != nil {
		return travel.Decision{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return travel.Decision{}, fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return travel.Decision{}, fmt.Errorf("chat response has no choices")
	}

	decision, err := parseDecision(resp.Choices[0].Message.Content)
	if err != nil {
		return travel.Decision{}, err
	}
	return decision, nil
}

func (c *Classifier) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("classifier API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

// parseDecision extracts the JSON decision from model output, tolerating
// surrounding prose and markdown fences.
func parseDecision(content string) (travel.Decision, error) {
	raw := extractJSON(content)
	if raw == "" {
		return travel.Decision{}, fmt.Errorf("no JSON object in model output")
	}

	var d travel.Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return travel.Decision{}, fmt.Errorf("parse decision: %w", err)
	}
	if !d.Intent.Valid() {
		return travel.Decision{}, fmt.Errorf("unknown intent %q", d.Intent)
	}
	return d, nil
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func keywordDecision(query string) travel.Decision {
	intent := travel.KeywordIntent(query)
	return travel.Decision{
		Intent:     intent,
		Confidence: 0.5,
		Reasoning:  "keyword fallback",
	}
}
