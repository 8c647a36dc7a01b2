// Package travelapi implements the search provider ports against external
// travel data HTTP APIs.
package travelapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voyago/voyago/internal/adapter/otel"
	"github.com/voyago/voyago/internal/config"
	"github.com/voyago/voyago/internal/port/cache"
	"github.com/voyago/voyago/internal/port/searchprovider"
	"github.com/voyago/voyago/internal/resilience"
)

// Client is the shared HTTP client for all travel providers. Every call
// goes through the concurrency pool, the circuit breaker, and a per-call
// timeout; successful responses are cached by request signature.
type Client struct {
	cfg        config.Travel
	httpClient *http.Client
	breaker    *resilience.Breaker
	pool       *Pool
	cache      cache.Cache
	metrics    *otel.Metrics
	log        *slog.Logger
}

// NewClient creates a provider client. cache may be nil to disable caching.
func NewClient(cfg config.Travel, breaker *resilience.Breaker, pool *Pool, c cache.Cache, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		breaker:    breaker,
		pool:       pool,
		cache:      c,
		log:        log,
	}
}

// SetMetrics attaches metric instruments; failed provider calls are counted.
func (c *Client) SetMetrics(m *otel.Metrics) {
	c.metrics = m
}

func (c *Client) countFailure(ctx context.Context, provider string, err error) {
	if c.metrics == nil {
		return
	}
	var ue *searchprovider.UpstreamError
	if !errors.As(err, &ue) {
		return
	}
	c.metrics.UpstreamFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", string(ue.Kind)),
	))
}

// get fetches a provider endpoint and decodes the JSON response into out.
// Failures are classified as UpstreamError; there are no retries here.
func (c *Client) get(ctx context.Context, provider, rawURL string, params url.Values, out any) error {
	key := cacheKey(provider, params)
	if c.cache != nil {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if err := json.Unmarshal(data, out); err == nil {
				return nil
			}
		}
	}

	spanCtx, span := otel.StartProviderSpan(ctx, provider)
	defer span.End()
	ctx = spanCtx

	var body []byte
	err := c.pool.Run(ctx, func() error {
		call := func() error {
			var err error
			body, err = c.fetch(ctx, provider, rawURL, params)
			return err
		}
		if c.breaker != nil {
			return c.breaker.Execute(call)
		}
		return call()
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = &searchprovider.UpstreamError{Kind: searchprovider.KindUnavailable, Provider: provider, Err: err}
		}
		c.countFailure(ctx, provider, err)
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		uerr := &searchprovider.UpstreamError{Kind: searchprovider.KindBadResponse, Provider: provider, Err: err}
		c.countFailure(ctx, provider, uerr)
		return uerr
	}

	if c.cache != nil && c.cfg.CacheTTL > 0 {
		_ = c.cache.Set(ctx, key, body, c.cfg.CacheTTL)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, provider, rawURL string, params url.Values) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, provider, err)
	}

	c.log.Debug("provider call", "provider", provider, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &searchprovider.UpstreamError{
			Kind: searchprovider.KindUnavailable, Provider: provider,
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		return nil, &searchprovider.UpstreamError{
			Kind: searchprovider.KindBadResponse, Provider: provider,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}
	return body, nil
}

// classifyTransport maps transport failures to upstream error kinds.
// A caller-cancelled context is passed through unchanged so cancellation
// is never mistaken for a provider timeout.
func classifyTransport(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &searchprovider.UpstreamError{Kind: searchprovider.KindTimeout, Provider: provider, Err: err}
	}
	return &searchprovider.UpstreamError{Kind: searchprovider.KindUnavailable, Provider: provider, Err: err}
}

func cacheKey(provider string, params url.Values) string {
	return provider + ":" + params.Encode()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
