// Package ml talks to the external scoring oracle. The policy is fail-open:
// any network failure, timeout or non-2xx response yields a neutral result
// so the heuristic pipeline keeps running without the oracle.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// EvaluateRequest is the payload POSTed to /evaluate_setup.
type EvaluateRequest struct {
	Instrument string         `json:"instrument"`
	Timeframe  string         `json:"timeframe"`
	StrategyID string         `json:"strategy_id"`
	Features   map[string]any `json:"features"`
}

// Adjustments are optional per-setup overrides returned by the oracle.
type Adjustments struct {
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	MinRR         *float64 `json:"min_rr,omitempty"`
}

// EvaluateResult is the oracle's verdict. Score is on a 0-100 scale.
type EvaluateResult struct {
	Score       float64     `json:"ml_score"`
	Blacklisted bool        `json:"blacklisted"`
	Reason      string      `json:"reason"`
	Adjustments Adjustments `json:"parameter_adjustments"`
}

// Neutral is the fail-open fallback result.
func Neutral() EvaluateResult {
	return EvaluateResult{}
}

// Client calls the ML oracle with rate limiting and a short bounded retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates an oracle client. An empty base URL disables it.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  log.With().Str("component", "ml_client").Logger(),
	}
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Evaluate scores a trade setup. It never returns an error to the caller;
// failures are logged and collapse to the neutral result.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) EvaluateResult {
	if !c.Enabled() {
		return Neutral()
	}

	body, err := c.post(ctx, c.baseURL+"/evaluate_setup", req)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("instrument", req.Instrument).
			Str("strategy", req.StrategyID).
			Msg("oracle unavailable, using neutral score")
		return Neutral()
	}

	var result EvaluateResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn().Err(err).Msg("oracle response unparseable, using neutral score")
		return Neutral()
	}
	return result
}

// Reload asks the oracle to reload its model. Used by operator tooling.
func (c *Client) Reload(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("ml advisor is disabled")
	}
	body, err := c.post(ctx, c.baseURL+"/reload", struct{}{})
	if err != nil {
		return "", fmt.Errorf("reload request: %w", err)
	}
	var resp struct {
		Message string `json:"message"`
		Mode    string `json:"mode"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing reload response: %w", err)
	}
	return fmt.Sprintf("%s (mode: %s)", resp.Message, resp.Mode), nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("non-2xx status code: %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.httpClient.Timeout
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	return body, nil
}
