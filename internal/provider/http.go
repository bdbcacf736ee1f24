package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/history"
)

// HTTPConfig holds configuration for the HTTP decision service client.
type HTTPConfig struct {
	// BaseURL is the decision service address, e.g. "http://127.0.0.1:9000".
	// Required.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// MaxRetries is the maximum number of retry attempts for retryable
	// errors. Defaults to 2 if zero. Retries stay inside the caller's
	// context deadline; the coordinator bounds the total wall time.
	MaxRetries int

	// BaseRetryDelay is the initial delay before the first retry.
	// Defaults to 1 second if zero.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff delay.
	// Defaults to 5 seconds if zero.
	MaxRetryDelay time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for
	// testing). Defaults to a client with a 90s timeout: decisions are
	// legitimately slow.
	HTTPClient *http.Client
}

// HTTPProvider talks to a decision service over JSON HTTP. It
// implements Provider and history.Summarizer.
type HTTPProvider struct {
	cfg    HTTPConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewHTTP creates an HTTP decision service client.
func NewHTTP(cfg HTTPConfig, logger zerolog.Logger) *HTTPProvider {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = time.Second
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &HTTPProvider{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With().Str("component", "provider").Str("kind", "http").Logger(),
	}
}

type decideRequest struct {
	Snapshot gamestate.Snapshot `json:"snapshot"`
	Context  string             `json:"context"`
}

type summarizeRequest struct {
	Turns string `json:"turns"`
}

type summarizeResponse struct {
	Digest string `json:"digest"`
}

// Decide requests one decision for the given snapshot and context.
func (p *HTTPProvider) Decide(ctx context.Context, snap gamestate.Snapshot, contextText string) (Decision, error) {
	body, err := p.doRequestWithRetry(ctx, "decide", decideRequest{
		Snapshot: snap,
		Context:  contextText,
	})
	if err != nil {
		return Decision{}, err
	}
	return ParseDecision(body)
}

// SummarizeTurns asks the service to reduce a stretch of turns to a
// short digest.
func (p *HTTPProvider) SummarizeTurns(ctx context.Context, turns []history.Turn) (string, error) {
	body, err := p.doRequestWithRetry(ctx, "summarize", summarizeRequest{
		Turns: describeTurns(turns),
	})
	if err != nil {
		return "", err
	}
	var resp summarizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("provider: invalid summarize response: %w", err)
	}
	if strings.TrimSpace(resp.Digest) == "" {
		return "", fmt.Errorf("provider: summarize response missing digest")
	}
	return resp.Digest, nil
}

// doRequest sends a single POST request and returns the raw body.
func (p *HTTPProvider) doRequest(ctx context.Context, path string, body any) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(p.cfg.BaseURL, "/"), strings.TrimPrefix(path, "/"))

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("provider: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider: read response: %w", err)
	}

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "API key rejected"}
	}
	if resp.StatusCode != 200 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// doRequestWithRetry sends a request with automatic retry on retryable
// errors.
func (p *HTTPProvider) doRequestWithRetry(ctx context.Context, path string, body any) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay(attempt)
			p.logger.Debug().Int("attempt", attempt).Dur("delay", delay).Str("path", path).Msg("retrying provider request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := p.doRequest(ctx, path, body)
		if err != nil {
			lastErr = err
			if httpErr, ok := err.(*HTTPError); ok && httpErr.IsRetryable() {
				continue
			}
			// Auth errors and transport errors fail immediately.
			return nil, err
		}
		return resp, nil
	}

	return nil, fmt.Errorf("provider: max retries exceeded: %w", lastErr)
}

// retryDelay calculates the backoff delay for a given attempt number.
func (p *HTTPProvider) retryDelay(attempt int) time.Duration {
	delay := p.cfg.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > p.cfg.MaxRetryDelay {
		delay = p.cfg.MaxRetryDelay
	}
	return delay
}
