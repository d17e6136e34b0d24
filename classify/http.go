// ABOUTME: HTTP classification gateway for self-hosted classifier services
// ABOUTME: POSTs the request as JSON and returns the response body as the payload
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig holds HTTP gateway configuration.
type HTTPConfig struct {
	// Endpoint receives POSTed requests. Required.
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration
}

type HTTPGateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPGateway(config HTTPConfig) (*HTTPGateway, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &HTTPGateway{
		endpoint: config.Endpoint,
		apiKey:   config.APIKey,
		client:   &http.Client{Timeout: config.Timeout},
	}, nil
}

type httpEnvelope struct {
	Request
	Prompt string `json:"prompt"`
}

func (g *HTTPGateway) Classify(ctx context.Context, req Request) ([]byte, error) {
	body, err := json.Marshal(httpEnvelope{Request: req, Prompt: Prompt(req)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, AsFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, AsFailure(fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{Reason: ReasonTransport, Err: fmt.Errorf("classifier returned status %d", resp.StatusCode)}
	}
	return []byte(trimFence(string(payload))), nil
}
