package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/docsense/internal/domain"
	"github.com/dgallion1/docsense/internal/metrics"
)

// EndpointConfig describes one hosted model reachable over HTTP using the
// Hugging Face inference JSON format.
type EndpointConfig struct {
	Name    string // Label used in metrics and stats.
	URL     string
	Token   string // Optional bearer token.
	Timeout time.Duration
	Gate    *Gate
	Stats   *Registry
}

type endpoint struct {
	name       string
	url        string
	token      string
	httpClient *http.Client
	gate       *Gate
	stats      *Registry
}

func newEndpoint(cfg EndpointConfig) *endpoint {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &endpoint{
		name:  cfg.Name,
		url:   cfg.URL,
		token: cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		gate:  cfg.Gate,
		stats: cfg.Stats,
	}
}

// post sends payload and returns the raw JSON body of a 200 reply.
func (e *endpoint) post(ctx context.Context, payload any) (body json.RawMessage, err error) {
	release, err := e.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	defer func() {
		d := time.Since(start)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.InferenceRequestsTotal.WithLabelValues(e.name, status).Inc()
		metrics.InferenceRequestDuration.WithLabelValues(e.name).Observe(d.Seconds())
		e.stats.record(e.name, d, err)
	}()

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, domain.WrapInference(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", e.name, domain.WrapInference(err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			Model:      e.name,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}
	return respBody, nil
}

// errorMessage pulls the "error" field out of an error reply, falling back to the raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(bytes.TrimSpace(body))
}

// Close releases idle connections.
func (e *endpoint) Close() {
	e.httpClient.CloseIdleConnections()
}
