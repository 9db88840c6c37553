package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dgallion1/docsense/internal/domain"
	"github.com/dgallion1/docsense/internal/metrics"
)

// refineSeed pins sampling so repeated refinements of the same sentence agree.
const refineSeed = 42

// RefinerConfig holds the generative model settings.
type RefinerConfig struct {
	Name      string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Gate      *Gate
	Stats     *Registry
}

// Refiner rewrites text through an OpenAI-compatible chat completion API.
type Refiner struct {
	client    *openai.Client
	name      string
	model     string
	maxTokens int
	gate      *Gate
	stats     *Registry
}

func NewRefiner(cfg RefinerConfig) *Refiner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "refiner"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 128
	}
	return &Refiner{
		client:    openai.NewClientWithConfig(clientCfg),
		name:      name,
		model:     cfg.Model,
		maxTokens: maxTokens,
		gate:      cfg.Gate,
		stats:     cfg.Stats,
	}
}

// Refine returns the model's completion for prompt using greedy decoding.
func (r *Refiner) Refine(ctx context.Context, prompt string) (out string, err error) {
	release, err := r.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	defer func() {
		d := time.Since(start)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.InferenceRequestsTotal.WithLabelValues(r.name, status).Inc()
		metrics.InferenceRequestDuration.WithLabelValues(r.name).Observe(d.Seconds())
		r.stats.record(r.name, d, err)
	}()

	seed := refineSeed
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: r.maxTokens,
		// A zero temperature is dropped from the request body, so use the
		// smallest positive value instead.
		Temperature: math.SmallestNonzeroFloat32,
		TopP:        1,
		N:           1,
		Seed:        &seed,
	})
	if err != nil {
		return "", parseAPIError(r.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion: %w", r.name, domain.ErrModelInference)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseAPIError extracts a readable message from an OpenAI-compatible error
// and wraps it with domain.ErrModelInference.
func parseAPIError(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrap := domain.ErrModelInference

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = truncate(string(reqErr.Body), 200)
		}
		return fmt.Errorf("%s API error %d: %s: %w", name, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", name, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", name, err, wrap)
}

// extractDetail reads the "detail" field some OpenAI-compatible servers use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
