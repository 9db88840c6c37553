package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docsense/internal/domain"
)

// ClassifierClient calls a text classification model.
type ClassifierClient struct {
	*endpoint
}

func NewClassifierClient(cfg EndpointConfig) *ClassifierClient {
	if cfg.Name == "" {
		cfg.Name = "classifier"
	}
	return &ClassifierClient{endpoint: newEndpoint(cfg)}
}

type classifyRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Classify returns every label with its score for text.
func (c *ClassifierClient) Classify(ctx context.Context, text string) ([]domain.LabelScore, error) {
	body, err := c.post(ctx, classifyRequest{
		Inputs:     text,
		Parameters: map[string]any{"top_k": nil},
	})
	if err != nil {
		return nil, err
	}
	scores, err := decodeLabels(body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", c.name, domain.WrapInference(err))
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%s: no labels returned: %w", c.name, domain.ErrModelInference)
	}
	return scores, nil
}

// decodeLabels accepts [{label,score}...] or [[{label,score}...]] (one list per input).
func decodeLabels(body []byte) ([]domain.LabelScore, error) {
	body = bytes.TrimSpace(body)
	var nested [][]domain.LabelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []domain.LabelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, err
	}
	return flat, nil
}
