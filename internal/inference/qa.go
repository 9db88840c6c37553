package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docsense/internal/domain"
)

// QAClient calls an extractive question-answering model.
type QAClient struct {
	*endpoint
}

func NewQAClient(cfg EndpointConfig) *QAClient {
	if cfg.Name == "" {
		cfg.Name = "qa"
	}
	return &QAClient{endpoint: newEndpoint(cfg)}
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaParameters struct {
	TopK         int `json:"top_k,omitempty"`
	MaxAnswerLen int `json:"max_answer_len,omitempty"`
}

type qaRequest struct {
	Inputs     qaInputs     `json:"inputs"`
	Parameters qaParameters `json:"parameters"`
}

// Answer returns up to topK spans of passage answering question. Offsets are
// character offsets into passage as reported by the model.
func (c *QAClient) Answer(ctx context.Context, question, passage string, topK, maxAnswerLen int) ([]domain.AnswerSpan, error) {
	body, err := c.post(ctx, qaRequest{
		Inputs:     qaInputs{Question: question, Context: passage},
		Parameters: qaParameters{TopK: topK, MaxAnswerLen: maxAnswerLen},
	})
	if err != nil {
		return nil, err
	}
	spans, err := decodeSpans(body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", c.name, domain.WrapInference(err))
	}
	return spans, nil
}

// decodeSpans accepts a single answer object (top_k=1) or an array of them.
func decodeSpans(body []byte) ([]domain.AnswerSpan, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if body[0] == '[' {
		var spans []domain.AnswerSpan
		if err := json.Unmarshal(body, &spans); err != nil {
			return nil, err
		}
		return spans, nil
	}
	var span domain.AnswerSpan
	if err := json.Unmarshal(body, &span); err != nil {
		return nil, err
	}
	if span.Text == "" && span.Start == 0 && span.End == 0 {
		return nil, nil
	}
	return []domain.AnswerSpan{span}, nil
}
