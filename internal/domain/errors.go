package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors shared across the extraction, answering and classification pipelines.
var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrModelInference       = errors.New("model inference error")
	ErrInvalidInput         = errors.New("invalid input")
)

// NoConfidentAnswer is returned in place of an answer when no candidate clears the confidence floor.
const NoConfidentAnswer = "I couldn't find a confident answer in the document."

// WrapInference makes err match ErrModelInference, leaving it unchanged if it already does.
// Context cancellation is passed through untouched.
func WrapInference(err error) error {
	if err == nil || errors.Is(err, ErrModelInference) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrModelInference, err)
}
