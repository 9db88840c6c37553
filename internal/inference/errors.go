package inference

import (
	"fmt"

	"github.com/dgallion1/docsense/internal/domain"
)

// StatusError is a non-200 reply from a model endpoint.
type StatusError struct {
	Model      string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Model, e.StatusCode, truncate(e.Message, 200))
}

// Unwrap makes every StatusError match domain.ErrModelInference.
func (e *StatusError) Unwrap() error {
	return domain.ErrModelInference
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
