package inference

import (
	"context"

	"github.com/dgallion1/docsense/internal/metrics"
)

// Gate bounds the number of concurrent calls into one model. A nil Gate
// admits everything.
type Gate struct {
	name  string
	slots chan struct{}
}

// NewGate returns a gate admitting at most n concurrent calls, or nil when
// n <= 0 (unbounded).
func NewGate(name string, n int) *Gate {
	if n <= 0 {
		return nil
	}
	return &Gate{name: name, slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func must be called exactly once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	select {
	case g.slots <- struct{}{}:
		return g.release, nil
	default:
	}

	waiting := metrics.InferenceWaiting.WithLabelValues(g.name)
	waiting.Inc()
	defer waiting.Dec()

	select {
	case g.slots <- struct{}{}:
		return g.release, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gate) release() {
	<-g.slots
}

// Capacity returns the gate's size, 0 meaning unbounded.
func (g *Gate) Capacity() int {
	if g == nil {
		return 0
	}
	return cap(g.slots)
}
