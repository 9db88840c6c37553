package chunker

import (
	"fmt"
)

// Config controls chunking behavior. Sizes are in characters (runes).
type Config struct {
	ChunkSize       int     // Largest window handed to the model.
	OverlapFraction float64 // Share of each window repeated in the next one.
	MinOverlap      int     // Floor on the overlap, e.g. the longest expected answer.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       2000,
		OverlapFraction: 0.2,
	}
}

// Validate rejects configurations that cannot make forward progress.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.OverlapFraction < 0 || c.OverlapFraction >= 1 {
		return fmt.Errorf("overlap fraction must be in [0, 1), got %g", c.OverlapFraction)
	}
	if c.MinOverlap < 0 {
		return fmt.Errorf("min overlap must not be negative, got %d", c.MinOverlap)
	}
	if c.MinOverlap > c.ChunkSize/2 {
		return fmt.Errorf("min overlap %d exceeds half the chunk size %d", c.MinOverlap, c.ChunkSize)
	}
	return nil
}

// Overlap returns the number of characters shared by consecutive windows.
// It is always strictly less than ChunkSize. MinOverlap counts for at most
// half a window, so the step never shrinks below ChunkSize/2 however large
// the answer budget.
func (c Config) Overlap() int {
	o := int(float64(c.ChunkSize) * c.OverlapFraction)
	floor := c.MinOverlap
	if half := c.ChunkSize / 2; floor > half {
		floor = half
	}
	if o < floor {
		o = floor
	}
	if o >= c.ChunkSize {
		o = c.ChunkSize - 1
	}
	if o < 0 {
		o = 0
	}
	return o
}

// Step is the distance between the starts of consecutive windows.
func (c Config) Step() int {
	return c.ChunkSize - c.Overlap()
}

// Window is a slice of the context with its global offset.
// Start and End are rune offsets into the full text.
type Window struct {
	Start int
	End   int
	Text  string
}

// Split breaks text into overlapping windows that together cover every
// character. A text that fits in one window yields exactly one window at 0.
// The final window ends exactly at the end of the text.
func Split(text string, cfg Config) []Window {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.OverlapFraction < 0 || cfg.OverlapFraction >= 1 {
		cfg.OverlapFraction = DefaultConfig().OverlapFraction
	}

	runes := []rune(text)
	n := len(runes)
	if n <= cfg.ChunkSize {
		return []Window{{Start: 0, End: n, Text: text}}
	}

	step := cfg.Step()
	windows := make([]Window, 0, (n-cfg.ChunkSize)/step+2)
	for start := 0; ; start += step {
		end := start + cfg.ChunkSize
		if end > n {
			end = n
		}
		windows = append(windows, Window{Start: start, End: end, Text: string(runes[start:end])})
		if end == n {
			break
		}
	}
	return windows
}
