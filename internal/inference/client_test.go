package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docsense/internal/domain"
)

func TestQAClient_Answer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hf-token" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		var req qaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Inputs.Question != "Who?" || req.Inputs.Context != "The cat sat." {
			t.Errorf("unexpected inputs %+v", req.Inputs)
		}
		if req.Parameters.TopK != 3 || req.Parameters.MaxAnswerLen != 64 {
			t.Errorf("unexpected parameters %+v", req.Parameters)
		}
		_, _ = w.Write([]byte(`[{"answer":"The cat","start":0,"end":7,"score":0.81},{"answer":"cat","start":4,"end":7,"score":0.12}]`))
	}))
	defer server.Close()

	stats := NewRegistry(time.Hour)
	c := NewQAClient(EndpointConfig{URL: server.URL, Token: "hf-token", Stats: stats})
	defer c.Close()

	spans, err := c.Answer(context.Background(), "Who?", "The cat sat.", 3, 64)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0] != (domain.AnswerSpan{Text: "The cat", Start: 0, End: 7, Score: 0.81}) {
		t.Errorf("unexpected first span %+v", spans[0])
	}
	if stats.Snapshot()["qa"].Count != 1 {
		t.Errorf("expected one recorded call, got %+v", stats.Snapshot())
	}
}

func TestDecodeSpans(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"single object", `{"answer":"x","start":1,"end":2,"score":0.5}`, 1, false},
		{"array", `[{"answer":"x","start":1,"end":2,"score":0.5}]`, 1, false},
		{"empty array", `[]`, 0, false},
		{"empty object", `{}`, 0, false},
		{"garbage", `not json`, 0, true},
		{"empty body", ``, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spans, err := decodeSpans([]byte(tc.body))
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if len(spans) != tc.want {
				t.Errorf("expected %d spans, got %d", tc.want, len(spans))
			}
		})
	}
}

func TestClassifierClient_Classify(t *testing.T) {
	bodies := map[string]string{
		"nested": `[[{"label":"POSITIVE","score":0.9},{"label":"NEGATIVE","score":0.1}]]`,
		"flat":   `[{"label":"POSITIVE","score":0.9},{"label":"NEGATIVE","score":0.1}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req classifyRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.Inputs != "great answer" {
					t.Errorf("unexpected inputs %q", req.Inputs)
				}
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			c := NewClassifierClient(EndpointConfig{Name: "polarity", URL: server.URL})
			scores, err := c.Classify(context.Background(), "great answer")
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if len(scores) != 2 || scores[0].Label != "POSITIVE" || scores[0].Score != 0.9 {
				t.Fatalf("unexpected scores %+v", scores)
			}
		})
	}
}

func TestClassifierClient_EmptyLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClassifierClient(EndpointConfig{URL: server.URL})
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, domain.ErrModelInference) {
		t.Fatalf("expected ErrModelInference, got %v", err)
	}
}

func TestEndpoint_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
	}))
	defer server.Close()

	stats := NewRegistry(time.Hour)
	c := NewQAClient(EndpointConfig{URL: server.URL, Stats: stats})
	_, err := c.Answer(context.Background(), "q", "c", 1, 10)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Message != "Model is currently loading" {
		t.Errorf("unexpected status error %+v", statusErr)
	}
	if !errors.Is(err, domain.ErrModelInference) {
		t.Error("expected StatusError to match ErrModelInference")
	}
	if stats.Snapshot()["qa"].Errors != 1 {
		t.Errorf("expected failed call to be recorded, got %+v", stats.Snapshot())
	}
}

func TestEndpoint_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewQAClient(EndpointConfig{URL: url, Timeout: time.Second})
	if _, err := c.Answer(context.Background(), "q", "c", 1, 10); !errors.Is(err, domain.ErrModelInference) {
		t.Fatalf("expected ErrModelInference, got %v", err)
	}
}

func TestGate_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewQAClient(EndpointConfig{URL: server.URL, Gate: NewGate("qa", 1)})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Answer(context.Background(), "q", "c", 1, 10); err != nil {
				t.Errorf("Answer failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Fatalf("expected at most one request in flight, got %d", peak)
	}
}

func TestGate_AcquireHonoursContext(t *testing.T) {
	g := NewGate("test", 1)
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGate_NilIsUnbounded(t *testing.T) {
	g := NewGate("test", 0)
	if g != nil {
		t.Fatal("expected nil gate for n=0")
	}
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()
	if g.Capacity() != 0 {
		t.Errorf("expected capacity 0, got %d", g.Capacity())
	}
}
