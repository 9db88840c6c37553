package inference

import (
	"errors"
	"testing"
	"time"
)

func TestLatencyStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(100, false)
	stats.Record(200, false)
	stats.Record(300, false)
	stats.Record(400, false)
	stats.Record(500, false)

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLatencyStatsCountsErrorsSeparately(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(100, false)
	stats.Record(9000, true)

	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Errors != 1 {
		t.Fatalf("expected count=1 errors=1, got count=%d errors=%d", snap.Count, snap.Errors)
	}
	if snap.MaxMs != 100 {
		t.Fatalf("expected failed call to be excluded from latency, got max=%d", snap.MaxMs)
	}
}

func TestLatencyStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLatencyStats(10 * time.Millisecond)
	stats.Record(100, false)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200, false)
	snap = stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLatencyStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(-10, false)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestRegistryKeepsModelsApart(t *testing.T) {
	reg := NewRegistry(time.Hour)
	reg.record("qa", 50*time.Millisecond, nil)
	reg.record("qa", 150*time.Millisecond, nil)
	reg.record("polarity", 10*time.Millisecond, errors.New("boom"))

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 models, got %d", len(snap))
	}
	if snap["qa"].Count != 2 || snap["qa"].AvgMs != 100 {
		t.Fatalf("unexpected qa snapshot %+v", snap["qa"])
	}
	if snap["polarity"].Errors != 1 {
		t.Fatalf("unexpected polarity snapshot %+v", snap["polarity"])
	}

	var nilReg *Registry
	nilReg.record("qa", time.Second, nil) // must not panic
}
