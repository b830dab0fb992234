package report

import (
	"math"
	"testing"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4}, 2)
	want := []float64{1, 1.5, 2.5, 3.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if got := MovingAverage([]float64{4, 5}, 1); got[0] != 4 || got[1] != 5 {
		t.Fatalf("expected copy for window 1, got %v", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0, 1}); got != " @" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
}

func TestSpreadSkipsNaN(t *testing.T) {
	s := spread([]float64{0.2, math.NaN(), 0.6})
	if s.count != 2 || math.Abs(s.mean-0.4) > 1e-9 || s.min != 0.2 || s.max != 0.6 {
		t.Fatalf("unexpected spread: %+v", s)
	}
	if s := spread([]float64{math.NaN()}); s.count != 0 || !math.IsNaN(s.mean) {
		t.Fatalf("expected empty spread, got %+v", s)
	}
}
