// Package report renders evaluation results and history as console text.
package report

import (
	"math"
	"strings"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// metricSpread summarizes finite values; NaNs from failed metrics are skipped.
type metricSpread struct {
	count          int
	mean, min, max float64
}

func spread(values []float64) metricSpread {
	s := metricSpread{min: math.Inf(1), max: math.Inf(-1)}
	total := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		s.count++
		total += v
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	if s.count == 0 {
		return metricSpread{mean: math.NaN(), min: math.NaN(), max: math.NaN()}
	}
	s.mean = total / float64(s.count)
	return s
}
