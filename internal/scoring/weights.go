// Package scoring combines metric values into a weighted composite score.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/cipherscore/internal/metrics"
)

// ErrInvalidWeights is returned for weight tables that do not cover exactly
// the fifteen metrics with non-negative values.
var ErrInvalidWeights = errors.New("invalid weight table")

// Weights maps metric names to non-negative weights.
type Weights map[string]float64

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		metrics.UniqueChars:           0.1,
		metrics.DistinctSequences:     1.0,
		metrics.Entropy:               1.5,
		metrics.FrequencyAnalysis:     0.1,
		metrics.LengthConsistency:     0.5,
		metrics.Evenness:              1.2,
		metrics.Reversibility:         2.0,
		metrics.ChangePropagation:     1.5,
		metrics.PatternAnalysis:       1.5,
		metrics.CorrelationAnalysis:   1.5,
		metrics.Complexity:            1.0,
		metrics.Randomness:            1.5,
		metrics.NormalizedLevenshtein: 1.0,
		metrics.EncryptionConsistency: 2.0,
		metrics.RunningTime:           0.5,
	}
}

// Validate checks that w names every metric exactly once with a finite,
// non-negative weight.
func (w Weights) Validate() error {
	var unknown, missing, negative []string
	for name, v := range w {
		if !metrics.IsKnown(name) {
			unknown = append(unknown, name)
			continue
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			negative = append(negative, name)
		}
	}
	for _, name := range metrics.Names {
		if _, ok := w[name]; !ok {
			missing = append(missing, name)
		}
	}
	var problems []string
	if len(unknown) > 0 {
		sort.Strings(unknown)
		problems = append(problems, "unknown: "+strings.Join(unknown, ", "))
	}
	if len(missing) > 0 {
		problems = append(problems, "missing: "+strings.Join(missing, ", "))
	}
	if len(negative) > 0 {
		sort.Strings(negative)
		problems = append(problems, "negative or non-finite: "+strings.Join(negative, ", "))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w (%s)", ErrInvalidWeights, strings.Join(problems, "; "))
	}
	return nil
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Apply returns the weighted sum of values.
func (w Weights) Apply(values metrics.Values) float64 {
	total := 0.0
	for _, name := range metrics.Names {
		total += w[name] * values[name]
	}
	return total
}
