// Package metrics scores how well a cipher's output hides the structure of
// its input. Every metric reads a cipher's state and returns a normalized
// value; several re-run encryption on private cipher instances.
package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/cipherscore/internal/cipher"
)

// StringSource supplies random plaintext for the randomness metric.
type StringSource interface {
	RandomString(n int) string
}

// Input is the read-only state shared by all metrics of one evaluation.
// Random is only used by the randomness metric, so metrics may run in
// parallel without synchronization.
type Input struct {
	Cipher      *cipher.Cipher
	PublicKey   cipher.PublicKey
	PrivateKey  cipher.PrivateKey
	RunningTime time.Duration
	Random      StringSource
}

// Func computes a single metric.
type Func func(in *Input) (float64, error)

// Values maps metric names to raw, unweighted values.
type Values map[string]float64

var registry = map[string]Func{
	UniqueChars:           uniqueChars,
	DistinctSequences:     distinctSequences,
	Entropy:               entropy,
	FrequencyAnalysis:     frequencyAnalysis,
	LengthConsistency:     lengthConsistency,
	Evenness:              evenness,
	Reversibility:         reversibility,
	ChangePropagation:     changePropagation,
	PatternAnalysis:       patternAnalysis,
	CorrelationAnalysis:   correlationAnalysis,
	Complexity:            complexity,
	Randomness:            randomness,
	NormalizedLevenshtein: normalizedLevenshtein,
	EncryptionConsistency: encryptionConsistency,
	RunningTime:           runningTime,
}

// Compute evaluates one metric by name. Failures, including panics inside
// the metric, are wrapped in a *ComputationError.
func Compute(name string, in *Input) (v float64, err error) {
	fn, ok := registry[name]
	if !ok {
		return math.NaN(), &ComputationError{Metric: name, Err: fmt.Errorf("unknown metric")}
	}
	defer func() {
		if r := recover(); r != nil {
			v = math.NaN()
			err = &ComputationError{Metric: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	v, err = fn(in)
	if err != nil {
		return math.NaN(), &ComputationError{Metric: name, Err: err}
	}
	return v, nil
}

// ComputeAll evaluates every metric. The returned Values always holds all
// fifteen names; a failed metric is recorded as NaN and the first failure is
// returned. With parallel set, metrics run on separate goroutines.
func ComputeAll(ctx context.Context, in *Input, parallel bool) (Values, error) {
	results := make([]float64, len(Names))
	var g errgroup.Group
	if !parallel {
		g.SetLimit(1)
	}
	for i, name := range Names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = math.NaN()
				return err
			}
			v, err := Compute(name, in)
			results[i] = v
			return err
		})
	}
	err := g.Wait()

	values := make(Values, len(Names))
	for i, name := range Names {
		values[name] = results[i]
	}
	return values, err
}
