package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/verte-zerg/cipherscore/internal/cipher"
	"github.com/verte-zerg/cipherscore/internal/metrics"
)

// DefaultMaxLengthMultiplier bounds ciphertext tokens relative to plaintext length.
const DefaultMaxLengthMultiplier = 2.0

// Status describes how a composite score was produced.
type Status string

const (
	// StatusScored means every metric was computed and weighted.
	StatusScored Status = "scored"
	// StatusDisqualified means the ciphertext exceeded the length bound.
	StatusDisqualified Status = "disqualified"
	// StatusFailed means a metric could not be computed.
	StatusFailed Status = "failed"
)

// Result is the outcome of scoring one cipher.
type Result struct {
	Score   float64
	Status  Status
	Summary metrics.Values
	// Err holds the metric failure when Status is StatusFailed.
	Err error
}

// Options tune a Scorer.
type Options struct {
	MaxLengthMultiplier float64
	ParallelMetrics     bool
	Logger              *slog.Logger
}

// Scorer applies a fixed weight table to metric values.
type Scorer struct {
	weights       Weights
	maxMultiplier float64
	parallel      bool
	logger        *slog.Logger
}

// NewScorer validates weights and returns a Scorer. A zero multiplier selects
// DefaultMaxLengthMultiplier.
func NewScorer(weights Weights, opts Options) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	multiplier := opts.MaxLengthMultiplier
	if multiplier == 0 {
		multiplier = DefaultMaxLengthMultiplier
	}
	if multiplier < 0 || math.IsNaN(multiplier) {
		return nil, fmt.Errorf("max length multiplier must be > 0, got %v", multiplier)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		weights:       weights.Clone(),
		maxMultiplier: multiplier,
		parallel:      opts.ParallelMetrics,
		logger:        logger,
	}, nil
}

// Weights returns a copy of the scorer's weight table.
func (s *Scorer) Weights() Weights {
	return s.weights.Clone()
}

// MaxLengthMultiplier returns the disqualification bound.
func (s *Scorer) MaxLengthMultiplier() float64 {
	return s.maxMultiplier
}

func (s *Scorer) withLogger(logger *slog.Logger) *Scorer {
	clone := *s
	clone.logger = logger
	return &clone
}

// Score evaluates in. Disqualified ciphers and metric failures score exactly
// 0; the summary still carries all fifteen raw values (NaN where a metric
// failed).
func (s *Scorer) Score(ctx context.Context, in *metrics.Input) Result {
	if Disqualified(in.Cipher, s.maxMultiplier) {
		s.logger.InfoContext(ctx, "cipher disqualified",
			"reason", "length",
			"tokens", in.Cipher.TokenCount(),
			"limit", lengthLimit(in.Cipher, s.maxMultiplier),
		)
		// Summary failures are expected for over-long ciphertext and do not
		// change the outcome.
		summary, _ := metrics.ComputeAll(ctx, in, s.parallel)
		return Result{Score: 0, Status: StatusDisqualified, Summary: summary}
	}

	summary, err := metrics.ComputeAll(ctx, in, s.parallel)
	if err != nil {
		attrs := []any{"error", err}
		var cerr *metrics.ComputationError
		if errors.As(err, &cerr) {
			attrs = append(attrs, "metric", cerr.Metric)
		}
		s.logger.WarnContext(ctx, "failed to calculate score", attrs...)
		return Result{Score: 0, Status: StatusFailed, Summary: summary, Err: err}
	}
	return Result{Score: s.weights.Apply(summary), Status: StatusScored, Summary: summary}
}

// Disqualified reports whether the ciphertext token count exceeds
// len(original) * multiplier.
func Disqualified(c *cipher.Cipher, multiplier float64) bool {
	return float64(c.TokenCount()) > lengthLimit(c, multiplier)
}

func lengthLimit(c *cipher.Cipher, multiplier float64) float64 {
	return float64(utf8.RuneCountInString(c.Original())) * multiplier
}
