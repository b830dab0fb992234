package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/verte-zerg/cipherscore/internal/cipher"
	"github.com/verte-zerg/cipherscore/internal/metrics"
	"github.com/verte-zerg/cipherscore/internal/model"
	"github.com/verte-zerg/cipherscore/internal/samples"
)

// KeyFunc produces a fresh keypair. It must be safe for concurrent use.
type KeyFunc func() (cipher.PublicKey, cipher.PrivateKey, error)

// EvaluatorOptions configure an Evaluator.
type EvaluatorOptions struct {
	// Workers bounds concurrent evaluations; 0 uses GOMAXPROCS.
	Workers int
	// Seed makes the randomness metric reproducible; 0 seeds from the clock.
	Seed   int64
	Keys   KeyFunc
	Logger *slog.Logger
}

// Evaluator pushes samples through key generation, encryption, decryption
// and scoring.
type Evaluator struct {
	scorer  *Scorer
	workers int
	seed    int64
	keys    KeyFunc
	logger  *slog.Logger
}

// NewEvaluator returns an Evaluator that scores with scorer.
func NewEvaluator(scorer *Scorer, opts EvaluatorOptions) *Evaluator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	keys := opts.Keys
	if keys == nil {
		keys = cipher.GenerateKeys
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		scorer:  scorer,
		workers: workers,
		seed:    opts.Seed,
		keys:    keys,
		logger:  logger,
	}
}

// Run evaluates every input and returns the results in input order. A single
// bad input never aborts the batch; only pool or key generation failures do.
func (e *Evaluator) Run(ctx context.Context, inputs []string) ([]model.Evaluation, error) {
	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]model.Evaluation, len(inputs))
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, original := range inputs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = e.evaluate(ctx, i+1, original)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to submit evaluation: %w", submitErr)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (e *Evaluator) evaluate(ctx context.Context, position int, original string) (model.Evaluation, error) {
	logger := e.logger.With("position", position)
	c := cipher.New(original)

	start := time.Now()
	pub, priv, err := e.keys()
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("failed to generate keys for input %d: %w", position, err)
	}
	if err := c.Encrypt(pub); err != nil {
		return model.Evaluation{}, fmt.Errorf("failed to encrypt input %d: %w", position, err)
	}
	elapsed := time.Since(start)

	eval := model.Evaluation{
		Position:    position,
		Original:    original,
		Encrypted:   c.Encrypted(),
		RunningTime: elapsed,
	}
	decrypted, err := c.Decrypt(priv)
	if err != nil {
		eval.DecryptError = err.Error()
		logger.DebugContext(ctx, "decryption failed", "error", err)
	}
	eval.Decrypted = decrypted
	eval.DecryptionOK = err == nil && decrypted == original

	res := e.scorer.withLogger(logger).Score(ctx, &metrics.Input{
		Cipher:      c,
		PublicKey:   pub,
		PrivateKey:  priv,
		RunningTime: elapsed,
		Random:      e.randomSource(position),
	})
	eval.Score = res.Score
	eval.Status = string(res.Status)
	if res.Err != nil {
		eval.Error = res.Err.Error()
	}
	eval.Metrics = res.Summary
	return eval, nil
}

func (e *Evaluator) randomSource(position int) *samples.Generator {
	if e.seed == 0 {
		return samples.New()
	}
	return samples.NewSeeded(e.seed + int64(position))
}
