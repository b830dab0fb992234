package scoring

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/cipherscore/internal/cipher"
	"github.com/verte-zerg/cipherscore/internal/metrics"
	"github.com/verte-zerg/cipherscore/internal/samples"
)

func seededKeys(seed int64) KeyFunc {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(seed))
	return func() (cipher.PublicKey, cipher.PrivateKey, error) {
		mu.Lock()
		defer mu.Unlock()
		return cipher.GenerateKeysFrom(rnd)
	}
}

func encryptedInput(t *testing.T, original string, seed int64) *metrics.Input {
	t.Helper()
	pub, priv, err := seededKeys(seed)()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	c := cipher.New(original)
	if err := c.Encrypt(pub); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return &metrics.Input{
		Cipher:      c,
		PublicKey:   pub,
		PrivateKey:  priv,
		RunningTime: 5 * time.Millisecond,
		Random:      samples.NewSeeded(seed),
	}
}

func newTestScorer(t *testing.T, weights Weights, logger *slog.Logger) *Scorer {
	t.Helper()
	s, err := NewScorer(weights, Options{MaxLengthMultiplier: 2.0, ParallelMetrics: true, Logger: logger})
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	return s
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}

	missing := DefaultWeights()
	delete(missing, metrics.Entropy)
	unknown := DefaultWeights()
	unknown["speed"] = 1
	negative := DefaultWeights()
	negative[metrics.Evenness] = -0.5
	nan := DefaultWeights()
	nan[metrics.Complexity] = math.NaN()

	tests := []struct {
		name    string
		weights Weights
		detail  string
	}{
		{"missing", missing, "missing: entropy"},
		{"unknown", unknown, "unknown: speed"},
		{"negative", negative, "evenness"},
		{"nan", nan, "complexity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if !errors.Is(err, ErrInvalidWeights) {
				t.Fatalf("expected ErrInvalidWeights, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Fatalf("expected %q in %q", tt.detail, err.Error())
			}
		})
	}
}

func TestNewScorerOptions(t *testing.T) {
	if _, err := NewScorer(DefaultWeights(), Options{MaxLengthMultiplier: -1}); err == nil {
		t.Fatalf("expected error for negative multiplier")
	}
	s, err := NewScorer(DefaultWeights(), Options{})
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	if s.MaxLengthMultiplier() != DefaultMaxLengthMultiplier {
		t.Fatalf("expected default multiplier, got %v", s.MaxLengthMultiplier())
	}
	w := DefaultWeights()
	s, _ = NewScorer(w, Options{})
	w[metrics.Entropy] = 99
	if s.Weights()[metrics.Entropy] != 1.5 {
		t.Fatalf("scorer must not alias the caller's weight table")
	}
}

func TestScoreHelloWorldAcrossKeys(t *testing.T) {
	s := newTestScorer(t, DefaultWeights(), nil)
	for seed := int64(1); seed <= 20; seed++ {
		res := s.Score(context.Background(), encryptedInput(t, "Hello, World!", seed))
		if res.Status != StatusScored {
			t.Fatalf("seed %d: expected scored, got %s (%v)", seed, res.Status, res.Err)
		}
		if len(res.Summary) != len(metrics.Names) {
			t.Fatalf("seed %d: expected %d summary values, got %d", seed, len(metrics.Names), len(res.Summary))
		}
		if res.Summary[metrics.Reversibility] != 1 {
			t.Fatalf("seed %d: expected reversibility 1, got %v", seed, res.Summary[metrics.Reversibility])
		}
		if res.Summary[metrics.EncryptionConsistency] != 1 {
			t.Fatalf("seed %d: expected encryption consistency 1, got %v", seed, res.Summary[metrics.EncryptionConsistency])
		}
		// The sign depends on the key: pattern_analysis goes far below zero
		// when the digit string repeats more than the plaintext does.
		if math.IsInf(res.Score, 0) || math.IsNaN(res.Score) {
			t.Fatalf("seed %d: expected finite score, got %v", seed, res.Score)
		}
		if got := s.Weights().Apply(res.Summary); math.Abs(got-res.Score) > 1e-9 {
			t.Fatalf("seed %d: summary and score disagree: %v vs %v", seed, got, res.Score)
		}
	}
}

func TestScoreReversibilityOnly(t *testing.T) {
	weights := Weights{}
	for _, name := range metrics.Names {
		weights[name] = 0
	}
	weights[metrics.Reversibility] = 1
	s := newTestScorer(t, weights, nil)

	for i, original := range []string{"Hello, World!", "1234567890", "A string with spaces    between     words"} {
		in := encryptedInput(t, original, int64(i+1))
		res := s.Score(context.Background(), in)
		if res.Score != res.Summary[metrics.Reversibility] {
			t.Fatalf("expected score %v to equal reversibility %v", res.Score, res.Summary[metrics.Reversibility])
		}
		if res.Score != 1 {
			t.Fatalf("expected reversible encryption, got %v", res.Score)
		}
	}

	// A tampered ciphertext decrypts to something else.
	in := encryptedInput(t, "Hi", 9)
	tampered, err := cipher.Encrypt("Ho", in.PublicKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	in.Cipher.SetEncrypted(tampered)
	res := s.Score(context.Background(), in)
	if res.Score != 0 || res.Summary[metrics.Reversibility] != 0 {
		t.Fatalf("expected zero for tampered ciphertext, got %v", res.Score)
	}
}

func TestScoreDisqualified(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScorer(t, DefaultWeights(), bufferLogger(&buf))
	in := encryptedInput(t, "ab", 3)
	in.Cipher.SetEncrypted(in.Cipher.Encrypted() + " " + in.Cipher.Encrypted() + " 7")
	if !Disqualified(in.Cipher, 2.0) {
		t.Fatalf("expected 5 tokens to exceed 2*2")
	}
	res := s.Score(context.Background(), in)
	if res.Status != StatusDisqualified || res.Score != 0 {
		t.Fatalf("expected disqualified zero score, got %s %v", res.Status, res.Score)
	}
	if res.Err != nil {
		t.Fatalf("disqualification is not an error: %v", res.Err)
	}
	if len(res.Summary) != len(metrics.Names) {
		t.Fatalf("summary must still hold every metric")
	}
	if !strings.Contains(buf.String(), "reason=length") {
		t.Fatalf("expected disqualification log, got %q", buf.String())
	}
}

func TestScoreDisqualifiedBeforeMetricFailures(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScorer(t, DefaultWeights(), bufferLogger(&buf))
	c := cipher.New("a")
	c.SetEncrypted("1 2 3")
	res := s.Score(context.Background(), &metrics.Input{Cipher: c, Random: samples.NewSeeded(1)})
	if res.Status != StatusDisqualified || res.Score != 0 || res.Err != nil {
		t.Fatalf("expected clean disqualification, got %s %v %v", res.Status, res.Score, res.Err)
	}
	if !math.IsNaN(res.Summary[metrics.Reversibility]) {
		t.Fatalf("expected NaN reversibility without keys, got %v", res.Summary[metrics.Reversibility])
	}
	if strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("disqualification must not be logged as a failure: %q", buf.String())
	}
}

func TestScoreWithoutKeys(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScorer(t, DefaultWeights(), bufferLogger(&buf))
	c := cipher.New("ab")
	c.SetEncrypted("5 7")
	res := s.Score(context.Background(), &metrics.Input{Cipher: c, Random: samples.NewSeeded(1)})
	if res.Status != StatusFailed || res.Score != 0 {
		t.Fatalf("expected failed zero score, got %s %v", res.Status, res.Score)
	}
	if !errors.Is(res.Err, cipher.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", res.Err)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
}

func TestEvaluatorRejectsIncompleteKeys(t *testing.T) {
	s := newTestScorer(t, DefaultWeights(), nil)
	keys := func() (cipher.PublicKey, cipher.PrivateKey, error) {
		return cipher.PublicKey{}, cipher.PrivateKey{}, nil
	}
	ev := NewEvaluator(s, EvaluatorOptions{Workers: 1, Keys: keys})
	if _, err := ev.Run(context.Background(), []string{"abc"}); !errors.Is(err, cipher.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestDisqualifiedBoundary(t *testing.T) {
	c := cipher.New("ab")
	c.SetEncrypted("1 2 3 4")
	if Disqualified(c, 2.0) {
		t.Fatalf("exactly 2x tokens is allowed")
	}
	c.SetEncrypted("1 2 3 4 5")
	if !Disqualified(c, 2.0) {
		t.Fatalf("more than 2x tokens must be disqualified")
	}
}

func TestScoreMetricFailure(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScorer(t, DefaultWeights(), bufferLogger(&buf))
	in := encryptedInput(t, "", 4)
	res := s.Score(context.Background(), in)
	if res.Status != StatusFailed || res.Score != 0 {
		t.Fatalf("expected failed zero score, got %s %v", res.Status, res.Score)
	}
	var cerr *metrics.ComputationError
	if !errors.As(res.Err, &cerr) {
		t.Fatalf("expected ComputationError, got %v", res.Err)
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "metric="+cerr.Metric) {
		t.Fatalf("expected warning log naming the metric, got %q", buf.String())
	}
}

func TestEvaluatorRun(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf)
	s := newTestScorer(t, DefaultWeights(), logger)
	ev := NewEvaluator(s, EvaluatorOptions{Workers: 2, Seed: 17, Keys: seededKeys(17), Logger: logger})

	inputs := []string{"Hello, World!", "", "Short string"}
	results, err := ev.Run(context.Background(), inputs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		if r.Position != i+1 || r.Original != inputs[i] {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
		if len(r.Metrics) != len(metrics.Names) {
			t.Fatalf("result %d missing metrics", i)
		}
	}
	if !results[0].DecryptionOK || results[0].Status != string(StatusScored) || results[0].Score <= 0 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].DecryptionOK || results[1].DecryptError == "" {
		t.Fatalf("empty input must not decrypt: %+v", results[1])
	}
	if results[1].Status != string(StatusFailed) || results[1].Score != 0 || results[1].Error == "" {
		t.Fatalf("empty input should fail scoring: %+v", results[1])
	}
	if !results[2].DecryptionOK || results[2].Status != string(StatusScored) {
		t.Fatalf("unexpected third result: %+v", results[2])
	}
	if !strings.Contains(buf.String(), "position=2") {
		t.Fatalf("expected failure log tagged with position, got %q", buf.String())
	}
}

func TestEvaluatorKeyFailure(t *testing.T) {
	s := newTestScorer(t, DefaultWeights(), nil)
	boom := errors.New("no entropy")
	ev := NewEvaluator(s, EvaluatorOptions{
		Workers: 1,
		Keys: func() (cipher.PublicKey, cipher.PrivateKey, error) {
			return cipher.PublicKey{}, cipher.PrivateKey{}, boom
		},
	})
	if _, err := ev.Run(context.Background(), []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("expected key generation error, got %v", err)
	}
}

func TestEvaluatorCanceled(t *testing.T) {
	s := newTestScorer(t, DefaultWeights(), nil)
	ev := NewEvaluator(s, EvaluatorOptions{Workers: 1, Keys: seededKeys(1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ev.Run(ctx, []string{"a", "b"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
