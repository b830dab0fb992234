package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/cipherscore/internal/model"
)

func sampleEvaluations() []model.Evaluation {
	return []model.Evaluation{
		{
			Position:     1,
			Original:     "Hello, World!",
			Encrypted:    strings.Repeat("123456789 ", 30),
			Decrypted:    "Hello, World!",
			DecryptionOK: true,
			RunningTime:  1500 * time.Microsecond,
			Score:        4.25,
			Status:       "scored",
			Metrics:      map[string]float64{"reversibility": 1, "entropy": 0.5},
		},
		{
			Position:     2,
			Original:     "a\tb",
			Encrypted:    "9 9 9 9 9 9 9",
			DecryptError: "decrypt token 0: invalid",
			RunningTime:  time.Millisecond,
			Status:       "disqualified",
			Metrics:      map[string]float64{"reversibility": math.NaN(), "entropy": 0.1},
		},
	}
}

func TestRenderRSAResults(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderRSAResults(&buf, sampleEvaluations(), 120); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Test No.", "Decryption Success", "Hello, World!", "<error>", "a b", "0.0015s", "Average score: 0.5000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("123456789 ", 30)) {
		t.Fatalf("expected long ciphertext to be truncated")
	}
}

func TestRenderRSAResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderRSAResults(&buf, nil, 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No evaluations.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderScoresAndSummary(t *testing.T) {
	var buf bytes.Buffer
	evals := sampleEvaluations()
	if err := RenderScores(&buf, evals, 0); err != nil {
		t.Fatalf("render scores: %v", err)
	}
	weights := map[string]float64{"reversibility": 10, "entropy": 1.5}
	if err := RenderMetricSummary(&buf, evals, weights); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"4.2500", "disqualified", "Metric Summary"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	var reversibility string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "reversibility") {
			reversibility = line
		}
	}
	fields := strings.Fields(reversibility)
	// name, weight, mean, min, max, failed
	if len(fields) != 6 || fields[1] != "10" || fields[2] != "1.0000" || fields[5] != "1" {
		t.Fatalf("unexpected reversibility row: %q", reversibility)
	}
}

func TestRenderEvaluation(t *testing.T) {
	var buf bytes.Buffer
	ev := sampleEvaluations()[1]
	if err := RenderEvaluation(&buf, ev, map[string]float64{"entropy": 2}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Status: disqualified", "Decryption: decrypt token 0", "0.2000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
