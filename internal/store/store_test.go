package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/cipherscore/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "cipherscore.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleRun(started time.Time, scores ...float64) model.Run {
	run := model.Run{StartedAt: started, MaxLengthMultiplier: 2, Seed: 7}
	for i, score := range scores {
		status := "scored"
		if score == 0 {
			status = "failed"
		}
		run.Evaluations = append(run.Evaluations, model.Evaluation{
			Position:     i + 1,
			Original:     "ab",
			Encrypted:    "11 22",
			Decrypted:    "ab",
			DecryptionOK: score > 0,
			RunningTime:  15 * time.Millisecond,
			Score:        score,
			Status:       status,
			Metrics: map[string]float64{
				"reversibility": 1,
				"entropy":       score / 10,
				"complexity":    math.NaN(),
			},
		})
	}
	return run
}

func TestInsertAndListEvaluations(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.InsertRun(ctx, sampleRun(time.Unix(100, 0), 5, 0))
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated run id")
	}

	evals, err := st.ListEvaluations(ctx, id)
	if err != nil {
		t.Fatalf("list evaluations: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(evals))
	}
	first := evals[0]
	if first.Position != 1 || first.Score != 5 || !first.DecryptionOK || first.RunningTime != 15*time.Millisecond {
		t.Fatalf("unexpected first evaluation: %+v", first)
	}
	if first.Metrics["entropy"] != 0.5 || first.Metrics["reversibility"] != 1 {
		t.Fatalf("unexpected metrics: %v", first.Metrics)
	}
	if !math.IsNaN(first.Metrics["complexity"]) {
		t.Fatalf("expected NaN to survive as NULL, got %v", first.Metrics["complexity"])
	}
	if evals[1].Status != "failed" || evals[1].DecryptionOK {
		t.Fatalf("unexpected second evaluation: %+v", evals[1])
	}
}

func TestListRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run := sampleRun(time.Unix(0, 0).Add(time.Duration(i)*time.Hour), float64(i+1), 0)
		run.ID = []string{"run-a", "run-b", "run-c"}[i]
		id, err := st.InsertRun(ctx, run)
		if err != nil {
			t.Fatalf("insert run: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := st.ListRuns(ctx, model.HistoryConfig{Last: 2})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[1] || runs[1].ID != ids[2] {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	last := runs[1]
	if last.Evaluations != 2 || last.Decrypted != 1 || last.Failed != 1 || last.Disqualified != 0 {
		t.Fatalf("unexpected aggregate: %+v", last)
	}
	if last.MeanScore != 1.5 {
		t.Fatalf("expected mean score 1.5, got %v", last.MeanScore)
	}

	since := time.Unix(0, 0).Add(90 * time.Minute)
	runs, err = st.ListRuns(ctx, model.HistoryConfig{Since: &since})
	if err != nil {
		t.Fatalf("list runs since: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-c" {
		t.Fatalf("unexpected filtered runs: %+v", runs)
	}
}

func TestListMetricAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a, err := st.InsertRun(ctx, sampleRun(time.Unix(10, 0), 2, 4))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.InsertRun(ctx, sampleRun(time.Unix(20, 0), 8)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	aggs, err := st.ListMetricAggregates(ctx, []string{a})
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	byName := map[string]model.MetricAggregate{}
	for _, agg := range aggs {
		byName[agg.Name] = agg
	}
	if _, ok := byName["complexity"]; ok {
		t.Fatalf("NaN-only metric should be excluded")
	}
	entropy := byName["entropy"]
	if entropy.Count != 2 || math.Abs(entropy.Mean-0.3) > 1e-9 || entropy.Min != 0.2 || entropy.Max != 0.4 {
		t.Fatalf("unexpected entropy aggregate: %+v", entropy)
	}
	none, err := st.ListMetricAggregates(ctx, nil)
	if err != nil || none != nil {
		t.Fatalf("expected nil for no runs, got %v %v", none, err)
	}
}
