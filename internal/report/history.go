package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/cipherscore/internal/model"
	"github.com/verte-zerg/cipherscore/internal/store"
)

const (
	trendWindow = 3
	shortIDLen  = 8
)

// History contains precomputed data for history rendering.
type History struct {
	Runs    []model.RunAggregate
	Metrics []model.MetricAggregate
}

// BuildHistory loads stored runs and their metric aggregates.
func BuildHistory(ctx context.Context, st *store.Store, cfg model.HistoryConfig) (History, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return History{}, err
	}
	aggs, err := st.ListMetricAggregates(ctx, runIDs(runs))
	if err != nil {
		return History{}, err
	}
	return History{Runs: runs, Metrics: aggs}, nil
}

func runIDs(runs []model.RunAggregate) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

// MeanScores returns the mean composite score of each run, oldest first.
func (h History) MeanScores() []float64 {
	out := make([]float64, len(h.Runs))
	for i, r := range h.Runs {
		out[i] = r.MeanScore
	}
	return out
}

// RenderHistory prints the run table, the score trend and metric averages.
func RenderHistory(w io.Writer, h History, now time.Time) error {
	if len(h.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded yet.")
		return err
	}
	if err := heading(w, "Runs"); err != nil {
		return err
	}
	if err := writeLines(w, RunRows(h.Runs, now)); err != nil {
		return err
	}

	scores := h.MeanScores()
	if _, err := fmt.Fprintf(w, "Score trend: %s\n", Sparkline(MovingAverage(scores, trendWindow))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Latest mean score: %s\n\n", formatValue(scores[len(scores)-1])); err != nil {
		return err
	}

	if len(h.Metrics) == 0 {
		return nil
	}
	if err := heading(w, "Metric Averages"); err != nil {
		return err
	}
	headers := []string{"Metric", "Count", "Mean", "Min", "Max"}
	rows := make([][]string, 0, len(h.Metrics))
	for _, m := range h.Metrics {
		rows = append(rows, []string{
			m.Name,
			strconv.Itoa(m.Count),
			formatValue(m.Mean),
			formatValue(m.Min),
			formatValue(m.Max),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true}))
}

// RunRows formats the run aggregates as aligned table lines.
func RunRows(runs []model.RunAggregate, now time.Time) []string {
	headers := []string{"Run", "Started", "Evals", "Decrypted", "Disqualified", "Failed", "Mean score"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, RunCells(r, now))
	}
	return formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true})
}

// RunCells returns the display cells for a single run.
func RunCells(r model.RunAggregate, now time.Time) []string {
	return []string{
		ShortID(r.ID),
		humanize.RelTime(r.StartedAt, now, "ago", "from now"),
		strconv.Itoa(r.Evaluations),
		strconv.Itoa(r.Decrypted),
		strconv.Itoa(r.Disqualified),
		strconv.Itoa(r.Failed),
		formatValue(r.MeanScore),
	}
}

// ShortID abbreviates a run ID for display.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
