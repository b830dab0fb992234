package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cipherscore/internal/metrics"
	"github.com/verte-zerg/cipherscore/internal/model"
)

const (
	minCipherWidth = 16
	minTextWidth   = 12
)

var headingStyle = lipgloss.NewStyle().Bold(true)

func heading(w io.Writer, title string) error {
	_, err := fmt.Fprintln(w, headingStyle.Render(title))
	return err
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRSAResults prints one row per evaluation with its ciphertext and
// decryption outcome, followed by the decryption success rate. Long cells
// are truncated to fit width; width <= 0 disables truncation.
func RenderRSAResults(w io.Writer, evals []model.Evaluation, width int) error {
	if len(evals) == 0 {
		_, err := fmt.Fprintln(w, "No evaluations.")
		return err
	}
	textWidth, cipherWidth := 0, 0
	if width > 0 {
		// Fixed columns: number, success flag, running time and separators.
		budget := width - 40
		textWidth = max(minTextWidth, budget/4)
		cipherWidth = max(minCipherWidth, budget-2*textWidth)
	}

	headers := []string{"Test No.", "Original String", "Encrypted String", "Decrypted String", "Decryption Success", "Running Time"}
	rows := make([][]string, 0, len(evals))
	succeeded := 0
	for _, ev := range evals {
		if ev.DecryptionOK {
			succeeded++
		}
		decrypted := ev.Decrypted
		if ev.DecryptError != "" {
			decrypted = "<error>"
		}
		rows = append(rows, []string{
			strconv.Itoa(ev.Position),
			truncate(printable(ev.Original), textWidth),
			truncate(ev.Encrypted, cipherWidth),
			truncate(printable(decrypted), textWidth),
			strconv.FormatBool(ev.DecryptionOK),
			formatDuration(ev.RunningTime),
		})
	}
	if err := heading(w, "RSA Cipher Results"); err != nil {
		return err
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 5: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Average score: %.4f\n\n", float64(succeeded)/float64(len(evals)))
	return err
}

// RenderScores prints the composite score and status of each evaluation.
func RenderScores(w io.Writer, evals []model.Evaluation, width int) error {
	if len(evals) == 0 {
		return nil
	}
	textWidth := 0
	if width > 0 {
		textWidth = max(minTextWidth, width-40)
	}
	headers := []string{"Test No.", "Original String", "Status", "Score"}
	rows := make([][]string, 0, len(evals))
	for _, ev := range evals {
		rows = append(rows, []string{
			strconv.Itoa(ev.Position),
			truncate(printable(ev.Original), textWidth),
			ev.Status,
			formatValue(ev.Score),
		})
	}
	if err := heading(w, "Composite Scores"); err != nil {
		return err
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 3: true}))
}

// RenderMetricSummary prints the weight and the spread of each metric across
// the evaluations.
func RenderMetricSummary(w io.Writer, evals []model.Evaluation, weights map[string]float64) error {
	if len(evals) == 0 {
		return nil
	}
	headers := []string{"Metric", "Weight", "Mean", "Min", "Max", "Failed"}
	rows := make([][]string, 0, len(metrics.Names))
	for _, name := range metrics.Names {
		values := make([]float64, 0, len(evals))
		for _, ev := range evals {
			v, ok := ev.Metrics[name]
			if !ok {
				v = math.NaN()
			}
			values = append(values, v)
		}
		s := spread(values)
		rows = append(rows, []string{
			name,
			formatWeight(weights, name),
			formatValue(s.mean),
			formatValue(s.min),
			formatValue(s.max),
			strconv.Itoa(len(values) - s.count),
		})
	}
	if err := heading(w, "Metric Summary"); err != nil {
		return err
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}))
}

// RenderEvaluation prints the raw and weighted metric values of one evaluation.
func RenderEvaluation(w io.Writer, ev model.Evaluation, weights map[string]float64) error {
	if _, err := fmt.Fprintf(w, "Test %d: %q\n", ev.Position, ev.Original); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Status: %s  Score: %s  Running time: %s\n", ev.Status, formatValue(ev.Score), formatDuration(ev.RunningTime)); err != nil {
		return err
	}
	if ev.Error != "" {
		if _, err := fmt.Fprintf(w, "Error: %s\n", ev.Error); err != nil {
			return err
		}
	}
	if ev.DecryptError != "" {
		if _, err := fmt.Fprintf(w, "Decryption: %s\n", ev.DecryptError); err != nil {
			return err
		}
	}
	headers := []string{"Metric", "Value", "Weight", "Weighted"}
	rows := make([][]string, 0, len(metrics.Names))
	for _, name := range metrics.Names {
		v, ok := ev.Metrics[name]
		if !ok {
			v = math.NaN()
		}
		weighted := "-"
		if wt, ok := weights[name]; ok {
			weighted = formatValue(wt * v)
		}
		rows = append(rows, []string{name, formatValue(v), formatWeight(weights, name), weighted})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}))
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatWeight(weights map[string]float64, name string) string {
	wt, ok := weights[name]
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(wt, 'f', -1, 64)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.4fs", d.Seconds())
}
