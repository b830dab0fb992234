// Package reportui provides the Bubble Tea history browser.
package reportui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cipherscore/internal/model"
	"github.com/verte-zerg/cipherscore/internal/report"
	"github.com/verte-zerg/cipherscore/internal/store"
)

const (
	viewRuns = iota
	viewDetail
)

const detailWidthBackup = 80

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea history UI.
type Model struct {
	store   *store.Store
	cfg     model.HistoryConfig
	weights map[string]float64
	now     func() time.Time

	history report.History
	errMsg  string

	view     int
	runTable table.Model
	detail   viewport.Model
	detailID string

	width  int
	height int
}

// NewModel constructs a history UI model. Weights are shown next to metric
// values in the run detail view.
func NewModel(st *store.Store, cfg model.HistoryConfig, weights map[string]float64) *Model {
	m := &Model{
		store:   st,
		cfg:     cfg,
		weights: weights,
		now:     time.Now,
		detail:  viewport.New(0, 0),
	}
	m.runTable = buildRunTable(nil, m.now(), 0, 1)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		if m.view == viewDetail {
			switch msg.String() {
			case "esc", "backspace":
				m.view = viewRuns
				m.detailID = ""
				return m, tea.ClearScreen
			}
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "enter":
			m.openSelected()
			return m, tea.ClearScreen
		case "r":
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.runTable, cmd = m.runTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	titleHeight := maxInt(1, lipgloss.Height(titleStyle.Render("X")))
	headerHeight = titleHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = maxInt(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	_, bodyHeight, _ := m.layoutHeights()
	m.runTable.SetWidth(m.width)
	m.runTable.SetHeight(maxInt(1, bodyHeight-1))
	m.detail.Width = m.width
	m.detail.Height = bodyHeight
}

func (m *Model) refresh() {
	history, err := report.BuildHistory(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.history = history
	m.runTable.SetRows(runRows(history.Runs, m.now()))
	if n := len(history.Runs); n > 0 {
		m.runTable.SetCursor(n - 1)
	}
}

func (m *Model) openSelected() {
	idx := m.runTable.Cursor()
	if idx < 0 || idx >= len(m.history.Runs) {
		return
	}
	run := m.history.Runs[idx]
	evals, err := m.store.ListEvaluations(context.Background(), run.ID)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.detailID = run.ID
	m.detail.SetContent(renderDetail(run, evals, m.weights, m.width))
	m.detail.GotoTop()
	m.view = viewDetail
}

func renderDetail(run model.RunAggregate, evals []model.Evaluation, weights map[string]float64, width int) string {
	if width <= 0 {
		width = detailWidthBackup
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Run %s started %s\n\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	steps := []func() error{
		func() error { return report.RenderRSAResults(&buf, evals, width) },
		func() error { return report.RenderScores(&buf, evals, width) },
		func() error { return report.RenderMetricSummary(&buf, evals, weights) },
	}
	for _, ev := range evals {
		steps = append(steps, func() error { return report.RenderEvaluation(&buf, ev, weights) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Sprintf("Failed to render run: %v", err)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("cipherscore history")
	return title + "\n" + headerStyle.Render(truncateLine(m.renderSummary(), m.width))
}

func (m *Model) renderSummary() string {
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	trend := report.Sparkline(m.history.MeanScores())
	if m.view == viewDetail {
		return fmt.Sprintf("Run: %s  since=%s  last=%s", m.detailID, since, last)
	}
	return fmt.Sprintf("Runs: %d  since=%s  last=%s  trend=[%s]", len(m.history.Runs), since, last, trend)
}

func (m *Model) renderBody() string {
	if m.view == viewDetail {
		return m.detail.View()
	}
	if len(m.history.Runs) == 0 {
		return "No runs recorded yet."
	}
	return tableMutedStyle.Render(m.runTable.View())
}

func (m *Model) renderFooter() string {
	help := "Select: up/down  Open: enter  Refresh: r  Quit: q"
	if m.view == viewDetail {
		help = "Scroll: up/down/pgup/pgdn  Back: esc  Quit: q"
	}
	help = headerStyle.Render(help)
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func buildRunTable(runs []model.RunAggregate, now time.Time, width, height int) table.Model {
	columns := []table.Column{
		{Title: "Run", Width: 9},
		{Title: "Started", Width: 16},
		{Title: "Evals", Width: 6},
		{Title: "Decrypted", Width: 10},
		{Title: "Disqualified", Width: 13},
		{Title: "Failed", Width: 7},
		{Title: "Mean score", Width: 11},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(runRows(runs, now)),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	t.SetWidth(width)
	t.SetStyles(runTableStyles())
	return t
}

func runRows(runs []model.RunAggregate, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, table.Row(report.RunCells(r, now)))
	}
	return rows
}

func runTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
