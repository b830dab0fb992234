// Package main provides the CLI entrypoint for cipherscore.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/cipherscore/internal/config"
	"github.com/verte-zerg/cipherscore/internal/metrics"
	"github.com/verte-zerg/cipherscore/internal/model"
	"github.com/verte-zerg/cipherscore/internal/report"
	"github.com/verte-zerg/cipherscore/internal/reportui"
	"github.com/verte-zerg/cipherscore/internal/samples"
	"github.com/verte-zerg/cipherscore/internal/scoring"
	"github.com/verte-zerg/cipherscore/internal/store"
)

const (
	defaultWorkers         = 0
	defaultParallelMetrics = true
	randomMinLen           = 1
	randomMaxLen           = 32
)

var (
	runMultiplier      float64
	runSeed            int64
	runWorkers         int
	runParallelMetrics bool
	runSamplesFile     string
	runRandom          int
	runWeightsFile     string
	runNoSave          bool
	runVerbose         bool

	historySince   string
	historyLast    int
	historyPlain   bool
	historyWeights string

	samplesFile string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cipherscore",
		Short:         "Score a toy RSA cipher with a weighted metric suite",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRunCmd,
	}
	addRunFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSamplesCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Encrypt, decrypt and score the sample strings",
		Args:  cobra.NoArgs,
		RunE:  runRunCmd,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&runMultiplier, "max-length-multiplier", scoring.DefaultMaxLengthMultiplier, "disqualify ciphertexts with more tokens than this multiple of the input length")
	cmd.Flags().Int64Var(&runSeed, "seed", 0, "seed for random samples and the randomness metric (0: clock)")
	cmd.Flags().IntVar(&runWorkers, "workers", defaultWorkers, "concurrent evaluations (0: GOMAXPROCS)")
	cmd.Flags().BoolVar(&runParallelMetrics, "parallel-metrics", defaultParallelMetrics, "compute the metrics of one sample concurrently")
	cmd.Flags().StringVar(&runSamplesFile, "samples", "", "file with one sample string per line")
	cmd.Flags().IntVar(&runRandom, "random", 0, "append N random printable samples")
	cmd.Flags().StringVar(&runWeightsFile, "weights", "", "weight table (.toml, .yaml or .yml)")
	cmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not record the run in the history database")
	cmd.Flags().BoolVar(&runVerbose, "verbose", false, "enable debug logging")
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "max-length-multiplier", &runMultiplier, fileCfg.Scoring.MaxLengthMultiplier)
	applyInt64Config(cmd, "seed", &runSeed, fileCfg.Scoring.Seed)
	applyIntConfig(cmd, "workers", &runWorkers, fileCfg.Scoring.Workers)
	applyBoolConfig(cmd, "parallel-metrics", &runParallelMetrics, fileCfg.Scoring.ParallelMetrics)
	applyStringConfig(cmd, "samples", &runSamplesFile, fileCfg.Samples.File)
	applyIntConfig(cmd, "random", &runRandom, fileCfg.Samples.Random)

	cfg := model.RunConfig{
		MaxLengthMultiplier: runMultiplier,
		Seed:                runSeed,
		Workers:             runWorkers,
		ParallelMetrics:     runParallelMetrics,
		SamplesFile:         runSamplesFile,
		WeightsFile:         runWeightsFile,
		Random:              runRandom,
		Save:                !runNoSave,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, runVerbose)
	weights, err := resolveWeights(cfg.WeightsFile, fileCfg.Weights)
	if err != nil {
		return err
	}
	inputs, err := resolveInputs(cfg)
	if err != nil {
		return err
	}

	scorer, err := scoring.NewScorer(weights, scoring.Options{
		MaxLengthMultiplier: cfg.MaxLengthMultiplier,
		ParallelMetrics:     cfg.ParallelMetrics,
		Logger:              logger,
	})
	if err != nil {
		return err
	}
	evaluator := scoring.NewEvaluator(scorer, scoring.EvaluatorOptions{
		Workers: cfg.Workers,
		Seed:    cfg.Seed,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startedAt := time.Now()
	evals, err := evaluator.Run(ctx, inputs)
	if err != nil {
		return fmt.Errorf("failed to evaluate samples: %w", err)
	}

	out := cmd.OutOrStdout()
	width := report.TerminalWidth()
	if err := report.RenderRSAResults(out, evals, width); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderScores(out, evals, width); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderMetricSummary(out, evals, weights); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if !cfg.Save {
		return nil
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	id, err := st.InsertRun(ctx, model.Run{
		StartedAt:           startedAt,
		MaxLengthMultiplier: scorer.MaxLengthMultiplier(),
		Seed:                cfg.Seed,
		Evaluations:         evals,
	})
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Debug("run saved", "run", id, "evaluations", len(evals))
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N runs")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a text summary instead of the browser")
	cmd.Flags().StringVar(&historyWeights, "weights", "", "weight table shown next to metric values")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig(historySince, historyLast)
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	weights, err := resolveWeights(historyWeights, fileCfg.Weights)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyPlain {
		h, err := report.BuildHistory(cmd.Context(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if err := report.RenderHistory(cmd.OutOrStdout(), h, time.Now()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	model := reportui.NewModel(st, cfg, weights)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func historyConfig(since string, last int) (model.HistoryConfig, error) {
	if last < 0 {
		return model.HistoryConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg := model.HistoryConfig{Last: last}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "List the sample strings a run would evaluate",
		Args:  cobra.NoArgs,
		RunE:  runSamplesCmd,
	}
	cmd.Flags().StringVar(&samplesFile, "file", "", "file with one sample string per line")
	return cmd
}

func runSamplesCmd(cmd *cobra.Command, _ []string) error {
	inputs, err := resolveInputs(model.RunConfig{SamplesFile: samplesFile})
	if err != nil {
		return err
	}
	for i, input := range inputs {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%2d  %q\n", i+1, input); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func resolveInputs(cfg model.RunConfig) ([]string, error) {
	inputs := samples.Default()
	if cfg.SamplesFile != "" {
		loaded, err := samples.LoadFile(cfg.SamplesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load samples: %w", err)
		}
		inputs = loaded
	}
	if cfg.Random > 0 {
		gen := samples.New()
		if cfg.Seed != 0 {
			gen = samples.NewSeeded(cfg.Seed)
		}
		inputs = append(inputs, gen.Generate(cfg.Random, randomMinLen, randomMaxLen)...)
	}
	return inputs, nil
}

// resolveWeights prefers an explicit weights file, then the [weights] config
// table, then the built-in defaults.
func resolveWeights(path string, fromConfig map[string]float64) (scoring.Weights, error) {
	var weights scoring.Weights
	switch {
	case path != "":
		loaded, err := config.LoadWeights(path)
		if err != nil {
			return nil, err
		}
		weights = loaded
	case len(fromConfig) > 0:
		weights = scoring.Weights(fromConfig)
	default:
		return scoring.DefaultWeights(), nil
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return weights, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	weights := scoring.DefaultWeights()
	var b strings.Builder
	for _, name := range metrics.Names {
		fmt.Fprintf(&b, "# %s = %g\n", name, weights[name])
	}
	return fmt.Sprintf(`# cipherscore configuration
# Uncomment a value to enable it. CLI flags override config values.

[scoring]
# max-length-multiplier = %.1f   # Disqualify ciphertexts longer than this many tokens per input character
# seed = 0                       # Seed for random samples and the randomness metric (0: clock)
# workers = %d                    # Concurrent evaluations (0: GOMAXPROCS)
# parallel-metrics = %t        # Compute the metrics of one sample concurrently

[samples]
# file = "samples.txt"           # One sample string per line
# random = 0                     # Append N random printable samples

# Uncomment the whole table to override the weights; every metric must be listed.
# [weights]
%s`,
		scoring.DefaultMaxLengthMultiplier,
		defaultWorkers,
		defaultParallelMetrics,
		b.String(),
	)
}

func validateConfig(cfg model.RunConfig) error {
	if math.IsNaN(cfg.MaxLengthMultiplier) || cfg.MaxLengthMultiplier <= 0 {
		return fmt.Errorf("--max-length-multiplier must be > 0")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}
	if cfg.Random < 0 {
		return fmt.Errorf("--random must be >= 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
