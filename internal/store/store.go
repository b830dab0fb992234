// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cipherscore/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timestampLayout is fixed-width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for evaluation runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			max_length_multiplier REAL NOT NULL,
			seed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			original TEXT NOT NULL,
			encrypted TEXT NOT NULL,
			decrypted TEXT NOT NULL,
			decryption_ok INTEGER NOT NULL,
			decrypt_error TEXT NOT NULL,
			running_time_ns INTEGER NOT NULL,
			score REAL NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS evaluation_metrics (
			evaluation_id INTEGER NOT NULL,
			metric TEXT NOT NULL,
			value REAL,
			PRIMARY KEY (evaluation_id, metric)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_run_id ON evaluations(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_evaluation_metrics_metric ON evaluation_metrics(metric);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a run with its evaluations and metric values. An empty
// run ID is replaced by a fresh UUID; the ID used is returned.
func (s *Store) InsertRun(ctx context.Context, run model.Run) (id string, err error) {
	id = run.ID
	if id == "" {
		id = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, max_length_multiplier, seed) VALUES (?, ?, ?, ?)`,
		id,
		run.StartedAt.UTC().Format(timestampLayout),
		run.MaxLengthMultiplier,
		run.Seed,
	); err != nil {
		return "", err
	}

	evalStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evaluations (run_id, position, original, encrypted, decrypted, decryption_ok, decrypt_error, running_time_ns, score, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := evalStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	metricStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evaluation_metrics (evaluation_id, metric, value) VALUES (?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := metricStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, ev := range run.Evaluations {
		var res sql.Result
		res, err = evalStmt.ExecContext(ctx,
			id,
			ev.Position,
			ev.Original,
			ev.Encrypted,
			ev.Decrypted,
			ev.DecryptionOK,
			ev.DecryptError,
			ev.RunningTime.Nanoseconds(),
			ev.Score,
			ev.Status,
			ev.Error,
		)
		if err != nil {
			return "", err
		}
		var evalID int64
		evalID, err = res.LastInsertId()
		if err != nil {
			return "", err
		}
		for name, value := range ev.Metrics {
			if _, err = metricStmt.ExecContext(ctx, evalID, name, nullableFloat(value)); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListRuns returns run aggregates ordered oldest first, filtered by cfg.
func (s *Store) ListRuns(ctx context.Context, cfg model.HistoryConfig) ([]model.RunAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "r.started_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timestampLayout))
	}
	query := fmt.Sprintf(`SELECT r.id, r.started_at,
			COUNT(e.id),
			COALESCE(SUM(e.decryption_ok), 0),
			COALESCE(SUM(CASE WHEN e.status = 'disqualified' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(e.score), 0)
		FROM runs r
		LEFT JOIN evaluations e ON e.run_id = r.id
		WHERE %s
		GROUP BY r.id, r.started_at
		ORDER BY r.started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunAggregate
	for rows.Next() {
		var agg model.RunAggregate
		var startedAt string
		if err := rows.Scan(&agg.ID, &startedAt, &agg.Evaluations, &agg.Decrypted, &agg.Disqualified, &agg.Failed, &agg.MeanScore); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timestampLayout, startedAt)
		if err != nil {
			return nil, err
		}
		agg.StartedAt = parsed
		runs = append(runs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// ListEvaluations returns the evaluations of a run in input order, with metrics.
func (s *Store) ListEvaluations(ctx context.Context, runID string) ([]model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, original, encrypted, decrypted, decryption_ok, decrypt_error, running_time_ns, score, status, error
		FROM evaluations
		WHERE run_id = ?
		ORDER BY position ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var evals []model.Evaluation
	var ids []int64
	for rows.Next() {
		var ev model.Evaluation
		var id, runningNs int64
		if err := rows.Scan(&id, &ev.Position, &ev.Original, &ev.Encrypted, &ev.Decrypted, &ev.DecryptionOK, &ev.DecryptError, &runningNs, &ev.Score, &ev.Status, &ev.Error); err != nil {
			return nil, err
		}
		ev.RunningTime = time.Duration(runningNs)
		ev.Metrics = map[string]float64{}
		evals = append(evals, ev)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return evals, nil
	}

	byID := make(map[int64]int, len(ids))
	for i, id := range ids {
		byID[id] = i
	}
	placeholders, args := inClause(ids)
	metricRows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT evaluation_id, metric, value FROM evaluation_metrics WHERE evaluation_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := metricRows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for metricRows.Next() {
		var evalID int64
		var name string
		var value sql.NullFloat64
		if err := metricRows.Scan(&evalID, &name, &value); err != nil {
			return nil, err
		}
		if i, ok := byID[evalID]; ok {
			evals[i].Metrics[name] = floatOrNaN(value)
		}
	}
	if err := metricRows.Err(); err != nil {
		return nil, err
	}
	return evals, nil
}

// ListMetricAggregates aggregates metric values across the given runs.
// NaN values from failed metrics are excluded.
func (s *Store) ListMetricAggregates(ctx context.Context, runIDs []string) ([]model.MetricAggregate, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(runIDs)
	query := fmt.Sprintf(`SELECT m.metric, COUNT(m.value), AVG(m.value), MIN(m.value), MAX(m.value)
		FROM evaluation_metrics m
		JOIN evaluations e ON e.id = m.evaluation_id
		WHERE e.run_id IN (%s) AND m.value IS NOT NULL
		GROUP BY m.metric
		ORDER BY m.metric ASC`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.MetricAggregate
	for rows.Next() {
		var agg model.MetricAggregate
		if err := rows.Scan(&agg.Name, &agg.Count, &agg.Mean, &agg.Min, &agg.Max); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func inClause[T any](values []T) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ","), args
}

func nullableFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
