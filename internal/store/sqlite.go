package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/dfjss/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Run CRUD ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	cancelledJSON, err := json.Marshal(nonNil(run.Cancelled))
	if err != nil {
		return fmt.Errorf("marshal cancelled: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	scheduleJSON, err := json.Marshal(nonNil(run.Schedule))
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, instance, scorer, state, makespan, diagnostic, ticks, jobs, cancelled, metrics, schedule, elapsed_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Instance, run.Scorer, string(run.State), run.Makespan, run.Diagnostic,
		run.Ticks, run.Jobs, string(cancelledJSON), string(metricsJSON), string(scheduleJSON),
		int64(run.Elapsed), run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, instance, scorer, state, makespan, diagnostic, ticks, jobs, cancelled, metrics, schedule, elapsed_ns, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, withSchedule bool) (*model.Run, error) {
	var run model.Run
	var state, cancelledJSON, metricsJSON, scheduleJSON, createdAt string
	var elapsed int64
	if err := row.Scan(&run.ID, &run.Instance, &run.Scorer, &state, &run.Makespan, &run.Diagnostic,
		&run.Ticks, &run.Jobs, &cancelledJSON, &metricsJSON, &scheduleJSON, &elapsed, &createdAt); err != nil {
		return nil, err
	}
	run.State = model.RunState(state)
	run.Elapsed = time.Duration(elapsed)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	if err := json.Unmarshal([]byte(cancelledJSON), &run.Cancelled); err != nil {
		return nil, fmt.Errorf("unmarshal cancelled: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if withSchedule {
		if err := json.Unmarshal([]byte(scheduleJSON), &run.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
	}
	return &run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first without their schedules.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.RunQuery) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.State != "" {
		whereClauses = append(whereClauses, "state = ?")
		countArgs = append(countArgs, string(opts.State))
	}
	if opts.Instance != "" {
		whereClauses = append(whereClauses, "instance = ?")
		countArgs = append(countArgs, opts.Instance)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + runColumns + ` FROM runs` + whereSQL + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) (bool, error) {
	s.logger.Debug("sql", "op", "delete", "table", "runs", "id", id)

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
