package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"otchet/internal/core"
	"otchet/internal/reports"

	_ "modernc.org/sqlite"
)

var (
	_ reports.PeriodReader = (*SQLiteRepository)(nil)
	_ reports.PeriodWriter = (*SQLiteRepository)(nil)
)

// ErrNoImports is returned by LastImport on a database nothing was imported into.
var ErrNoImports = errors.New("no imports recorded")

// ImportRun describes one dataset replacement.
type ImportRun struct {
	ID         int64
	Source     string
	Periods    int
	ImportedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps replacements from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListPeriods implements reports.PeriodReader. Periods come back in tab
// order with summaries and entries in their stored order.
func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.ReportPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, period_from, period_to FROM periods ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var periods []core.ReportPeriod
	byID := make(map[string]int)
	for rows.Next() {
		var p core.ReportPeriod
		if err := rows.Scan(&p.ID, &p.Title, &p.TimePeriod.From, &p.TimePeriod.To); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		byID[p.ID] = len(periods)
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	if len(periods) == 0 {
		return nil, nil
	}

	if err := r.loadSummaries(ctx, periods, byID); err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, periods, byID); err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *SQLiteRepository) loadSummaries(ctx context.Context, periods []core.ReportPeriod, byID map[string]int) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period_id, category, total, percent FROM category_summaries ORDER BY period_id, position`)
	if err != nil {
		return fmt.Errorf("list category summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var periodID, category, total, percent string
		if err := rows.Scan(&periodID, &category, &total, &percent); err != nil {
			return fmt.Errorf("scan category summary: %w", err)
		}
		i, ok := byID[periodID]
		if !ok {
			continue
		}
		t, err := decimal.NewFromString(total)
		if err != nil {
			return fmt.Errorf("period %s category %q total: %w", periodID, category, err)
		}
		pct, err := decimal.NewFromString(percent)
		if err != nil {
			return fmt.Errorf("period %s category %q percent: %w", periodID, category, err)
		}
		periods[i].Main = append(periods[i].Main, core.NewCategorySummary(category, t, pct))
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadEntries(ctx context.Context, periods []core.ReportPeriod, byID map[string]int) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period_id, product, price, entry_time, category FROM entries ORDER BY period_id, position`)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var periodID, product, price, entryTime, category string
		if err := rows.Scan(&periodID, &product, &price, &entryTime, &category); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		i, ok := byID[periodID]
		if !ok {
			continue
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("period %s entry %q price: %w", periodID, product, err)
		}
		periods[i].Entries = append(periods[i].Entries, core.NewEntry(product, p, entryTime, category))
	}
	return rows.Err()
}

// ReplacePeriods implements reports.PeriodWriter.
func (r *SQLiteRepository) ReplacePeriods(ctx context.Context, periods []core.ReportPeriod) error {
	_, err := r.ImportPeriods(ctx, "direct", periods)
	return err
}

// ImportPeriods prepares the dataset and swaps it in atomically, recording
// the run. Nothing is written when preparation fails.
func (r *SQLiteRepository) ImportPeriods(ctx context.Context, source string, periods []core.ReportPeriod) (ImportRun, error) {
	prepared, err := core.PreparePeriods(periods)
	if err != nil {
		return ImportRun{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportRun{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		`DELETE FROM entries`,
		`DELETE FROM category_summaries`,
		`DELETE FROM periods`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return ImportRun{}, fmt.Errorf("clear dataset: %w", err)
		}
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	for pos, p := range prepared {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO periods (id, position, title, period_from, period_to, imported_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, pos, p.Title, p.TimePeriod.From, p.TimePeriod.To, stamp); err != nil {
			return ImportRun{}, fmt.Errorf("insert period %q: %w", p.Title, err)
		}
		for i, s := range p.Main {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO category_summaries (period_id, position, category, total, percent) VALUES (?, ?, ?, ?, ?)`,
				p.ID, i, s.Category, s.Total.String(), s.Percent.String()); err != nil {
				return ImportRun{}, fmt.Errorf("insert summary %q: %w", s.Category, err)
			}
		}
		for i, e := range p.Entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entries (period_id, position, product, price, entry_time, category) VALUES (?, ?, ?, ?, ?, ?)`,
				p.ID, i, e.Product, e.Price.String(), e.Time, e.Category); err != nil {
				return ImportRun{}, fmt.Errorf("insert entry %q: %w", e.Product, err)
			}
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO import_runs (source, periods, imported_at) VALUES (?, ?, ?)`,
		source, len(prepared), stamp)
	if err != nil {
		return ImportRun{}, fmt.Errorf("record import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ImportRun{}, fmt.Errorf("import id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportRun{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Report periods imported to SQLite",
		"import_id", id,
		"source", source,
		"periods", len(prepared))

	return ImportRun{ID: id, Source: source, Periods: len(prepared), ImportedAt: now}, nil
}

// LastImport returns the most recent import run.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportRun, error) {
	var run ImportRun
	var stamp string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, periods, imported_at FROM import_runs ORDER BY id DESC LIMIT 1`).
		Scan(&run.ID, &run.Source, &run.Periods, &stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRun{}, ErrNoImports
	}
	if err != nil {
		return ImportRun{}, fmt.Errorf("last import: %w", err)
	}
	run.ImportedAt, err = time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return ImportRun{}, fmt.Errorf("parse import time %q: %w", stamp, err)
	}
	return run, nil
}
