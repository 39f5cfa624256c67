package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"otchet/internal/core"
	"otchet/internal/storage"
)

// ErrNoTarget is returned when neither a store nor a publisher is configured.
var ErrNoTarget = errors.New("no import target configured")

// Importer writes a dataset straight into storage.
type Importer interface {
	ImportPeriods(ctx context.Context, source string, periods []core.ReportPeriod) (storage.ImportRun, error)
}

// Publisher hands a dataset to the import queue.
type Publisher interface {
	PublishReportImport(ctx context.Context, source string, periods []core.ReportPeriod) error
}

// Import modes.
const (
	ModeDirect  = "direct"
	ModePublish = "publish"
)

// ImportResult describes what an import did.
type ImportResult struct {
	Mode    string
	Periods int
	// Run is set for direct imports only; published datasets are recorded
	// by the worker.
	Run storage.ImportRun
}

// ImportService validates datasets and sends them either to SQLite or to
// the AMQP queue.
type ImportService struct {
	store     Importer
	publisher Publisher
}

// NewImportService takes either target; with both, the publisher wins and
// the store is only closed.
func NewImportService(store Importer, publisher Publisher) *ImportService {
	return &ImportService{
		store:     store,
		publisher: publisher,
	}
}

// Import prepares periods and delivers them. Invalid datasets are rejected
// before anything leaves the process.
func (s *ImportService) Import(ctx context.Context, source string, periods []core.ReportPeriod) (ImportResult, error) {
	prepared, err := core.PreparePeriods(periods)
	if err != nil {
		return ImportResult{}, fmt.Errorf("prepare dataset: %w", err)
	}

	switch {
	case s.publisher != nil:
		if err := s.publisher.PublishReportImport(ctx, source, prepared); err != nil {
			return ImportResult{}, fmt.Errorf("publish dataset: %w", err)
		}
		slog.InfoContext(ctx, "Dataset published for import",
			"source", source,
			"periods", len(prepared))
		return ImportResult{Mode: ModePublish, Periods: len(prepared)}, nil

	case s.store != nil:
		run, err := s.store.ImportPeriods(ctx, source, prepared)
		if err != nil {
			return ImportResult{}, fmt.Errorf("store dataset: %w", err)
		}
		return ImportResult{Mode: ModeDirect, Periods: run.Periods, Run: run}, nil

	default:
		return ImportResult{}, ErrNoTarget
	}
}

// Close closes whichever targets hold connections.
func (s *ImportService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close import service: %w", errors.Join(errs...))
	}

	return nil
}
