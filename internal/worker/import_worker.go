package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"otchet/internal/amqp"
	"otchet/internal/core"
	"otchet/internal/reports"
	"otchet/internal/storage"
)

// Importer stores a complete dataset and records the run.
type Importer interface {
	ImportPeriods(ctx context.Context, source string, periods []core.ReportPeriod) (storage.ImportRun, error)
}

// ImportWorker moves datasets into SQLite, either from AMQP messages or by
// snapshotting an upstream reader such as the spreadsheet.
type ImportWorker struct {
	store    Importer
	upstream reports.PeriodReader
}

// NewImportWorker creates a worker. upstream may be nil when no spreadsheet
// is configured; SyncFromUpstream is then a no-op.
func NewImportWorker(store Importer, upstream reports.PeriodReader) *ImportWorker {
	return &ImportWorker{store: store, upstream: upstream}
}

// HandleImportMessage replaces the stored dataset with the message content.
// Invalid datasets are marked permanent so the delivery is dropped.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ReportImportMessage) error {
	source := msg.Source
	if source == "" {
		source = "amqp"
	}

	run, err := w.store.ImportPeriods(ctx, source, msg.Periods)
	if err != nil {
		if isInvalidDataset(err) {
			return amqp.Permanent(fmt.Errorf("reject dataset from %s: %w", source, err))
		}
		return fmt.Errorf("import dataset from %s: %w", source, err)
	}

	slog.InfoContext(ctx, "Dataset imported",
		"import_id", run.ID,
		"source", run.Source,
		"periods", run.Periods,
		"published_at", msg.Timestamp)
	return nil
}

// SyncFromUpstream snapshots the upstream reader into the store.
func (w *ImportWorker) SyncFromUpstream(ctx context.Context) error {
	if w.upstream == nil {
		return nil
	}
	periods, err := w.upstream.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("read upstream periods: %w", err)
	}
	run, err := w.store.ImportPeriods(ctx, "sheets", periods)
	if err != nil {
		return fmt.Errorf("import upstream periods: %w", err)
	}
	slog.InfoContext(ctx, "Upstream snapshot imported",
		"import_id", run.ID,
		"periods", run.Periods)
	return nil
}

func isInvalidDataset(err error) bool {
	for _, target := range []error{
		core.ErrEmptyTitle,
		core.ErrPercentOutOfRange,
		core.ErrInvalidDate,
		core.ErrDuplicateID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
