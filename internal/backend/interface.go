package backend

import (
	"context"

	"otchet/internal/reports"
	"otchet/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthFunc reports whether a backend can still serve reads.
type HealthFunc func(ctx context.Context) error

// LastImportFunc reports the most recent dataset import, for backends that
// record them.
type LastImportFunc func(ctx context.Context) (storage.ImportRun, error)

// BackendResult contains the reader plus optional lifecycle hooks.
type BackendResult struct {
	Reader     reports.PeriodReader
	Cleanup    CleanupFunc
	Health     HealthFunc
	LastImport LastImportFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	ReportDataFile string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID  string
	GoogleIndexSheetName string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
