package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"otchet/internal/config"
	"otchet/internal/storage"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("postgres").IsValid() {
		t.Error("postgres should not be valid")
	}
	if got := GetBackendTypeStrings(); len(got) != 3 || got[0] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "excel"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:          "sheets",
		GoogleSpreadsheetID:  "sheet-id",
		GoogleIndexSheetName: "Reports",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleIndexSheetName != "Reports" {
		t.Errorf("unexpected backend config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory ok", Config{Type: MemoryBackend, ReportDataFile: "r.json"}, false},
		{"memory without file", Config{Type: MemoryBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown type", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	data := `[{"title": "Всего", "timePeriod": {"from": "01.02.2018", "to": "31.03.2018"}, "main": [], "entries": []}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, ReportDataFile: path})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Close()

	periods, err := res.Reader.ListPeriods(context.Background())
	if err != nil || len(periods) != 1 || periods[0].Title != "Всего" {
		t.Fatalf("unexpected periods: %v err=%v", periods, err)
	}
	if res.Health != nil {
		t.Error("memory backend needs no health check")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "otchet.db"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Close()

	if err := res.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	periods, err := res.Reader.ListPeriods(context.Background())
	if err != nil || len(periods) != 0 {
		t.Fatalf("fresh database should be empty: %v err=%v", periods, err)
	}
	if _, err := res.LastImport(context.Background()); !errors.Is(err, storage.ErrNoImports) {
		t.Fatalf("expected no imports on a fresh database, got %v", err)
	}
}

func TestCreateMemoryBackendMissingFile(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		ReportDataFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil {
		t.Fatal("expected error for missing data file")
	}
}
