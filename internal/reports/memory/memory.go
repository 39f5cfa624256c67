package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"otchet/internal/core"
	"otchet/internal/reports"
)

var (
	_ reports.PeriodReader = (*Store)(nil)
	_ reports.PeriodWriter = (*Store)(nil)
)

// Store keeps a dataset in memory.
type Store struct {
	mu      sync.Mutex
	periods []core.ReportPeriod
}

// New prepares periods and stores a copy.
func New(periods []core.ReportPeriod) (*Store, error) {
	prepared, err := core.PreparePeriods(periods)
	if err != nil {
		return nil, err
	}
	return &Store{periods: prepared}, nil
}

// NewFromFile loads a JSON dataset in the report front-end shape.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report data: %w", err)
	}
	defer f.Close()

	periods, err := core.ParsePeriods(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Store{periods: periods}, nil
}

// ListPeriods returns copies of the stored periods.
func (s *Store) ListPeriods(_ context.Context) ([]core.ReportPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ReportPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p.Clone())
	}
	return out, nil
}

// ReplacePeriods swaps the dataset after preparing it.
func (s *Store) ReplacePeriods(_ context.Context, periods []core.ReportPeriod) error {
	prepared, err := core.PreparePeriods(periods)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = prepared
	return nil
}
