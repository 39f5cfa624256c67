package reports

import (
	"context"

	"otchet/internal/core"
)

// Ports for report data sources.
type (
	// PeriodReader loads the dataset the dashboard displays, in tab order.
	PeriodReader interface {
		ListPeriods(ctx context.Context) ([]core.ReportPeriod, error)
	}

	// PeriodWriter replaces the stored dataset as a whole.
	PeriodWriter interface {
		ReplacePeriods(ctx context.Context, periods []core.ReportPeriod) error
	}
)
