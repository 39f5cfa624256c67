package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// TimePeriod is the display-only date range of a report.
	TimePeriod struct {
		From string `json:"from"`
		To   string `json:"to"`
	}

	// CategorySummary is the aggregated total and share of one category.
	CategorySummary struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
		Percent  decimal.Decimal `json:"persent"`
	}

	// Entry is one transaction as shown in the report.
	Entry struct {
		Product  string          `json:"product"`
		Price    decimal.Decimal `json:"price"`
		Time     string          `json:"time"`
		Category string          `json:"category"`
	}

	// ReportPeriod is everything the dashboard shows for one tab.
	ReportPeriod struct {
		ID         string            `json:"id,omitempty"`
		Title      string            `json:"title"`
		TimePeriod TimePeriod        `json:"timePeriod"`
		Main       []CategorySummary `json:"main"`
		Entries    []Entry           `json:"entries"`
	}
)

var (
	ErrEmptyTitle        = errors.New("empty title")
	ErrPercentOutOfRange = errors.New("percent out of range")
	ErrInvalidDate       = errors.New("invalid date")
	ErrDuplicateID       = errors.New("duplicate period id")
)

var hundred = decimal.NewFromInt(100)

// NewEntry builds an entry from plain values.
func NewEntry(product string, price decimal.Decimal, time, category string) Entry {
	return Entry{Product: product, Price: price, Time: time, Category: category}
}

// NewCategorySummary builds a summary row from plain values.
func NewCategorySummary(category string, total, percent decimal.Decimal) CategorySummary {
	return CategorySummary{Category: category, Total: total, Percent: percent}
}

// Validate checks what the dashboard needs to stay navigable. Field contents
// are otherwise trusted and rendered as given.
func (p ReportPeriod) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	for i, s := range p.Main {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("main[%d] %q: %w", i, s.Category, err)
		}
	}
	return nil
}

func (s CategorySummary) Validate() error {
	if s.Percent.IsNegative() || s.Percent.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s", ErrPercentOutOfRange, s.Percent.String())
	}
	return nil
}

// Clone returns a deep copy so callers can hand the period to a view
// without sharing slices.
func (p ReportPeriod) Clone() ReportPeriod {
	out := p
	out.Main = append([]CategorySummary(nil), p.Main...)
	out.Entries = append([]Entry(nil), p.Entries...)
	return out
}

// ValidatePeriods validates a whole dataset, reporting the first bad period.
// Explicit ids must be unique; missing ones are assigned later.
func ValidatePeriods(periods []ReportPeriod) error {
	ids := make(map[string]struct{}, len(periods))
	for i, p := range periods {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("period %d (%q): %w", i, p.Title, err)
		}
		if p.ID == "" {
			continue
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("period %d (%q): %w: %s", i, p.Title, ErrDuplicateID, p.ID)
		}
		ids[p.ID] = struct{}{}
	}
	return nil
}
