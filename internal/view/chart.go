package view

import (
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"otchet/internal/core"
)

// Default chart size, matching the original report page.
const (
	DefaultChartWidth  = 950
	DefaultChartHeight = 500
)

// SeriesItem names one slice for the chart legend.
type SeriesItem struct {
	Field string
	Name  string
}

// Slice is the (value, name, label) triple derived from one category.
type Slice struct {
	Name  string
	Label string
	Value decimal.Decimal
}

// ChartRenderer draws a pie chart. It is the external charting
// collaborator: the view only supplies the projection.
type ChartRenderer interface {
	Render(width, height int, series []SeriesItem, data []core.CategorySummary,
		value func(core.CategorySummary) float64, name func(core.CategorySummary) string) (template.HTML, error)
}

// SummaryChart is the chart input for a period's category summaries.
type SummaryChart struct {
	Series []SeriesItem
	Slices []Slice
	data   []core.CategorySummary
}

// SliceLabel formats "<category> <total> руб (<persent>%)".
func SliceLabel(s core.CategorySummary) string {
	return fmt.Sprintf("%s %s руб (%s%%)", s.Category, s.Total.String(), s.Percent.String())
}

// SliceValue is the value accessor handed to the renderer.
func SliceValue(s core.CategorySummary) float64 {
	return s.Total.InexactFloat64()
}

// SliceName is the name accessor handed to the renderer.
func SliceName(s core.CategorySummary) string {
	return s.Category
}

// NewSummaryChart projects every summary into one slice, in input order.
func NewSummaryChart(main []core.CategorySummary) SummaryChart {
	c := SummaryChart{
		Series: make([]SeriesItem, 0, len(main)),
		Slices: make([]Slice, 0, len(main)),
		data:   append([]core.CategorySummary(nil), main...),
	}
	for _, s := range main {
		label := SliceLabel(s)
		c.Series = append(c.Series, SeriesItem{Field: s.Category, Name: label})
		c.Slices = append(c.Slices, Slice{Name: SliceName(s), Label: label, Value: s.Total})
	}
	return c
}

// Render hands the projection to r.
func (c SummaryChart) Render(r ChartRenderer, width, height int) (template.HTML, error) {
	return r.Render(width, height, c.Series, c.data, SliceValue, SliceName)
}
