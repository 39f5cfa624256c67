package view

import (
	"errors"

	"otchet/internal/core"
)

// Sub-view keys of a report.
const (
	ViewReport = "report"
	ViewData   = "data"
	ViewCSV    = "csv"
)

var ErrUnknownView = errors.New("unknown view")

// SubView is one navigable pane of a ReportView.
type SubView struct {
	Key   string
	Label string
}

var subViews = []SubView{
	{Key: ViewReport, Label: "Отчет"},
	{Key: ViewData, Label: "Данные"},
	{Key: ViewCSV, Label: "CSV"},
}

// SubViews lists the panes in navigation order.
func SubViews() []SubView {
	return append([]SubView(nil), subViews...)
}

// IsViewKey reports whether key names a sub-view.
func IsViewKey(key string) bool {
	for _, v := range subViews {
		if v.Key == key {
			return true
		}
	}
	return false
}

// ReportView shows one period as three panes: chart, table and CSV.
// Projections are built once; selecting a pane only moves the selection.
type ReportView struct {
	period   core.ReportPeriod
	chart    SummaryChart
	table    EntryTable
	csv      string
	selected string
}

// NewReportView binds a view to a copy of p with the report pane active.
func NewReportView(p core.ReportPeriod) *ReportView {
	p = p.Clone()
	return &ReportView{
		period:   p,
		chart:    NewSummaryChart(p.Main),
		table:    NewEntryTable(p.Entries),
		csv:      RenderCSV(p.Entries),
		selected: ViewReport,
	}
}

// Heading is "title(from-to)".
func (v *ReportView) Heading() string {
	return v.period.Title + "(" + v.period.TimePeriod.From + "-" + v.period.TimePeriod.To + ")"
}

func (v *ReportView) ID() string    { return v.period.ID }
func (v *ReportView) Title() string { return v.period.Title }

// Period returns a copy of the bound period.
func (v *ReportView) Period() core.ReportPeriod { return v.period.Clone() }

func (v *ReportView) Chart() SummaryChart { return v.chart }
func (v *ReportView) Table() EntryTable   { return v.table }
func (v *ReportView) CSV() string         { return v.csv }

// CSVLines returns the CSV text split per entry.
func (v *ReportView) CSVLines() []string { return CSVLines(v.period.Entries) }

func (v *ReportView) Views() []SubView { return SubViews() }

func (v *ReportView) Selected() string { return v.selected }

func (v *ReportView) IsSelected(key string) bool { return v.selected == key }

// Select activates the pane named key. Unknown keys leave the selection
// as it was.
func (v *ReportView) Select(key string) error {
	if !IsViewKey(key) {
		return ErrUnknownView
	}
	v.selected = key
	return nil
}

// fork returns a view sharing the projections with its own selection,
// reset to the default pane.
func (v *ReportView) fork() *ReportView {
	c := *v
	c.selected = ViewReport
	return &c
}
