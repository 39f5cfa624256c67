package view

import (
	"errors"

	"otchet/internal/core"
)

var ErrUnknownTab = errors.New("unknown tab")

// Tab is one top-level period tab.
type Tab struct {
	ID    string
	Title string
	View  *ReportView
}

// Dashboard holds one tab per period, in input order, with exactly one
// active tab. Tabs are identified by the period id, not by position.
type Dashboard struct {
	tabs   []Tab
	index  map[string]int
	active int
}

// NewDashboard builds the tabs. Periods without an id get one from
// core.AssignIDs so every tab is addressable.
func NewDashboard(periods []core.ReportPeriod) *Dashboard {
	periods = core.AssignIDs(periods)
	d := &Dashboard{
		tabs:  make([]Tab, 0, len(periods)),
		index: make(map[string]int, len(periods)),
	}
	for i, p := range periods {
		d.tabs = append(d.tabs, Tab{ID: p.ID, Title: p.Title, View: NewReportView(p)})
		d.index[p.ID] = i
	}
	return d
}

// Fork returns a dashboard over the same tabs with its own selection
// state, reset to the first tab and the report pane. The server forks per
// request so concurrent visitors never share selections.
func (d *Dashboard) Fork() *Dashboard {
	c := &Dashboard{
		tabs:  make([]Tab, len(d.tabs)),
		index: d.index,
	}
	for i, t := range d.tabs {
		c.tabs[i] = Tab{ID: t.ID, Title: t.Title, View: t.View.fork()}
	}
	return c
}

func (d *Dashboard) Len() int { return len(d.tabs) }

// Tabs returns the tabs in display order.
func (d *Dashboard) Tabs() []Tab {
	return append([]Tab(nil), d.tabs...)
}

// Tab looks a tab up by id.
func (d *Dashboard) Tab(id string) (Tab, bool) {
	i, ok := d.index[id]
	if !ok {
		return Tab{}, false
	}
	return d.tabs[i], true
}

// Active returns the active tab; false when there are no tabs.
func (d *Dashboard) Active() (Tab, bool) {
	if len(d.tabs) == 0 {
		return Tab{}, false
	}
	return d.tabs[d.active], true
}

func (d *Dashboard) IsActive(id string) bool {
	t, ok := d.Active()
	return ok && t.ID == id
}

// Select activates the tab with the given id.
func (d *Dashboard) Select(id string) error {
	i, ok := d.index[id]
	if !ok {
		return ErrUnknownTab
	}
	d.active = i
	return nil
}

// SelectIndex activates the i-th tab.
func (d *Dashboard) SelectIndex(i int) error {
	if i < 0 || i >= len(d.tabs) {
		return ErrUnknownTab
	}
	d.active = i
	return nil
}

// Periods returns copies of the periods behind the tabs, in order.
func (d *Dashboard) Periods() []core.ReportPeriod {
	out := make([]core.ReportPeriod, 0, len(d.tabs))
	for _, t := range d.tabs {
		out = append(out, t.View.Period())
	}
	return out
}
