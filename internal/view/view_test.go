package view

import (
	"html/template"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otchet/internal/core"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sampleEntries() []core.Entry {
	return []core.Entry{
		core.NewEntry("coffee", dec(5), "2018-02-16T11:10:00.000000000", "food"),
		core.NewEntry("butter", dec(5), "2018-02-16T11:12:00.000000000", "food"),
		core.NewEntry("transport-card", decimal.RequireFromString("5.5"), "2018-02-18T11:12:00.000000000", "transport"),
	}
}

func samplePeriods() []core.ReportPeriod {
	return []core.ReportPeriod{
		{
			Title:      "Total",
			TimePeriod: core.TimePeriod{From: "01.02.2018", To: "31.03.2018"},
			Main: []core.CategorySummary{
				core.NewCategorySummary("food", dec(10), dec(10)),
				core.NewCategorySummary("transport", dec(90), dec(90)),
			},
			Entries: sampleEntries(),
		},
		{
			Title:      "Feb",
			TimePeriod: core.TimePeriod{From: "01.02.2018", To: "28.02.2018"},
			Main:       []core.CategorySummary{core.NewCategorySummary("food", dec(5), dec(100))},
			Entries:    sampleEntries()[:1],
		},
	}
}

func TestEntryTable(t *testing.T) {
	for _, entries := range [][]core.Entry{nil, sampleEntries()[:1], sampleEntries()} {
		table := NewEntryTable(entries)
		assert.Equal(t, []string{"#", "Товар", "Цена", "Дата", "Категория"}, table.Header)
		require.Len(t, table.Rows, len(entries))
		assert.Equal(t, len(entries) == 0, table.Empty())
		for i, row := range table.Rows {
			assert.Equal(t, i, row.Index)
			assert.Equal(t, entries[i].Product, row.Product)
			assert.Equal(t, entries[i].Price.String(), row.Price)
			assert.Equal(t, entries[i].Time, row.Time)
			assert.Equal(t, entries[i].Category, row.Category)
		}
	}
}

func TestEntryTableRendersBlanks(t *testing.T) {
	table := NewEntryTable([]core.Entry{{}})
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "", table.Rows[0].Product)
	assert.Equal(t, "0", table.Rows[0].Price)
}

func TestCSV(t *testing.T) {
	entries := sampleEntries()
	lines := CSVLines(entries)
	require.Len(t, lines, len(entries))
	assert.Equal(t, `"coffee",5,2018-02-16T11:10:00.000000000,"food"`, lines[0])
	assert.Equal(t, `"transport-card",5.5,2018-02-18T11:12:00.000000000,"transport"`, lines[2])

	text := RenderCSV(entries)
	assert.Equal(t, strings.Join(lines, "\n")+"\n", text)
	assert.Equal(t, "", RenderCSV(nil))
	assert.Empty(t, CSVLines(nil))
}

func TestCSVDoesNotEscape(t *testing.T) {
	e := core.NewEntry(`milk, "fresh"`, dec(3), "t", "food")
	assert.Equal(t, `"milk, "fresh"",3,t,"food"`, CSVLine(e))
	assert.True(t, NeedsEscaping(e))
	assert.False(t, NeedsEscaping(sampleEntries()[0]))
}

func TestSummaryChart(t *testing.T) {
	main := samplePeriods()[0].Main
	c := NewSummaryChart(main)
	require.Len(t, c.Slices, len(main))
	require.Len(t, c.Series, len(main))
	for i, s := range main {
		assert.True(t, c.Slices[i].Value.Equal(s.Total))
		assert.Equal(t, s.Category, c.Slices[i].Name)
		assert.Equal(t, s.Category, c.Series[i].Field)
	}
	assert.Equal(t, "food 10 руб (10%)", c.Slices[0].Label)
	assert.Equal(t, "transport 90 руб (90%)", c.Series[1].Name)

	empty := NewSummaryChart(nil)
	assert.Empty(t, empty.Slices)
}

func TestSummaryChartKeepsPercentsAsGiven(t *testing.T) {
	// 7 + 93 != share of 5 and 90; the chart must not normalize.
	c := NewSummaryChart([]core.CategorySummary{
		core.NewCategorySummary("food", dec(5), dec(7)),
		core.NewCategorySummary("transport", dec(90), dec(93)),
	})
	assert.Equal(t, "food 5 руб (7%)", c.Slices[0].Label)
	assert.Equal(t, "transport 90 руб (93%)", c.Slices[1].Label)
}

type recordingRenderer struct {
	width, height int
	series        []SeriesItem
	values        []float64
	names         []string
}

func (r *recordingRenderer) Render(width, height int, series []SeriesItem, data []core.CategorySummary,
	value func(core.CategorySummary) float64, name func(core.CategorySummary) string) (template.HTML, error) {
	r.width, r.height, r.series = width, height, series
	for _, d := range data {
		r.values = append(r.values, value(d))
		r.names = append(r.names, name(d))
	}
	return "<svg></svg>", nil
}

func TestSummaryChartRenderDelegates(t *testing.T) {
	c := NewSummaryChart(samplePeriods()[0].Main)
	r := &recordingRenderer{}
	out, err := c.Render(r, DefaultChartWidth, DefaultChartHeight)
	require.NoError(t, err)
	assert.Equal(t, template.HTML("<svg></svg>"), out)
	assert.Equal(t, 950, r.width)
	assert.Equal(t, 500, r.height)
	assert.Equal(t, []float64{10, 90}, r.values)
	assert.Equal(t, []string{"food", "transport"}, r.names)
	assert.Equal(t, c.Series, r.series)
}

func TestReportView(t *testing.T) {
	p := samplePeriods()[0]
	v := NewReportView(p)

	assert.Equal(t, "Total(01.02.2018-31.03.2018)", v.Heading())
	assert.Equal(t, ViewReport, v.Selected())
	assert.Equal(t, []SubView{{ViewReport, "Отчет"}, {ViewData, "Данные"}, {ViewCSV, "CSV"}}, v.Views())

	before := v.Period()
	for _, key := range []string{ViewReport, ViewCSV, ViewData} {
		require.NoError(t, v.Select(key))
		assert.True(t, v.IsSelected(key))
		assert.Equal(t, before, v.Period())
		assert.Len(t, v.Table().Rows, len(p.Entries))
		assert.Len(t, v.Chart().Slices, len(p.Main))
		assert.Equal(t, RenderCSV(p.Entries), v.CSV())
	}

	assert.ErrorIs(t, v.Select("pie"), ErrUnknownView)
	assert.Equal(t, ViewData, v.Selected())
}

func TestReportViewCopiesInput(t *testing.T) {
	p := samplePeriods()[0]
	v := NewReportView(p)
	p.Entries[0].Product = "changed"
	assert.Equal(t, "coffee", v.Table().Rows[0].Product)
}

func TestDashboardTabs(t *testing.T) {
	d := NewDashboard(samplePeriods())
	tabs := d.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, "Total", tabs[0].Title)
	assert.Equal(t, "Feb", tabs[1].Title)

	active, ok := d.Active()
	require.True(t, ok)
	assert.Equal(t, "Total", active.Title)
	assert.True(t, d.IsActive(tabs[0].ID))

	require.NoError(t, d.Select(tabs[1].ID))
	active, _ = d.Active()
	assert.Equal(t, "Feb", active.Title)
	assert.False(t, d.IsActive(tabs[0].ID))
	assert.True(t, d.IsActive(tabs[1].ID))

	assert.ErrorIs(t, d.Select("missing"), ErrUnknownTab)
	assert.ErrorIs(t, d.SelectIndex(2), ErrUnknownTab)
	active, _ = d.Active()
	assert.Equal(t, "Feb", active.Title)

	require.NoError(t, d.SelectIndex(0))
	assert.True(t, d.IsActive(tabs[0].ID))
}

func TestDashboardKeyedIdentitySurvivesReorder(t *testing.T) {
	periods := samplePeriods()
	d := NewDashboard(periods)
	feb := d.Tabs()[1].ID

	reordered := NewDashboard([]core.ReportPeriod{periods[1], periods[0]})
	tab, ok := reordered.Tab(feb)
	require.True(t, ok)
	assert.Equal(t, "Feb", tab.Title)
}

func TestDashboardEmpty(t *testing.T) {
	d := NewDashboard(nil)
	_, ok := d.Active()
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len())
}

func TestDashboardForkIsolatesSelection(t *testing.T) {
	d := NewDashboard(samplePeriods())
	second := d.Tabs()[1]

	f := d.Fork()
	require.NoError(t, f.Select(second.ID))
	tab, _ := f.Tab(second.ID)
	require.NoError(t, tab.View.Select(ViewCSV))

	active, _ := d.Active()
	assert.Equal(t, "Total", active.Title)
	orig, _ := d.Tab(second.ID)
	assert.Equal(t, ViewReport, orig.View.Selected())
	assert.Equal(t, orig.View.CSV(), tab.View.CSV())
}

func TestEndToEndCSV(t *testing.T) {
	d := NewDashboard([]core.ReportPeriod{{
		Title:   "Март",
		Entries: []core.Entry{core.NewEntry("coffee", dec(5), "2018-02-16T11:10:00.000000000", "food")},
	}})
	tab, ok := d.Active()
	require.True(t, ok)
	require.NoError(t, tab.View.Select(ViewCSV))
	assert.Equal(t, []string{`"coffee",5,2018-02-16T11:10:00.000000000,"food"`}, tab.View.CSVLines())
}

func TestTextSummary(t *testing.T) {
	got := TextSummary(samplePeriods()[0])
	want := "01.02.2018 - 31.03.2018\n" +
		"Всего потрачено: 100. Всего записей: 3\n\n" +
		"food - 10 (10%), 2 ед.\n" +
		"transport - 90 (90%), 1 ед.\n"
	assert.Equal(t, want, got)
}
