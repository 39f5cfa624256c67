// Package view turns report periods into the display projections the
// dashboard renders: the entry table, the CSV text, the chart input and
// the tab/sub-view selection around them.
//
// Nothing here validates data. Whatever the period holds is rendered.
package view

import "otchet/internal/core"

// TableHeader is the fixed column set of the entries table.
var TableHeader = []string{"#", "Товар", "Цена", "Дата", "Категория"}

// TableRow is one rendered entry. Index is the 0-based input position.
type TableRow struct {
	Index    int
	Product  string
	Price    string
	Time     string
	Category string
}

// EntryTable is the tabular projection of a period's entries.
type EntryTable struct {
	Header []string
	Rows   []TableRow
}

// NewEntryTable builds one row per entry in input order.
func NewEntryTable(entries []core.Entry) EntryTable {
	t := EntryTable{
		Header: append([]string(nil), TableHeader...),
		Rows:   make([]TableRow, 0, len(entries)),
	}
	for i, e := range entries {
		t.Rows = append(t.Rows, TableRow{
			Index:    i,
			Product:  e.Product,
			Price:    e.Price.String(),
			Time:     e.Time,
			Category: e.Category,
		})
	}
	return t
}

// Empty reports whether the table only has its header.
func (t EntryTable) Empty() bool {
	return len(t.Rows) == 0
}
