package view

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"otchet/internal/core"
)

// TextSummary renders a short plain-text digest of a period, the format
// used when the report was posted to chat:
//
//	<from> - <to>
//	Всего потрачено: <sum of totals>. Всего записей: <entries>
//
//	<category> - <total> (<persent>%), <entries in category> ед.
func TextSummary(p core.ReportPeriod) string {
	total := decimal.Zero
	for _, s := range p.Main {
		total = total.Add(s.Total)
	}
	counts := make(map[string]int, len(p.Main))
	for _, e := range p.Entries {
		counts[e.Category]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", p.TimePeriod.From, p.TimePeriod.To)
	fmt.Fprintf(&b, "Всего потрачено: %s. Всего записей: %d\n\n", total.String(), len(p.Entries))
	for _, s := range p.Main {
		fmt.Fprintf(&b, "%s - %s (%s%%), %d ед.\n", s.Category, s.Total.String(), s.Percent.String(), counts[s.Category])
	}
	return b.String()
}
