package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"otchet/internal/core"
)

// indexRow is one line of the index sheet: which tab holds which period.
type indexRow struct {
	Sheet      string
	Title      string
	TimePeriod core.TimePeriod
}

// parseIndex reads the index sheet. Expected headers: Sheet, Title, From, To.
// Rows without a sheet name are skipped; order is kept.
func parseIndex(values [][]interface{}) ([]indexRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colSheet := indexOf(headers, "Sheet")
	colTitle := indexOf(headers, "Title")
	colFrom := indexOf(headers, "From")
	colTo := indexOf(headers, "To")
	if colSheet == -1 {
		return nil, fmt.Errorf("unexpected index header: missing Sheet; got headers=%v", headers)
	}
	var out []indexRow
	for _, raw := range values[1:] {
		row := toStrings(raw)
		sheet := safeGet(row, colSheet)
		if sheet == "" || strings.HasPrefix(sheet, "#") {
			continue
		}
		out = append(out, indexRow{
			Sheet:      sheet,
			Title:      safeGet(row, colTitle),
			TimePeriod: core.TimePeriod{From: safeGet(row, colFrom), To: safeGet(row, colTo)},
		})
	}
	return out, nil
}

// parseSummary converts the summary block (Category, Total, Percent) into
// category summaries. "Persent" is accepted as a header alias.
func parseSummary(values [][]interface{}) ([]core.CategorySummary, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colCat := indexOf(headers, "Category")
	colTotal := indexOf(headers, "Total")
	colPct := indexOf(headers, "Percent")
	if colPct == -1 {
		colPct = indexOf(headers, "Persent")
	}
	if colCat == -1 || colTotal == -1 || colPct == -1 {
		return nil, fmt.Errorf("unexpected summary header: want Category, Total, Percent; got headers=%v", headers)
	}
	var out []core.CategorySummary
	for i, raw := range values[1:] {
		row := toStrings(raw)
		cat := safeGet(row, colCat)
		if cat == "" {
			continue
		}
		total, err := parseNumber(safeGet(row, colTotal))
		if err != nil {
			return nil, fmt.Errorf("summary row %d total: %w", i+2, err)
		}
		pct, err := parseNumber(safeGet(row, colPct))
		if err != nil {
			return nil, fmt.Errorf("summary row %d percent: %w", i+2, err)
		}
		out = append(out, core.NewCategorySummary(cat, total, pct))
	}
	return out, nil
}

// parseEntries converts the entries block (Product, Price, Time, Category).
func parseEntries(values [][]interface{}) ([]core.Entry, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colProduct := indexOf(headers, "Product")
	colPrice := indexOf(headers, "Price")
	colTime := indexOf(headers, "Time")
	colCat := indexOf(headers, "Category")
	if colProduct == -1 || colPrice == -1 {
		return nil, fmt.Errorf("unexpected entries header: want Product, Price, Time, Category; got headers=%v", headers)
	}
	var out []core.Entry
	for i, raw := range values[1:] {
		row := toStrings(raw)
		product := safeGet(row, colProduct)
		priceStr := safeGet(row, colPrice)
		if product == "" && priceStr == "" {
			continue
		}
		price, err := parseNumber(priceStr)
		if err != nil {
			return nil, fmt.Errorf("entries row %d price: %w", i+2, err)
		}
		out = append(out, core.NewEntry(product, price, safeGet(row, colTime), safeGet(row, colCat)))
	}
	return out, nil
}

// parseNumber accepts "5", "5.5", "5,5", "1 200 руб" and "7%". Empty is zero.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(strings.TrimSpace(s), "руб")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
