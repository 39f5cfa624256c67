package view

import (
	"strings"

	"otchet/internal/core"
)

// CSVLine formats an entry as "<product>",<price>,<time>,"<category>".
//
// Quotes and commas inside product or category are not escaped, so such
// values break the column structure. Consumers rely on this exact byte
// format; do not switch to encoding/csv without agreeing a new format.
func CSVLine(e core.Entry) string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(e.Product)
	b.WriteString(`",`)
	b.WriteString(e.Price.String())
	b.WriteByte(',')
	b.WriteString(e.Time)
	b.WriteString(`,"`)
	b.WriteString(e.Category)
	b.WriteByte('"')
	return b.String()
}

// CSVLines returns one line per entry, in input order, without terminators.
func CSVLines(entries []core.Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, CSVLine(e))
	}
	return lines
}

// RenderCSV returns the CSV text with every line terminated by "\n".
func RenderCSV(entries []core.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(CSVLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// NeedsEscaping reports whether the entry contains characters that corrupt
// its CSV line. Used to flag affected rows on screen.
func NeedsEscaping(e core.Entry) bool {
	return strings.ContainsAny(e.Product, "\",\n") || strings.ContainsAny(e.Category, "\",\n")
}
