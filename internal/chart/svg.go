// Package chart renders report pie charts as inline SVG.
package chart

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"otchet/internal/core"
	"otchet/internal/view"
)

// palette is cycled through for slices.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// SVGRenderer draws a pie on the left and a legend with the series names on
// the right. It implements view.ChartRenderer.
type SVGRenderer struct {
	// LegendWidth is the space reserved for the legend; 0 means a third of
	// the width.
	LegendWidth int
}

var _ view.ChartRenderer = SVGRenderer{}

// Render draws data using the value and name accessors. Series entries are
// matched to data by field name; unmatched data falls back to its name.
func (r SVGRenderer) Render(width, height int, series []view.SeriesItem, data []core.CategorySummary,
	value func(core.CategorySummary) float64, name func(core.CategorySummary) string) (template.HTML, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid chart size %dx%d", width, height)
	}

	labels := make(map[string]string, len(series))
	for _, s := range series {
		labels[s.Field] = s.Name
	}

	var total float64
	for _, d := range data {
		if v := value(d); v > 0 {
			total += v
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg class="pie-chart" xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`,
		width, height, width, height)

	if total <= 0 {
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" class="pie-chart__empty">Нет данных</text></svg>`, width/2, height/2)
		return template.HTML(b.String()), nil
	}

	legend := r.LegendWidth
	if legend <= 0 {
		legend = width / 3
	}
	cx := float64(width-legend) / 2
	cy := float64(height) / 2
	radius := math.Min(cx, cy) * 0.9

	angle := -math.Pi / 2
	for i, d := range data {
		v := value(d)
		if v <= 0 {
			continue
		}
		color := palette[i%len(palette)]
		title := template.HTMLEscapeString(label(labels, name(d)))
		sweep := v / total * 2 * math.Pi
		if sweep >= 2*math.Pi-1e-9 {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"><title>%s</title></circle>`, cx, cy, radius, color, title)
			angle += sweep
			continue
		}
		x1, y1 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
		angle += sweep
		x2, y2 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
		large := 0
		if sweep > math.Pi {
			large = 1
		}
		fmt.Fprintf(&b, `<path d="M%.2f,%.2f L%.2f,%.2f A%.2f,%.2f 0 %d,1 %.2f,%.2f Z" fill="%s"><title>%s</title></path>`,
			cx, cy, x1, y1, radius, radius, large, x2, y2, color, title)
	}

	lx := width - legend + 10
	for i, d := range data {
		y := 30 + i*24
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="14" height="14" fill="%s"/>`, lx, y-12, palette[i%len(palette)])
		fmt.Fprintf(&b, `<text x="%d" y="%d" class="pie-chart__legend">%s</text>`, lx+20, y, template.HTMLEscapeString(label(labels, name(d))))
	}

	b.WriteString(`</svg>`)
	return template.HTML(b.String()), nil
}

func label(labels map[string]string, name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}
