package output

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	chartWidth  = 40
	barGlyph    = "█"
	trackGlyph  = "─"
	markerGlyph = "●"
)

// ChartPoint is one labelled value.
type ChartPoint struct {
	Label string
	Value float64
	// Text is printed after the bar or marker.
	Text string
}

// BarChart renders horizontal bars scaled to the largest value.
func (r *Renderer) BarChart(points []ChartPoint) string {
	if len(points) == 0 {
		return ""
	}

	maxValue := 0.0
	for _, p := range points {
		maxValue = math.Max(maxValue, p.Value)
	}

	var b strings.Builder
	width := labelWidth(points)
	for _, p := range points {
		n := 0
		if maxValue > 0 {
			n = int(math.Round(p.Value / maxValue * chartWidth))
		}
		if n == 0 && p.Value > 0 {
			n = 1
		}
		b.WriteString(pad(p.Label, width))
		b.WriteString(" │ ")
		b.WriteString(r.styles.Bar.Render(strings.Repeat(barGlyph, n)))
		b.WriteString(" ")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// SeriesChart renders one row per point with a marker placed between 90% of
// the smallest value and 110% of the largest.
func (r *Renderer) SeriesChart(points []ChartPoint) string {
	if len(points) == 0 {
		return ""
	}

	lo, hi := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	lo, hi = lo*0.9, hi*1.1
	span := hi - lo

	var b strings.Builder
	width := labelWidth(points)
	for _, p := range points {
		pos := chartWidth / 2
		if span > 0 {
			pos = int(math.Round((p.Value - lo) / span * chartWidth))
		}
		b.WriteString(pad(p.Label, width))
		b.WriteString(" │")
		b.WriteString(r.styles.Muted.Render(strings.Repeat(trackGlyph, pos)))
		b.WriteString(r.styles.Marker.Render(markerGlyph))
		b.WriteString(" ")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func labelWidth(points []ChartPoint) int {
	w := 0
	for _, p := range points {
		w = max(w, utf8.RuneCountInString(p.Label))
	}
	return w
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
