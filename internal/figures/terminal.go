package figures

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Styles for CLI output.
var (
	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ccff"))

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899"))

	Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Bold(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

// Terminal renders values as an ascii chart. Non-finite values are dropped;
// an empty string is returned when nothing is left to draw.
func Terminal(values []float64, caption string) string {
	data := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// KeyValues renders aligned "key: value" rows inside a bordered panel.
func KeyValues(title string, keys, values []string) string {
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	var b strings.Builder
	b.WriteString(Heading.Render(title))
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		b.WriteString("\n")
		b.WriteString(Label.Render(k + ":" + strings.Repeat(" ", width-len(k)+1)))
		b.WriteString(Value.Render(v))
	}
	return Panel.Render(b.String())
}

// Sparkline is a one-line block chart, used for compact listings.
func Sparkline(values []float64) string {
	const ticks = "▁▂▃▄▅▆▇█"
	r := []rune(ticks)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if finite(v) {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	var b strings.Builder
	for _, v := range values {
		switch {
		case !finite(v):
			b.WriteRune(' ')
		case hi == lo:
			b.WriteRune(r[0])
		default:
			b.WriteRune(r[int((v-lo)/(hi-lo)*float64(len(r)-1))])
		}
	}
	return b.String()
}
