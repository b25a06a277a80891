package figures

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/rtd"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

// BarHeights returns the bar height of every bin of h. With density set,
// height[i] = count[i] / (sum(count) * width[i]); otherwise the counts are
// copied unchanged.
func BarHeights(h results.Histogram, density bool) ([]float64, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if h.Bins() == 0 {
		return nil, fmt.Errorf("%w: histogram has no bins", results.ErrEmptySample)
	}
	if !density {
		out := make([]float64, len(h.Counts))
		copy(out, h.Counts)
		return out, nil
	}
	return h.Density(), nil
}

// bars builds one bar per bin, spanning [Edges[i], Edges[i+1]].
func bars(h results.Histogram, heights []float64) *plotter.Histogram {
	bins := make([]plotter.HistogramBin, len(heights))
	for i, w := range heights {
		bins[i] = plotter.HistogramBin{Min: h.Edges[i], Max: h.Edges[i+1], Weight: w}
	}
	var width float64
	if len(h.Edges) > 1 {
		width = h.Edges[1] - h.Edges[0]
	}
	return &plotter.Histogram{Bins: bins, Width: width}
}

// HistogramBars draws h as bars at Edges[:-1] with width diff(Edges).
func HistogramBars(h results.Histogram, density bool, label, xLabel string) (*plot.Plot, error) {
	heights, err := BarHeights(h, density)
	if err != nil {
		return nil, err
	}
	yLabel := "Count"
	if density {
		yLabel = "Density"
	}
	p := newPlot(fmt.Sprintf("Histogram of %s", label), xLabel, yLabel)
	b := bars(h, heights)
	b.FillColor = palette[0]
	b.LineStyle = draw.LineStyle{Color: black, Width: vg.Points(0.5)}
	p.Add(b)
	p.Legend.Add(label, b)
	return p, nil
}

// RTD overlays the scalar estimate E(t) as a dashed red line and the particle
// density histogram as blue bars. The particle histogram is binned in hours,
// so the scalar estimate is converted to hours before both share the x axis.
func RTD(scalar rtd.Scalar, particles results.Histogram) (*plot.Plot, error) {
	scalar = scalar.In(timeunit.Hours)
	xys, err := points(scalar.ETime(), scalar.E)
	if err != nil {
		return nil, err
	}
	heights, err := BarHeights(particles, false)
	if err != nil {
		return nil, err
	}

	p := newPlot("Residence time distribution", scalar.Time.Label(), "E(t)")

	b := bars(particles, heights)
	b.FillColor = blue
	b.LineStyle = draw.LineStyle{Color: black, Width: vg.Points(0.5)}
	p.Add(b)
	p.Legend.Add("Particles", b)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle = draw.LineStyle{
		Color:  red,
		Width:  vg.Points(1.5),
		Dashes: []vg.Length{vg.Points(6), vg.Points(3)},
	}
	p.Add(line)
	p.Legend.Add("Scalar", line)
	return p, nil
}
