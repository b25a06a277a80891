package figures

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

// Figure size: 800×600 pixels at 96 dpi.
const (
	Width  = 800 * vg.Inch / 96
	Height = 600 * vg.Inch / 96
)

// Default file names, without extension.
const (
	BiomassFile        = "biomass_concentration_over_time"
	LocalBiomassFile   = "local_biomass_concentration_over_time"
	ConcentrationFile  = "concentration_over_time"
	PopulationMeanFile = "population_mean_over_time"
	HistogramFile      = "histogram"
	RTDFile            = "rtd"
)

// Format is an output image format.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ParseFormat accepts "svg" or "png", with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case SVG, PNG:
		return f, nil
	}
	return "", fmt.Errorf("unsupported figure format %q (available: svg, png)", s)
}

var (
	red   = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	blue  = color.NRGBA{R: 0, G: 0, B: 255, A: 179}
	black = color.Black
	gray  = color.Gray{Y: 200}
)

// newPlot creates a plot with the common layout.
func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	g := plotter.NewGrid()
	g.Vertical.Color = gray
	g.Horizontal.Color = gray
	p.Add(g)
	return p
}

// points pairs x and y, skipping pairs with a non-finite value.
func points(x, y []float64) (plotter.XYs, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x values for %d y values", results.ErrShapeMismatch, len(x), len(y))
	}
	xys := make(plotter.XYs, 0, len(x))
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("%w: no finite point to plot", results.ErrEmptySample)
	}
	return xys, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Save writes p to dir/name.<format>, creating dir if needed, and returns the
// written path.
func Save(p *plot.Plot, dir, name string, format Format) (string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"."+string(format))
	if err := p.Save(Width, Height, path); err != nil {
		return "", fmt.Errorf("failed to save figure %s: %w", path, err)
	}
	return path, nil
}

func timeLabel(t timeunit.Series) string {
	return t.Label()
}

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}
