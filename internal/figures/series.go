package figures

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

func addLinePoints(p *plot.Plot, xys plotter.XYs, name string, style draw.LineStyle, glyph draw.GlyphStyle) error {
	line, scatter, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	line.LineStyle = style
	scatter.GlyphStyle = glyph
	p.Add(line, scatter)
	p.Legend.Add(name, line, scatter)
	return nil
}

// BiomassConcentration plots the total biomass concentration against time as
// a red line with cross markers.
func BiomassConcentration(t timeunit.Series, total []float64) (*plot.Plot, error) {
	xys, err := points(t.Values, total)
	if err != nil {
		return nil, err
	}
	p := newPlot("Biomass concentration according to time", timeLabel(t), "Biomass concentration [g]")
	style := draw.LineStyle{Color: red, Width: vg.Points(1.5)}
	glyph := draw.GlyphStyle{Color: red, Radius: vg.Points(3.5), Shape: draw.CrossGlyph{}}
	if err := addLinePoints(p, xys, "Biomass Concentration", style, glyph); err != nil {
		return nil, err
	}
	return p, nil
}

// LocalBiomassConcentration plots the biomass concentration of one compartment.
func LocalBiomassConcentration(t timeunit.Series, local []float64, compartment int) (*plot.Plot, error) {
	xys, err := points(t.Values, local)
	if err != nil {
		return nil, err
	}
	p := newPlot("Biomass concentration according to time", timeLabel(t), "Biomass concentration [g]")
	style := plotter.DefaultLineStyle
	glyph := draw.GlyphStyle{Color: style.Color, Radius: vg.Points(2.5), Shape: draw.CircleGlyph{}}
	if err := addLinePoints(p, xys, fmt.Sprintf("Compartment %d", compartment), style, glyph); err != nil {
		return nil, err
	}
	return p, nil
}

// Concentration plots the spatial average concentration of one species.
func Concentration(t timeunit.Series, values []float64, species int, phase results.Phase) (*plot.Plot, error) {
	xys, err := points(t.Values, values)
	if err != nil {
		return nil, err
	}
	p := newPlot(fmt.Sprintf("Spatial average concentration (%s)", phase), timeLabel(t), "Concentration [g/L]")
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle = draw.LineStyle{Color: blue, Width: vg.Points(1.5)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("Species %d", species), line)
	return p, nil
}

// PopulationMean plots the population mean of key. Steps without particles
// (NaN means) are left out.
func PopulationMean(t timeunit.Series, mean []float64, key string) (*plot.Plot, error) {
	xys, err := points(t.Values, mean)
	if err != nil {
		return nil, err
	}
	p := newPlot(fmt.Sprintf("Population mean of %s", key), timeLabel(t), key)
	style := plotter.DefaultLineStyle
	glyph := draw.GlyphStyle{Color: style.Color, Radius: vg.Points(2), Shape: draw.CircleGlyph{}}
	if err := addLinePoints(p, xys, "Mean "+key, style, glyph); err != nil {
		return nil, err
	}
	return p, nil
}

// Series plots any quantity against time as a plain line, one per name.
func Series(title, yLabel string, t timeunit.Series, names []string, values ...[]float64) (*plot.Plot, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d names for %d series", results.ErrShapeMismatch, len(names), len(values))
	}
	p := newPlot(title, timeLabel(t), yLabel)
	for i, v := range values {
		xys, err := points(t.Values, v)
		if err != nil {
			return nil, err
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = palette[i%len(palette)]
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(names[i], line)
	}
	return p, nil
}
