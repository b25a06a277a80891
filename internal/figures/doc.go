// Package figures renders derived run quantities as static images and
// terminal previews.
//
// Renderers take the arrays computed by packages analysis and rtd and return
// a *plot.Plot with fixed styling; they never modify their inputs. The time
// axis is always a [timeunit.Series], so the axis label follows the unit of
// the values actually plotted.
//
//	t := timeunit.Normalize(run.Time())
//	total, _ := analysis.TotalBiomass(run)
//	p, _ := figures.BiomassConcentration(t, total)
//	path, err := figures.Save(p, outDir, figures.BiomassFile, figures.SVG)
//
// [Terminal] draws the same series with asciigraph for quick inspection.
package figures
