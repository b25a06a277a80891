package results

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram holds bin edges and per-bin counts. len(Edges) == len(Counts)+1.
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// NewHistogram bins values into nBins equal-width bins spanning [min, max].
// The last bin is closed on the right. A constant sample is spread over
// [v-0.5, v+0.5]. NaN and infinite values are ignored.
func NewHistogram(values []float64, nBins int) (Histogram, error) {
	if nBins <= 0 {
		return Histogram{}, OutOfRange("histogram bins", nBins, 1)
	}
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return Histogram{}, ErrEmptySample
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := floats.Span(make([]float64, nBins+1), lo, hi)

	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[nBins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	return Histogram{Edges: edges, Counts: counts}, nil
}

// Bins returns the number of bins.
func (h Histogram) Bins() int {
	return len(h.Counts)
}

func (h Histogram) Widths() []float64 {
	if len(h.Edges) < 2 {
		return nil
	}
	w := make([]float64, len(h.Edges)-1)
	floats.SubTo(w, h.Edges[1:], h.Edges[:len(h.Edges)-1])
	return w
}

// Density normalizes counts so that the bar areas sum to one:
// density[i] = count[i] / (sum(count) * width[i]).
func (h Histogram) Density() []float64 {
	total := floats.Sum(h.Counts)
	widths := h.Widths()
	d := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		d[i] = c / (total * widths[i])
	}
	return d
}

// AsDensity returns a copy whose counts are replaced by Density().
func (h Histogram) AsDensity() Histogram {
	edges := make([]float64, len(h.Edges))
	copy(edges, h.Edges)
	return Histogram{Edges: edges, Counts: h.Density()}
}

// ScaleEdges returns a copy with every edge multiplied by factor.
func (h Histogram) ScaleEdges(factor float64) Histogram {
	edges := make([]float64, len(h.Edges))
	copy(edges, h.Edges)
	floats.Scale(factor, edges)
	counts := make([]float64, len(h.Counts))
	copy(counts, h.Counts)
	return Histogram{Edges: edges, Counts: counts}
}

// Validate checks the edges/counts length invariant.
func (h Histogram) Validate() error {
	if len(h.Edges) != len(h.Counts)+1 {
		return fmt.Errorf("%w: %d edges for %d counts", ErrShapeMismatch, len(h.Edges), len(h.Counts))
	}
	return nil
}
