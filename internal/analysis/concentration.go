package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/biomcpp/internal/results"
)

// SpatialAverage returns the volume-weighted concentration of species in phase.
func SpatialAverage(r results.ConcentrationReader, species int, phase results.Phase) ([]float64, error) {
	return r.SpatialAverageConcentration(species, phase)
}

// TimeAverage returns the time-averaged concentration profile of species.
func TimeAverage(r results.ConcentrationReader, species, compartment int, phase results.Phase) ([]float64, error) {
	return r.TimeAverageConcentration(species, compartment, phase)
}

// SpatialAverageField computes sum(c*v)/sum(v) over the columns of each row.
func SpatialAverageField(conc, vol *mat.Dense) ([]float64, error) {
	if err := sameDims(conc, vol); err != nil {
		return nil, err
	}
	nt, _ := conc.Dims()
	out := make([]float64, nt)
	for i := range out {
		out[i] = floats.Dot(conc.RawRowView(i), vol.RawRowView(i)) / floats.Sum(vol.RawRowView(i))
	}
	return out, nil
}

// VarianceConcentration is the volume-weighted spread of the concentration
// around its spatial mean: sum(v * (c - mean)^2) for each step.
func VarianceConcentration(conc, vol *mat.Dense) ([]float64, error) {
	mean, err := SpatialAverageField(conc, vol)
	if err != nil {
		return nil, err
	}
	_, nc := conc.Dims()
	out := make([]float64, len(mean))
	for i := range out {
		c, v := conc.RawRowView(i), vol.RawRowView(i)
		for k := 0; k < nc; k++ {
			d := c[k] - mean[i]
			out[i] += d * d * v[k]
		}
	}
	return out, nil
}

// NormalizeConcentration divides each row of conc by the matching mean.
func NormalizeConcentration(conc *mat.Dense, mean []float64) (*mat.Dense, error) {
	if conc.IsEmpty() && len(mean) == 0 {
		return &mat.Dense{}, nil
	}
	nt, nc := conc.Dims()
	if nt != len(mean) {
		return nil, fmt.Errorf("%w: %d rows for %d means", results.ErrShapeMismatch, nt, len(mean))
	}
	out := mat.NewDense(nt, nc, nil)
	out.Apply(func(i, _ int, v float64) float64 { return v / mean[i] }, conc)
	return out, nil
}

// Heterogeneity gathers the spatial statistics of one species.
type Heterogeneity struct {
	Mean       []float64
	Variance   []float64
	Normalized *mat.Dense
}

// ConcentrationHeterogeneity reads species in phase from r and computes its
// spatial mean, volume-weighted variance and normalized field.
func ConcentrationHeterogeneity(r results.ConcentrationReader, species int, phase results.Phase) (Heterogeneity, error) {
	f, err := r.Concentrations(phase)
	if err != nil {
		return Heterogeneity{}, err
	}
	conc, err := f.SpeciesSlice(species)
	if err != nil {
		return Heterogeneity{}, err
	}
	vol, err := r.Volumes(phase)
	if err != nil {
		return Heterogeneity{}, err
	}
	mean, err := SpatialAverageField(conc, vol)
	if err != nil {
		return Heterogeneity{}, err
	}
	variance, err := VarianceConcentration(conc, vol)
	if err != nil {
		return Heterogeneity{}, err
	}
	norm, err := NormalizeConcentration(conc, mean)
	if err != nil {
		return Heterogeneity{}, err
	}
	return Heterogeneity{Mean: mean, Variance: variance, Normalized: norm}, nil
}

func sameDims(a, b *mat.Dense) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("%w: %d×%d vs %d×%d", results.ErrShapeMismatch, ar, ac, br, bc)
	}
	return nil
}

// relClose reports whether a and b agree within rel relative tolerance.
// Two NaNs agree.
func relClose(a, b, rel float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return floats.EqualWithinAbsOrRel(a, b, rel, rel)
}
