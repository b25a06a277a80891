package analysis

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/biomcpp/internal/results"
)

// TotalBiomass sums the per-compartment biomass concentration of each step.
func TotalBiomass(r results.BiomassReader) ([]float64, error) {
	m, err := r.BiomassConcentration()
	if err != nil {
		return nil, err
	}
	if m.IsEmpty() {
		return []float64{}, nil
	}
	nt, _ := m.Dims()
	out := make([]float64, nt)
	for i := range out {
		out[i] = floats.Sum(m.RawRowView(i))
	}
	return out, nil
}

// LocalBiomass returns the biomass concentration of one compartment at each step.
func LocalBiomass(r results.BiomassReader, compartment int) ([]float64, error) {
	m, err := r.BiomassConcentration()
	if err != nil {
		return nil, err
	}
	nc := 0
	if !m.IsEmpty() {
		_, nc = m.Dims()
	}
	if compartment < 0 || compartment >= nc {
		return nil, results.OutOfRange("local biomass", compartment, nc)
	}
	nt, _ := m.Dims()
	out := make([]float64, nt)
	for i := range out {
		out[i] = m.At(i, compartment)
	}
	return out, nil
}

// SpatialAverageBiomass is the reactor-wide biomass concentration computed
// from particle masses.
func SpatialAverageBiomass(r results.BiomassReader) ([]float64, error) {
	return r.SpatialAverageBiomassConcentration()
}
