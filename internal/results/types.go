package results

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Phase selects the physical phase of a compartment field.
type Phase int

const (
	Liquid Phase = iota
	Gas
)

func (p Phase) String() string {
	switch p {
	case Liquid:
		return "liquid"
	case Gas:
		return "gas"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase maps "liquid" or "gas" (case-insensitive) to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "liquid", "l":
		return Liquid, nil
	case "gas", "g":
		return Gas, nil
	}
	return 0, &LookupError{Op: "parse phase", Key: s, Wrapped: ErrPhaseAbsent}
}

// Estimator selects how particle values are aggregated.
type Estimator int

const (
	// MonteCarlo is the weight-normalized mean.
	MonteCarlo Estimator = iota
	// Weighted is the weighted sum.
	Weighted
)

// Weight is the statistical weight of numerical particles: one value shared
// by all particles, or one value per particle when Multiple is set.
type Weight struct {
	Single   float64
	Multiple []float64
}

func SingleWeight(w float64) Weight {
	return Weight{Single: w}
}

func (w Weight) IsSingle() bool {
	return w.Multiple == nil
}

// TimeReader exposes the time axis of a run.
type TimeReader interface {
	Time() []float64
	NExport() int
}

// ConcentrationReader exposes compartment concentration fields.
type ConcentrationReader interface {
	TimeReader
	SpatialAverageConcentration(species int, phase Phase) ([]float64, error)
	TimeAverageConcentration(species, position int, phase Phase) ([]float64, error)
	Concentrations(phase Phase) (Field3, error)
	// Volumes is steps × compartments.
	Volumes(phase Phase) (*mat.Dense, error)
	SpatialAverageMTR(species int) ([]float64, error)
}

// BiomassReader exposes biomass concentration fields.
type BiomassReader interface {
	TimeReader
	// BiomassConcentration is steps × compartments.
	BiomassConcentration() (*mat.Dense, error)
	SpatialAverageBiomassConcentration() ([]float64, error)
}

// PopulationReader exposes per-particle properties at each export step.
type PopulationReader interface {
	TimeReader
	PropertyNames() []string
	MaxNExportBio() int
	Weight() Weight
	Properties(key string, iExport int) ([]float64, error)
	PopulationMean(key string, iExport int) (float64, error)
	TimePopulationMean(key string) ([]float64, error)
	Histogram(nBins, iExport int, key string) (Histogram, error)
	NumberParticle() *mat.Dense
	GrowthInNumber() []float64
}

// ProbeReader exposes particle residence-time probes, in seconds.
type ProbeReader interface {
	Probes() ([]float64, error)
}

// EventReader exposes the final Monte-Carlo event counters.
type EventReader interface {
	Events() map[string]uint64
	Tallies() (Tallies, error)
}

// Reader is the full result provider.
type Reader interface {
	ConcentrationReader
	BiomassReader
	PopulationReader
	ProbeReader
	EventReader
}
