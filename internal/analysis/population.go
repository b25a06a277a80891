package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/biomcpp/internal/results"
)

// PopulationMeanLoop computes the population mean of key with one provider
// query per export step.
func PopulationMeanLoop(r results.PopulationReader, key string) ([]float64, error) {
	out := make([]float64, r.NExport())
	for i := range out {
		m, err := r.PopulationMean(key, i)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// PopulationMeanVectorized computes the same series as PopulationMeanLoop with
// a single provider query.
func PopulationMeanVectorized(r results.PopulationReader, key string) ([]float64, error) {
	return r.TimePopulationMean(key)
}

// MismatchError reports the first step where two mean series disagree.
type MismatchError struct {
	Step   int
	A, B   float64
	RelTol float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("population means differ at step %d: %g vs %g (relative tolerance %g)",
		e.Step, e.A, e.B, e.RelTol)
}

// CheckAgreement verifies that a and b agree element-wise within rel. NaN
// entries (steps without particles) must be NaN in both.
func CheckAgreement(a, b []float64, rel float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d vs %d steps", results.ErrShapeMismatch, len(a), len(b))
	}
	for i := range a {
		if !relClose(a[i], b[i], rel) {
			return &MismatchError{Step: i, A: a[i], B: b[i], RelTol: rel}
		}
	}
	return nil
}

// Histogram bins key at export step iExport and multiplies the bin edges by
// edgeScale, e.g. 3600 to turn a per-second quantity into a per-hour one.
func Histogram(r results.PopulationReader, bins, iExport int, key string, edgeScale float64) (results.Histogram, error) {
	h, err := r.Histogram(bins, iExport, key)
	if err != nil {
		return results.Histogram{}, err
	}
	if edgeScale == 1 {
		return h, nil
	}
	return h.ScaleEdges(edgeScale), nil
}

// GrowthInNumber is the total particle count at each step.
func GrowthInNumber(r results.PopulationReader) []float64 {
	return r.GrowthInNumber()
}

// Estimate aggregates particle values x with the statistical weight w.
// Weighted returns sum(x*w). MonteCarlo normalizes that sum by the total
// weight. A zero weighted sum yields 0 for both.
func Estimate(kind results.Estimator, w results.Weight, x []float64) (float64, error) {
	var sum float64
	if w.IsSingle() {
		sum = floats.Sum(x) * w.Single
	} else {
		if len(w.Multiple) != len(x) {
			return 0, fmt.Errorf("%w: %d weights for %d particles", results.ErrShapeMismatch, len(w.Multiple), len(x))
		}
		sum = floats.Dot(x, w.Multiple)
	}
	if sum == 0 {
		return 0, nil
	}

	switch kind {
	case results.Weighted:
		return sum, nil
	case results.MonteCarlo:
		if w.IsSingle() {
			return sum / (float64(len(x)) * w.Single), nil
		}
		return sum / floats.Sum(w.Multiple), nil
	}
	return 0, fmt.Errorf("unknown estimator %d", kind)
}

// EstimateTime applies Estimate to key at every export step.
func EstimateTime(r results.PopulationReader, kind results.Estimator, key string) ([]float64, error) {
	out := make([]float64, r.NExport())
	for i := range out {
		x, err := r.Properties(key, i)
		if err != nil {
			return nil, err
		}
		if out[i], err = Estimate(kind, r.Weight(), x); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GrowthRate estimates the specific growth rate mu = (dM/dt)/M of the total
// particle mass M, with a forward difference at the first step, central
// differences inside and a backward difference at the last step.
func GrowthRate(r results.PopulationReader) ([]float64, error) {
	if !r.Weight().IsSingle() {
		return nil, &results.LookupError{Op: "growth rate", Key: "per-particle weight", Wrapped: results.ErrNotAvailable}
	}
	nt := r.NExport()
	if nt < 2 {
		return nil, fmt.Errorf("%w: growth rate needs at least 2 steps, got %d", results.ErrEmptySample, nt)
	}

	mass := make([]float64, nt)
	for i := range mass {
		m, err := r.Properties("mass", i)
		if err != nil {
			return nil, err
		}
		mass[i] = floats.Sum(m)
	}

	t := r.Time()
	mu := func(i, j int) float64 {
		return (mass[i] - mass[j]) / (t[i] - t[j]) / mass[i]
	}
	out := make([]float64, nt)
	out[0] = mu(1, 0)
	for i := 1; i < nt-1; i++ {
		out[i] = mu(i+1, i-1)
	}
	out[nt-1] = mu(nt-1, nt-2)
	return out, nil
}
