// Package rtd estimates residence-time distributions (RTD) of a run.
//
// Two independent estimates are provided. [FromScalar] differentiates the
// response of a tracer to a step injection; [FromParticles] histograms the
// residence times recorded by particle probes. They are meant to be
// compared visually and are never reconciled numerically.
package rtd

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

// ParticleBins is the number of bins of the particle RTD histogram.
const ParticleBins = 100

// ErrInvalidStep is returned when the step-input magnitude is zero or not finite.
var ErrInvalidStep = errors.New("rtd: step concentration must be finite and non-zero")

// Scalar is the tracer-based estimate. F has one value per time sample; E
// has one value per interval and is aligned with Time.Values[1:].
type Scalar struct {
	Time timeunit.Series
	F    []float64
	E    []float64
}

// ETime returns the time values E is aligned with.
func (s Scalar) ETime() []float64 {
	if len(s.Time.Values) == 0 {
		return nil
	}
	return s.Time.Values[1:]
}

// In returns the estimate on a time axis in u. F is unchanged; E is rescaled
// so that it stays a density per unit of u.
func (s Scalar) In(u timeunit.Unit) Scalar {
	time := s.Time.In(u)
	k := 1.0
	if len(s.Time.Values) > 0 {
		from := s.Time.Unit
		if from == "" {
			from = timeunit.Seconds
		}
		k = u.Scale() / from.Scale()
	}
	e := make([]float64, len(s.E))
	for i, v := range s.E {
		e[i] = v * k
	}
	return Scalar{Time: time, F: slices.Clone(s.F), E: e}
}

// FromScalar computes the cumulative distribution F(t) = (c(t) - c(0)) / step
// and its density E = dF/dt by first differences. E is expressed per unit of
// time.Unit. The caller's step magnitude is always used as given.
func FromScalar(time timeunit.Series, c []float64, step float64) (Scalar, error) {
	if len(time.Values) != len(c) {
		return Scalar{}, fmt.Errorf("%w: %d time values for %d concentrations",
			results.ErrShapeMismatch, len(time.Values), len(c))
	}
	if len(c) < 2 {
		return Scalar{}, fmt.Errorf("%w: need at least 2 samples, got %d", results.ErrEmptySample, len(c))
	}
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return Scalar{}, fmt.Errorf("%w: got %v", ErrInvalidStep, step)
	}

	f := make([]float64, len(c))
	for i, v := range c {
		f[i] = (v - c[0]) / step
	}
	t := time.Values
	e := make([]float64, len(f)-1)
	for i := range e {
		e[i] = (f[i+1] - f[i]) / (t[i+1] - t[i])
	}

	return Scalar{
		Time: timeunit.Series{Values: slices.Clone(t), Unit: time.Unit},
		F:    f,
		E:    e,
	}, nil
}

// FromScalarRun reads the liquid spatial average of species 0 from r and
// applies FromScalar. Provider errors are returned unchanged.
func FromScalarRun(r results.ConcentrationReader, time timeunit.Series, step float64) (Scalar, error) {
	c, err := r.SpatialAverageConcentration(0, results.Liquid)
	if err != nil {
		return Scalar{}, err
	}
	return FromScalar(time, c, step)
}

// FromParticles converts probe residence times from seconds to hours and
// returns their density histogram over ParticleBins bins. Counts hold
// densities, so sum(Counts[i] * width[i]) is 1.
func FromParticles(probes []float64) (results.Histogram, error) {
	hours := make([]float64, len(probes))
	for i, p := range probes {
		hours[i] = p / timeunit.SecondsPerHour
	}
	h, err := results.NewHistogram(hours, ParticleBins)
	if err != nil {
		return results.Histogram{}, err
	}
	return h.AsDensity(), nil
}

// FromParticleRun reads the probes of r and applies FromParticles.
func FromParticleRun(r results.ProbeReader) (results.Histogram, error) {
	probes, err := r.Probes()
	if err != nil {
		return results.Histogram{}, err
	}
	return FromParticles(probes)
}
