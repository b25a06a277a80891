package resultfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/biomcpp/internal/results"
)

// ErrNoRuns is returned when a concatenation is built from zero runs.
var ErrNoRuns = errors.New("resultfile: need at least one run")

// Concat presents several runs (typically restarts of one simulation) as a
// single run whose export steps follow each other in the given order.
// Time values are joined as stored; each run is expected to carry absolute time.
type Concat struct {
	runs []*Run
	time []float64
}

var (
	_ results.ConcentrationReader = (*Concat)(nil)
	_ results.BiomassReader       = (*Concat)(nil)
)

// NewConcat joins already opened runs. The runs keep ownership of their files;
// Concat.Close closes them all.
func NewConcat(runs ...*Run) (*Concat, error) {
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	c := &Concat{runs: runs}
	for _, r := range runs {
		c.time = append(c.time, r.Time()...)
	}
	return c, nil
}

// OpenConcat opens every named run under root and joins them.
func OpenConcat(ctx context.Context, names []string, root string, opts ...Option) (*Concat, error) {
	if len(names) == 0 {
		return nil, ErrNoRuns
	}
	runs := make([]*Run, 0, len(names))
	for _, name := range names {
		r, err := Open(ctx, name, root, opts...)
		if err != nil {
			for _, opened := range runs {
				opened.Close()
			}
			return nil, err
		}
		runs = append(runs, r)
	}
	runs[0].logger.Debug("runs concatenated", slog.Int("runs", len(runs)))
	return NewConcat(runs...)
}

func (c *Concat) Close() error {
	var errs []error
	for _, r := range c.runs {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

func (c *Concat) Runs() []*Run { return c.runs }

func (c *Concat) Time() []float64 { return c.time }

func (c *Concat) NExport() int { return len(c.time) }

// TimeEnd returns the last time value of each run.
func (c *Concat) TimeEnd() ([]float64, error) {
	out := make([]float64, len(c.runs))
	for i, r := range c.runs {
		t := r.Time()
		if len(t) == 0 {
			return nil, &results.LookupError{Op: "time end", Key: r.Name(), Wrapped: results.ErrEmptySample}
		}
		out[i] = t[len(t)-1]
	}
	return out, nil
}

func (c *Concat) MaxNExportBio() int {
	n := 0
	for _, r := range c.runs {
		n += r.MaxNExportBio()
	}
	return n
}

// PropertyNames are those of the first run.
func (c *Concat) PropertyNames() []string { return c.runs[0].PropertyNames() }

func (c *Concat) Weight() results.Weight { return c.runs[0].Weight() }

func (c *Concat) join(f func(r *Run) ([]float64, error)) ([]float64, error) {
	out := make([]float64, 0, len(c.time))
	for _, r := range c.runs {
		v, err := f(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v...)
	}
	return out, nil
}

func (c *Concat) SpatialAverageConcentration(species int, phase results.Phase) ([]float64, error) {
	return c.join(func(r *Run) ([]float64, error) {
		return r.SpatialAverageConcentration(species, phase)
	})
}

func (c *Concat) SpatialAverageMTR(species int) ([]float64, error) {
	return c.join(func(r *Run) ([]float64, error) {
		return r.SpatialAverageMTR(species)
	})
}

func (c *Concat) SpatialAverageBiomassConcentration() ([]float64, error) {
	return c.join(func(r *Run) ([]float64, error) {
		return r.SpatialAverageBiomassConcentration()
	})
}

// Concentrations stacks the fields of every run along the step axis. All runs
// must share the compartment and species counts.
func (c *Concat) Concentrations(phase results.Phase) (results.Field3, error) {
	var steps, nc, ns int
	var data []float64
	for i, r := range c.runs {
		f, err := r.Concentrations(phase)
		if err != nil {
			return results.Field3{}, err
		}
		if i == 0 {
			nc, ns = f.Compartments, f.Species
		} else if f.Compartments != nc || f.Species != ns {
			return results.Field3{}, fmt.Errorf("%w: run %q has %d×%d compartments×species, want %d×%d",
				results.ErrShapeMismatch, r.Name(), f.Compartments, f.Species, nc, ns)
		}
		steps += f.Steps
		data = append(data, f.Data...)
	}
	return results.NewField3(steps, nc, ns, data)
}

// TimeAverageConcentration averages over the steps of every run.
func (c *Concat) TimeAverageConcentration(species, position int, phase results.Phase) ([]float64, error) {
	// Validation is delegated to the first run.
	if _, err := c.runs[0].TimeAverageConcentration(species, position, phase); err != nil {
		return nil, err
	}
	f, err := c.Concentrations(phase)
	if err != nil {
		return nil, err
	}
	out := make([]float64, f.Compartments)
	if f.Steps == 0 {
		return out, nil
	}
	for t := 0; t < f.Steps; t++ {
		for k := range out {
			out[k] += f.At(t, k, species)
		}
	}
	floats.Scale(1/float64(f.Steps), out)
	return out, nil
}

// Volumes stacks the compartment volumes of every run.
func (c *Concat) Volumes(phase results.Phase) (*mat.Dense, error) {
	return c.stack(func(r *Run) (*mat.Dense, error) { return r.Volumes(phase) })
}

// BiomassConcentration stacks the per-compartment biomass of every run.
func (c *Concat) BiomassConcentration() (*mat.Dense, error) {
	return c.stack((*Run).BiomassConcentration)
}

func (c *Concat) stack(f func(r *Run) (*mat.Dense, error)) (*mat.Dense, error) {
	var out *mat.Dense
	for _, r := range c.runs {
		m, err := f(r)
		if err != nil {
			return nil, err
		}
		if m.IsEmpty() {
			continue
		}
		if out == nil {
			out = m
			continue
		}
		_, oc := out.Dims()
		_, mc := m.Dims()
		if oc != mc {
			return nil, fmt.Errorf("%w: run %q has %d compartments, want %d",
				results.ErrShapeMismatch, r.Name(), mc, oc)
		}
		var stacked mat.Dense
		stacked.Stack(out, m)
		out = &stacked
	}
	if out == nil {
		return &mat.Dense{}, nil
	}
	return out, nil
}
