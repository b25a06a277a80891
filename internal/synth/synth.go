// Package synth writes synthetic runs in the resultfile layout.
//
// The model is a toy continuous stirred tank: Monod growth of biomass on a
// fed substrate plus a passive tracer stepped up at the inlet at t = 0. The
// ideal tank gives a known residence-time distribution E(t) = D·exp(-D·t),
// which makes the generated runs useful for checking the RTD estimators.
// It is not a particle simulation.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/biomcpp/internal/config"
	"github.com/san-kum/biomcpp/internal/logging"
	"github.com/san-kum/biomcpp/internal/ode"
	"github.com/san-kum/biomcpp/internal/resultfile"
	"github.com/san-kum/biomcpp/internal/results"
)

// State components of the tank model.
const (
	idxBiomass = iota
	idxSubstrate
	idxTracer
)

// Tank is the well-mixed reactor ODE.
type Tank struct {
	Dilution   float64
	MuMax      float64
	Ks         float64
	Yield      float64
	Feed       float64
	TracerStep float64
}

func NewTank(p config.SynthConfig) *Tank {
	return &Tank{
		Dilution:   p.Dilution,
		MuMax:      p.MuMax,
		Ks:         p.Ks,
		Yield:      p.Yield,
		Feed:       p.Feed,
		TracerStep: p.TracerStep,
	}
}

func (k *Tank) Dim() int { return 3 }

// Mu is the Monod specific growth rate.
func (k *Tank) Mu(s float64) float64 {
	s = math.Max(s, 0)
	return k.MuMax * s / (k.Ks + s)
}

func (k *Tank) Derive(x ode.State, t float64) ode.State {
	mu := k.Mu(x[idxSubstrate])
	return ode.State{
		(mu - k.Dilution) * x[idxBiomass],
		k.Dilution*(k.Feed-x[idxSubstrate]) - mu*x[idxBiomass]/k.Yield,
		k.Dilution * (k.TracerStep - x[idxTracer]),
	}
}

// Summary describes a generated run.
type Summary struct {
	Name      string
	Root      string
	Steps     int
	Ranks     int
	Particles uint64
	Probes    int
}

// Generate integrates the tank model and writes run name under root.
func Generate(ctx context.Context, root, name string, p config.SynthConfig, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if root == "" {
		root = resultfile.DefaultRoot
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	stepper, err := ode.NewStepper(p.Stepper)
	if err != nil {
		return nil, err
	}

	tank := NewTank(p)
	times := floats.Span(make([]float64, p.Exports), 0, p.FinalTime)
	x0 := ode.State{p.InitialBiomass, p.InitialSubstrate, 0}
	states, err := ode.Sample(ctx, tank, stepper, x0, 0, p.Dt, times)
	if err != nil {
		return nil, fmt.Errorf("integrate tank: %w", err)
	}
	logger.Debug("tank integrated", "steps", len(states), "final_biomass", states[len(states)-1][idxBiomass])

	w, err := resultfile.Create(ctx, root, name, p.Ranks)
	if err != nil {
		return nil, err
	}

	g := &generator{
		p:      p,
		times:  times,
		states: states,
		rng:    rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)),
		weight: p.InitialBiomass * p.Volume / float64(p.ParticlesPerRank*p.Ranks),
	}

	main := g.main()
	if err := g.write(ctx, w, main, logger); err != nil {
		w.Close()
		if rmErr := resultfile.Remove(root, name); rmErr != nil {
			logger.Warn("failed to remove partial run", "name", name, "error", rmErr)
		}
		return nil, err
	}

	logger.Info("synthetic run written", "name", name, "steps", len(times), "ranks", p.Ranks)
	return &Summary{
		Name:      name,
		Root:      root,
		Steps:     len(times),
		Ranks:     p.Ranks,
		Particles: main.Final.NumberParticles,
		Probes:    p.ProbesPerRank * p.Ranks,
	}, nil
}

type generator struct {
	p      config.SynthConfig
	times  []float64
	states []ode.State
	rng    *rand.Rand
	weight float64

	counts  [][]int
	newPart uint64
	exits   uint64
}

func (g *generator) write(ctx context.Context, w *resultfile.Writer, main *resultfile.Main, logger *slog.Logger) error {
	for rank := 0; rank < g.p.Ranks; rank++ {
		if err := g.writeRank(ctx, w, rank); err != nil {
			return fmt.Errorf("write rank %d: %w", rank, err)
		}
		logger.Log(ctx, logging.LevelTrace, "rank written", "rank", rank)
	}
	g.finish(main)
	if err := w.WriteMain(ctx, main); err != nil {
		return err
	}
	return w.Close()
}

// profile spreads a well-mixed value over compartments. With equal volumes
// the factors average to one, so the spatial average equals the tank value.
func (g *generator) profile(j int) float64 {
	nc := g.p.Compartments
	if nc == 1 {
		return 1
	}
	return 1 + g.p.Heterogeneity*(2*float64(j)/float64(nc-1)-1)
}

func (g *generator) main() *resultfile.Main {
	p := g.p
	nt, nc, ns := len(g.times), p.Compartments, p.Species
	compVolume := p.Volume / float64(nc)

	liquid := make([]float64, nt*nc*ns)
	volume := make([]float64, nt*nc)
	var gas, gasVolume, mtr []float64
	if p.Gas {
		gas = make([]float64, nt*nc*ns)
		gasVolume = make([]float64, nt*nc)
		mtr = make([]float64, nt*nc*ns)
	}

	for i, x := range g.states {
		for j := 0; j < nc; j++ {
			f := g.profile(j)
			volume[i*nc+j] = compVolume
			base := (i*nc + j) * ns
			liquid[base+0] = x[idxTracer] * f
			liquid[base+1] = math.Max(x[idxSubstrate], 0) * f
			if p.Gas {
				gasVolume[i*nc+j] = 0.1 * compVolume
				for s := 0; s < ns; s++ {
					gas[base+s] = 0.5 * liquid[base+s]
					mtr[base+s] = 1e-3 * (gas[base+s] - liquid[base+s])
				}
			}
		}
	}

	return &resultfile.Main{
		Initial: resultfile.Initial{
			DeltaTime:                   p.Dt,
			FinalTime:                   p.FinalTime,
			InitialBiomassConcentration: p.InitialBiomass,
			InitialWeight:               g.weight,
			NMap:                        1,
			NumberCompartment:           nc,
			NumberParticles:             uint64(p.ParticlesPerRank * p.Ranks),
			TPerFlowMap:                 p.FinalTime / float64(nt-1),
		},
		Records: resultfile.Records{
			Time:                g.times,
			Compartments:        nc,
			Species:             ns,
			ConcentrationLiquid: liquid,
			VolumeLiquid:        volume,
			ConcentrationGas:    gas,
			VolumeGas:           gasVolume,
			MTR:                 mtr,
		},
		Misc: resultfile.Misc{NRank: p.Ranks, NNodeThread: 1},
	}
}

// writeRank places the rank's share of the biomass on particles. The count
// follows biomass growth; masses are jittered and then rescaled so that
// weight·Σmass equals the rank's share of X·V exactly.
func (g *generator) writeRank(ctx context.Context, w *resultfile.Writer, rank int) error {
	p := g.p
	nt, nc := len(g.times), p.Compartments
	numberParticle := make([]float64, nt*nc)
	counts := make([]int, nt)

	prev := p.ParticlesPerRank
	for i, x := range g.states {
		ratio := x[idxBiomass] / p.InitialBiomass
		n := max(1, int(math.Round(float64(p.ParticlesPerRank)*ratio)))
		counts[i] = n
		if i > 0 {
			if n > prev {
				g.newPart += uint64(n - prev)
			} else {
				g.exits += uint64(prev - n)
			}
		}
		prev = n

		mass := make([]float64, n)
		age := make([]float64, n)
		spatial := make([]float64, nc)
		for k := range mass {
			mass[k] = 0.5 + g.rng.Float64()
			age[k] = g.rng.Float64() * g.times[i]
		}
		target := x[idxBiomass] * p.Volume / float64(p.Ranks) / g.weight
		floats.Scale(target/floats.Sum(mass), mass)
		for _, m := range mass {
			j := g.rng.IntN(nc)
			numberParticle[i*nc+j]++
			spatial[j] += m
		}

		if err := w.WriteProperty(ctx, rank, i, "mass", mass); err != nil {
			return err
		}
		if err := w.WriteProperty(ctx, rank, i, "age", age); err != nil {
			return err
		}
		if err := w.WriteSpatialProperty(ctx, rank, i, "mass", spatial); err != nil {
			return err
		}
	}
	g.counts = append(g.counts, counts)

	if err := w.WriteNumberParticle(ctx, rank, nt, nc, numberParticle); err != nil {
		return err
	}
	if p.ProbesPerRank > 0 {
		probes := make([]float64, p.ProbesPerRank)
		for k := range probes {
			probes[k] = g.rng.ExpFloat64() / p.Dilution
		}
		if err := w.WriteProbes(ctx, rank, probes); err != nil {
			return err
		}
	}
	return nil
}

// finish fills the final counters and per-export tallies once every rank is written.
func (g *generator) finish(m *resultfile.Main) {
	nt := len(g.times)
	var total uint64
	for _, c := range g.counts {
		total += uint64(c[nt-1])
	}
	m.Final = resultfile.Final{
		NumberParticles: total,
		Events: map[string]uint64{
			"new_particle": g.newPart,
			"exit":         g.exits,
		},
	}

	tallies := make(results.Tallies, 0, nt*len(results.TallyColumns))
	var born, exited float64
	for i := 0; i < nt; i++ {
		var moved float64
		for _, c := range g.counts {
			if i > 0 {
				born += math.Max(0, float64(c[i]-c[i-1]))
				exited += math.Max(0, float64(c[i-1]-c[i]))
			}
			moved += float64(c[i])
		}
		tallies = append(tallies, born, 0, moved, exited, 0, 0)
	}
	m.Tallies = tallies
}
