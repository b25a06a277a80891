package resultfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/biomcpp/internal/logging"
	"github.com/san-kum/biomcpp/internal/results"
)

// Run is an opened simulation run. It implements results.Reader.
//
// The main file is read into memory by Open; per-rank partial files stay
// open until Close and are queried on demand.
type Run struct {
	name string
	root string

	main     *Main
	partials []*Store
	// exports[r] is the number of biological export groups in rank r.
	exports        []int
	propertyNames  []string
	numberParticle *mat.Dense

	logger *slog.Logger
}

var _ results.Reader = (*Run)(nil)

// Option configures Open.
type Option func(*Run)

// WithLogger sets the logger used while opening and querying the run.
func WithLogger(l *slog.Logger) Option {
	return func(r *Run) {
		if l != nil {
			r.logger = l
		}
	}
}

// Open loads the run stored under <root>/<name>. An empty root means DefaultRoot.
func Open(ctx context.Context, name, root string, opts ...Option) (*Run, error) {
	if root == "" {
		root = DefaultRoot
	}
	r := &Run{
		name:   name,
		root:   root,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	path := MainFilePath(root, name)
	ms, err := OpenStore(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &results.LookupError{Op: "open run", Key: name, Wrapped: results.ErrRunNotFound}
	}
	if err != nil {
		return nil, err
	}
	r.main, err = readMain(ctx, ms)
	ms.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	r.logger.Debug("main file loaded", "path", path,
		"steps", len(r.main.Records.Time),
		"compartments", r.main.Records.Compartments,
		"ranks", r.main.Misc.NRank)

	if err := r.openPartials(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Run) openPartials(ctx context.Context) error {
	nt, nc := len(r.main.Records.Time), r.main.Records.Compartments
	r.numberParticle = &mat.Dense{}
	if nt > 0 && nc > 0 {
		r.numberParticle = mat.NewDense(nt, nc, nil)
	}

	for rank := 0; rank < r.main.Misc.NRank; rank++ {
		path := PartialFilePath(r.root, r.name, rank)
		s, err := OpenStore(ctx, path)
		if errors.Is(err, fs.ErrNotExist) {
			return &results.LookupError{Op: "open partial file", Key: path, Index: rank,
				Limit: r.main.Misc.NRank, Wrapped: results.ErrRunNotFound}
		}
		if err != nil {
			return err
		}
		r.partials = append(r.partials, s)

		np, err := s.Dataset(ctx, pathNumberParticle)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if len(np.Values) != nt*nc {
			return fmt.Errorf("%w: %s in %s has %d values, want %d",
				results.ErrShapeMismatch, pathNumberParticle, path, len(np.Values), nt*nc)
		}
		if nt > 0 && nc > 0 {
			r.numberParticle.Add(r.numberParticle, mat.NewDense(nt, nc, np.Values))
		}

		groups, err := exportGroups(ctx, s)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		r.exports = append(r.exports, len(groups))

		if r.propertyNames == nil && len(groups) > 0 {
			if r.propertyNames, err = propertyKeys(ctx, s, groups[0]); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
		}
		r.logger.Log(ctx, logging.LevelTrace, "partial file opened", "path", path, "exports", len(groups))
	}
	return nil
}

// Close releases the partial files.
func (r *Run) Close() error {
	var errs []error
	for _, s := range r.partials {
		errs = append(errs, s.Close())
	}
	r.partials = nil
	return errors.Join(errs...)
}

func (r *Run) Name() string { return r.name }
func (r *Run) Root() string { return r.root }

// Main returns the main-file content. Callers must not modify it.
func (r *Run) Main() *Main { return r.main }

func (r *Run) Time() []float64 { return r.main.Records.Time }

func (r *Run) NExport() int { return len(r.main.Records.Time) }

func (r *Run) Weight() results.Weight {
	return results.SingleWeight(r.main.Initial.InitialWeight)
}

func (r *Run) PropertyNames() []string {
	return slices.Clone(r.propertyNames)
}

// MaxNExportBio is the number of export steps that carry particle data. Steps
// without particles are not exported, so it may be lower than NExport.
func (r *Run) MaxNExportBio() int {
	n := 0
	for _, e := range r.exports {
		n = max(n, e)
	}
	return n
}

func (r *Run) phaseData(op string, phase results.Phase) (conc, vol []float64, err error) {
	rec := &r.main.Records
	switch phase {
	case results.Liquid:
		return rec.ConcentrationLiquid, rec.VolumeLiquid, nil
	case results.Gas:
		if rec.ConcentrationGas != nil {
			return rec.ConcentrationGas, rec.VolumeGas, nil
		}
	}
	return nil, nil, &results.LookupError{Op: op, Key: phase.String(), Wrapped: results.ErrPhaseAbsent}
}

func (r *Run) checkSpecies(op string, species int) error {
	if species < 0 || species >= r.main.Records.Species {
		return results.OutOfRange(op, species, r.main.Records.Species)
	}
	return nil
}

// SpatialAverageConcentration is the volume-weighted mean over compartments,
// sum(c*v)/sum(v), for each export step.
func (r *Run) SpatialAverageConcentration(species int, phase results.Phase) ([]float64, error) {
	const op = "spatial average concentration"
	if err := r.checkSpecies(op, species); err != nil {
		return nil, err
	}
	conc, vol, err := r.phaseData(op, phase)
	if err != nil {
		return nil, err
	}

	nt, nc, ns := len(r.main.Records.Time), r.main.Records.Compartments, r.main.Records.Species
	out := make([]float64, nt)
	for t := 0; t < nt; t++ {
		var num, den float64
		for c := 0; c < nc; c++ {
			v := vol[t*nc+c]
			num += conc[(t*nc+c)*ns+species] * v
			den += v
		}
		out[t] = num / den
	}
	return out, nil
}

// TimeAverageConcentration averages the concentration over all export steps
// and returns one value per compartment. position must be a valid compartment.
func (r *Run) TimeAverageConcentration(species, position int, phase results.Phase) ([]float64, error) {
	const op = "time average concentration"
	if err := r.checkSpecies(op, species); err != nil {
		return nil, err
	}
	if nc := r.main.Records.Compartments; position < 0 || position >= nc {
		return nil, results.OutOfRange(op, position, nc)
	}
	conc, _, err := r.phaseData(op, phase)
	if err != nil {
		return nil, err
	}

	nt, nc, ns := len(r.main.Records.Time), r.main.Records.Compartments, r.main.Records.Species
	out := make([]float64, nc)
	if nt == 0 {
		return out, nil
	}
	for t := 0; t < nt; t++ {
		for c := 0; c < nc; c++ {
			out[c] += conc[(t*nc+c)*ns+species]
		}
	}
	floats.Scale(1/float64(nt), out)
	return out, nil
}

func (r *Run) Concentrations(phase results.Phase) (results.Field3, error) {
	conc, _, err := r.phaseData("concentrations", phase)
	if err != nil {
		return results.Field3{}, err
	}
	rec := &r.main.Records
	return results.NewField3(len(rec.Time), rec.Compartments, rec.Species, slices.Clone(conc))
}

// Volumes returns a copy of the compartment volumes, steps × compartments.
func (r *Run) Volumes(phase results.Phase) (*mat.Dense, error) {
	_, vol, err := r.phaseData("volumes", phase)
	if err != nil {
		return nil, err
	}
	nt, nc := len(r.main.Records.Time), r.main.Records.Compartments
	if nt == 0 || nc == 0 {
		return &mat.Dense{}, nil
	}
	return mat.NewDense(nt, nc, slices.Clone(vol)), nil
}

// SpatialAverageMTR is the unweighted mean mass-transfer rate over compartments.
func (r *Run) SpatialAverageMTR(species int) ([]float64, error) {
	const op = "spatial average mtr"
	if r.main.Records.MTR == nil {
		return nil, &results.LookupError{Op: op, Key: "mtr", Wrapped: results.ErrNotAvailable}
	}
	if err := r.checkSpecies(op, species); err != nil {
		return nil, err
	}
	rec := &r.main.Records
	f, err := results.NewField3(len(rec.Time), rec.Compartments, rec.Species, rec.MTR)
	if err != nil {
		return nil, err
	}
	out := make([]float64, f.Steps)
	for t := range out {
		for c := 0; c < f.Compartments; c++ {
			out[t] += f.At(t, c, species)
		}
		out[t] /= float64(f.Compartments)
	}
	return out, nil
}

// SpatialProperty sums biological_model/<i>/spatial/<key> over ranks into a
// steps × compartments matrix. Steps without an export stay zero.
func (r *Run) SpatialProperty(key string) (*mat.Dense, error) {
	ctx := context.Background()
	nt, nc := len(r.main.Records.Time), r.main.Records.Compartments
	if nt == 0 || nc == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(nt, nc, nil)
	found := false
	for rank, s := range r.partials {
		for i := 0; i < min(r.exports[rank], nt); i++ {
			d, err := s.Dataset(ctx, spatialPropertyPath(i, key))
			if errors.Is(err, errNoDataset) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if len(d.Values) != nc {
				r.logger.Warn("spatial property shape mismatch",
					"key", key, "export", i, "rank", rank, "got", len(d.Values), "want", nc)
				continue
			}
			found = true
			floats.Add(out.RawRowView(i), d.Values)
		}
	}
	if !found && len(r.partials) > 0 {
		return nil, results.UnknownProperty("spatial property", key)
	}
	return out, nil
}

// BiomassConcentration is initial_weight * mass / volume_liquid per
// compartment, steps × compartments.
func (r *Run) BiomassConcentration() (*mat.Dense, error) {
	m, err := r.SpatialProperty("mass")
	if err != nil {
		return nil, err
	}
	nt, nc := len(r.main.Records.Time), r.main.Records.Compartments
	if nt == 0 || nc == 0 {
		return m, nil
	}
	m.DivElem(m, mat.NewDense(nt, nc, r.main.Records.VolumeLiquid))
	m.Scale(r.main.Initial.InitialWeight, m)
	return m, nil
}

// SpatialAverageBiomassConcentration is initial_weight * sum(mass) / sum(volume)
// for each step, using the particle masses of all ranks.
func (r *Run) SpatialAverageBiomassConcentration() ([]float64, error) {
	nt, nc := len(r.main.Records.Time), r.main.Records.Compartments
	out := make([]float64, nt)
	for i := 0; i < nt; i++ {
		mass, err := r.Properties("mass", i)
		if err != nil {
			return nil, err
		}
		vtot := floats.Sum(r.main.Records.VolumeLiquid[i*nc : (i+1)*nc])
		out[i] = r.main.Initial.InitialWeight * floats.Sum(mass) / vtot
	}
	return out, nil
}

func (r *Run) checkProperty(op, key string) error {
	if !slices.Contains(r.propertyNames, key) {
		return results.UnknownProperty(op, key)
	}
	return nil
}

// Properties concatenates the values of key at export step iExport across
// ranks. Ranks that did not export that step contribute nothing.
func (r *Run) Properties(key string, iExport int) ([]float64, error) {
	const op = "properties"
	if nt := len(r.main.Records.Time); iExport < 0 || iExport >= nt {
		return nil, results.OutOfRange(op, iExport, nt)
	}
	if err := r.checkProperty(op, key); err != nil {
		return nil, err
	}

	ctx := context.Background()
	out := []float64{}
	for rank, s := range r.partials {
		if iExport >= r.exports[rank] {
			continue
		}
		d, err := s.Dataset(ctx, propertyPath(iExport, key))
		if errors.Is(err, errNoDataset) {
			return nil, results.UnknownProperty(op, key)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d.Values...)
	}
	return out, nil
}

// PopulationMean is the mean of key over all particles at iExport, or NaN
// when no particle was exported at that step.
func (r *Run) PopulationMean(key string, iExport int) (float64, error) {
	x, err := r.Properties(key, iExport)
	if err != nil {
		return 0, err
	}
	if len(x) == 0 {
		return math.NaN(), nil
	}
	return floats.Sum(x) / float64(len(x)), nil
}

// TimePopulationMean computes the population mean of key at every export
// step in a single pass over the partial files.
func (r *Run) TimePopulationMean(key string) ([]float64, error) {
	const op = "time population mean"
	if err := r.checkProperty(op, key); err != nil {
		return nil, err
	}

	ctx := context.Background()
	nt := len(r.main.Records.Time)
	sum := make([]float64, nt)
	count := make([]float64, nt)
	for rank, s := range r.partials {
		for i := 0; i < min(r.exports[rank], nt); i++ {
			d, err := s.Dataset(ctx, propertyPath(i, key))
			if errors.Is(err, errNoDataset) {
				return nil, results.UnknownProperty(op, key)
			}
			if err != nil {
				return nil, err
			}
			sum[i] += floats.Sum(d.Values)
			count[i] += float64(len(d.Values))
		}
	}

	out := make([]float64, nt)
	for i := range out {
		if count[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum[i] / count[i]
	}
	return out, nil
}

// Histogram bins the values of key at iExport, gathered over every rank.
func (r *Run) Histogram(nBins, iExport int, key string) (results.Histogram, error) {
	x, err := r.Properties(key, iExport)
	if err != nil {
		return results.Histogram{}, err
	}
	h, err := results.NewHistogram(x, nBins)
	if err != nil {
		return results.Histogram{}, fmt.Errorf("histogram of %q at step %d: %w", key, iExport, err)
	}
	return h, nil
}

// NumberParticle is the particle count per step and compartment, summed
// over ranks. The returned matrix is a copy.
func (r *Run) NumberParticle() *mat.Dense {
	if r.numberParticle.IsEmpty() {
		return &mat.Dense{}
	}
	return mat.DenseCopyOf(r.numberParticle)
}

// GrowthInNumber is the total particle count at each step.
func (r *Run) GrowthInNumber() []float64 {
	if r.numberParticle.IsEmpty() {
		return []float64{}
	}
	nt, _ := r.numberParticle.Dims()
	out := make([]float64, nt)
	for i := range out {
		out[i] = floats.Sum(r.numberParticle.RawRowView(i))
	}
	return out
}

// Probes gathers particle residence times, in seconds, from every rank.
func (r *Run) Probes() ([]float64, error) {
	ctx := context.Background()
	var out []float64
	for _, s := range r.partials {
		d, err := s.Dataset(ctx, pathProbes)
		if errors.Is(err, errNoDataset) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d.Values...)
	}
	if out == nil {
		return nil, &results.LookupError{Op: "probes", Key: r.name, Wrapped: results.ErrNotAvailable}
	}
	return out, nil
}

func (r *Run) Events() map[string]uint64 {
	out := make(map[string]uint64, len(r.main.Final.Events))
	for k, v := range r.main.Final.Events {
		out[k] = v
	}
	return out
}

func (r *Run) Tallies() (results.Tallies, error) {
	if r.main.Tallies == nil {
		return nil, &results.LookupError{Op: "tallies", Key: r.name, Wrapped: results.ErrNotAvailable}
	}
	t := slices.Clone(r.main.Tallies)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// exists reports whether a run's main file is present.
func exists(root, name string) bool {
	_, err := os.Stat(MainFilePath(root, name))
	return err == nil
}
