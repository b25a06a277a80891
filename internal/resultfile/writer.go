package resultfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/biomcpp/internal/results"
)

// ErrRunExists is returned by Create when the target run is already on disk.
var ErrRunExists = errors.New("resultfile: run already exists")

// Writer produces a run in the on-disk layout read by Open: one main file
// and nRank partial files.
type Writer struct {
	root     string
	name     string
	main     *Store
	partials []*Store
}

// Create makes <root>/<name> and its empty result files.
func Create(ctx context.Context, root, name string, nRank int) (*Writer, error) {
	if root == "" {
		root = DefaultRoot
	}
	if nRank < 1 {
		return nil, results.OutOfRange("create run ranks", nRank, 1)
	}
	if exists(root, name) {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, filepath.Join(root, name))
	}
	if err := os.MkdirAll(filepath.Join(root, name), 0755); err != nil {
		return nil, err
	}

	w := &Writer{root: root, name: name}
	var err error
	if w.main, err = CreateStore(ctx, MainFilePath(root, name)); err != nil {
		return nil, err
	}
	for rank := 0; rank < nRank; rank++ {
		s, err := CreateStore(ctx, PartialFilePath(root, name, rank))
		if err != nil {
			w.Close()
			return nil, err
		}
		w.partials = append(w.partials, s)
	}
	return w, nil
}

// Remove deletes the run directory <root>/<name>.
func Remove(root, name string) error {
	if root == "" {
		root = DefaultRoot
	}
	if !exists(root, name) {
		return &results.LookupError{Op: "remove run", Key: name, Wrapped: results.ErrRunNotFound}
	}
	return os.RemoveAll(filepath.Join(root, name))
}

func (w *Writer) NRank() int { return len(w.partials) }

func (w *Writer) partial(op string, rank int) (*Store, error) {
	if rank < 0 || rank >= len(w.partials) {
		return nil, results.OutOfRange(op, rank, len(w.partials))
	}
	return w.partials[rank], nil
}

// WriteMain stores the main file. Misc.NRank is taken from the writer.
func (w *Writer) WriteMain(ctx context.Context, m *Main) error {
	rec := &m.Records
	nt, nc, ns := len(rec.Time), rec.Compartments, rec.Species

	scalars := map[string]float64{
		groupInitial + "delta_time":                    m.Initial.DeltaTime,
		groupInitial + "final_time":                    m.Initial.FinalTime,
		groupInitial + "initial_biomass_concentration": m.Initial.InitialBiomassConcentration,
		groupInitial + "initial_weight":                m.Initial.InitialWeight,
		groupInitial + "n_map":                         float64(m.Initial.NMap),
		groupInitial + "number_compartment":            float64(m.Initial.NumberCompartment),
		groupInitial + "number_particles":              float64(m.Initial.NumberParticles),
		groupInitial + "t_per_flow_map":                m.Initial.TPerFlowMap,
		groupMisc + "n_rank":                           float64(len(w.partials)),
		groupMisc + "n_node_thread":                    float64(m.Misc.NNodeThread),
		pathFinalParticles:                             float64(m.Final.NumberParticles),
	}
	for k, v := range m.Final.Events {
		scalars[groupEvents+k] = float64(v)
	}
	for path, v := range scalars {
		if err := w.main.PutScalar(ctx, path, v); err != nil {
			return err
		}
	}

	datasets := []Dataset{
		{pathTime, []int{nt}, rec.Time},
		{pathConcentrationLiquid, []int{nt, nc, ns}, rec.ConcentrationLiquid},
		{pathVolumeLiquid, []int{nt, nc}, rec.VolumeLiquid},
	}
	if rec.ConcentrationGas != nil && rec.VolumeGas != nil {
		datasets = append(datasets,
			Dataset{pathConcentrationGas, []int{nt, nc, ns}, rec.ConcentrationGas},
			Dataset{pathVolumeGas, []int{nt, nc}, rec.VolumeGas})
	}
	if rec.MTR != nil {
		datasets = append(datasets, Dataset{pathMTR, []int{nt, nc, ns}, rec.MTR})
	}
	if m.Tallies != nil {
		if err := m.Tallies.Validate(); err != nil {
			return err
		}
		rows := len(m.Tallies) / len(results.TallyColumns)
		datasets = append(datasets, Dataset{pathTallies, []int{rows, len(results.TallyColumns)}, m.Tallies})
	}

	for _, d := range datasets {
		if err := w.main.PutDataset(ctx, d.Path, d.Shape, d.Values); err != nil {
			return err
		}
	}
	return nil
}

// WriteNumberParticle stores the steps × compartments particle count of one rank.
func (w *Writer) WriteNumberParticle(ctx context.Context, rank, steps, compartments int, values []float64) error {
	s, err := w.partial("write number_particle", rank)
	if err != nil {
		return err
	}
	return s.PutDataset(ctx, pathNumberParticle, []int{steps, compartments}, values)
}

// WriteProperty stores one per-particle property of rank at export step iExport.
func (w *Writer) WriteProperty(ctx context.Context, rank, iExport int, key string, values []float64) error {
	s, err := w.partial("write property", rank)
	if err != nil {
		return err
	}
	return s.PutDataset(ctx, propertyPath(iExport, key), []int{len(values)}, values)
}

// WriteSpatialProperty stores one per-compartment property of rank at export step iExport.
func (w *Writer) WriteSpatialProperty(ctx context.Context, rank, iExport int, key string, values []float64) error {
	s, err := w.partial("write spatial property", rank)
	if err != nil {
		return err
	}
	return s.PutDataset(ctx, spatialPropertyPath(iExport, key), []int{len(values)}, values)
}

// WriteProbes stores the residence times (seconds) recorded by rank.
func (w *Writer) WriteProbes(ctx context.Context, rank int, values []float64) error {
	s, err := w.partial("write probes", rank)
	if err != nil {
		return err
	}
	return s.PutDataset(ctx, pathProbes, []int{len(values)}, values)
}

// Close closes every file of the run.
func (w *Writer) Close() error {
	var errs []error
	if w.main != nil {
		errs = append(errs, w.main.Close())
		w.main = nil
	}
	for _, s := range w.partials {
		errs = append(errs, s.Close())
	}
	w.partials = nil
	return errors.Join(errs...)
}
