package resultfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/biomcpp/internal/results"
)

// DefaultRoot is where runs are looked up when no root is given.
const DefaultRoot = "./results"

// Dataset and scalar paths, mirroring the engine's HDF5 hierarchy.
const (
	groupInitial    = "initial_parameters/"
	groupMisc       = "misc/"
	groupEvents     = "final_result/events/"
	groupBiological = "biological_model/"

	pathTime                = "records/time"
	pathConcentrationLiquid = "records/concentration_liquid"
	pathVolumeLiquid        = "records/volume_liquid"
	pathConcentrationGas    = "records/concentration_gas"
	pathVolumeGas           = "records/volume_gas"
	pathMTR                 = "records/mtr"
	pathNumberParticle      = "records/number_particle"
	pathFinalParticles      = "final_result/number_particles"
	pathTallies             = "misc/tallies"
	pathProbes              = "probes"
	spatialSegment          = "spatial/"
)

// MainFilePath is <root>/<name>/<name>.db.
func MainFilePath(root, name string) string {
	return filepath.Join(root, name, name+".db")
}

// PartialFilePath is <root>/<name>/<name>_partial_<rank>.db.
func PartialFilePath(root, name string, rank int) string {
	return filepath.Join(root, name, fmt.Sprintf("%s_partial_%d.db", name, rank))
}

func propertyPath(iExport int, key string) string {
	return groupBiological + strconv.Itoa(iExport) + "/" + key
}

func spatialPropertyPath(iExport int, key string) string {
	return groupBiological + strconv.Itoa(iExport) + "/" + spatialSegment + key
}

// Initial holds the scalar simulation parameters.
type Initial struct {
	DeltaTime                   float64
	FinalTime                   float64
	InitialBiomassConcentration float64
	InitialWeight               float64
	NMap                        int
	NumberCompartment           int
	NumberParticles             uint64
	TPerFlowMap                 float64
}

// Records holds the per-export compartment fields. Optional fields are nil
// when the run did not export them.
type Records struct {
	Time                []float64
	Compartments        int
	Species             int
	ConcentrationLiquid []float64 // steps × compartments × species
	VolumeLiquid        []float64 // steps × compartments
	ConcentrationGas    []float64
	VolumeGas           []float64
	MTR                 []float64
}

type Misc struct {
	NRank       int
	NNodeThread int
}

type Final struct {
	Events          map[string]uint64
	NumberParticles uint64
}

// Main is the content of a run's main file.
type Main struct {
	Initial Initial
	Records Records
	Misc    Misc
	Final   Final
	Tallies results.Tallies
}

func (m *Main) initialFields() []struct {
	name string
	ptr  *float64
} {
	return []struct {
		name string
		ptr  *float64
	}{
		{"delta_time", &m.Initial.DeltaTime},
		{"final_time", &m.Initial.FinalTime},
		{"initial_biomass_concentration", &m.Initial.InitialBiomassConcentration},
		{"initial_weight", &m.Initial.InitialWeight},
		{"t_per_flow_map", &m.Initial.TPerFlowMap},
	}
}

func readMain(ctx context.Context, s *Store) (*Main, error) {
	m := &Main{}

	for _, f := range m.initialFields() {
		v, err := s.Scalar(ctx, groupInitial+f.name)
		if err != nil {
			return nil, err
		}
		*f.ptr = v
	}
	ints := map[string]float64{}
	for _, name := range []string{"n_map", "number_compartment", "number_particles"} {
		v, err := s.Scalar(ctx, groupInitial+name)
		if err != nil {
			return nil, err
		}
		ints[name] = v
	}
	m.Initial.NMap = int(ints["n_map"])
	m.Initial.NumberCompartment = int(ints["number_compartment"])
	m.Initial.NumberParticles = uint64(ints["number_particles"])

	misc, err := s.Scalars(ctx, groupMisc)
	if err != nil {
		return nil, err
	}
	m.Misc = Misc{NRank: int(misc["n_rank"]), NNodeThread: int(misc["n_node_thread"])}

	if err := readRecords(ctx, s, &m.Records); err != nil {
		return nil, err
	}

	events, err := s.Scalars(ctx, groupEvents)
	if err != nil {
		return nil, err
	}
	m.Final.Events = make(map[string]uint64, len(events))
	for k, v := range events {
		m.Final.Events[k] = uint64(v)
	}
	if v, err := s.Scalar(ctx, pathFinalParticles); err == nil {
		m.Final.NumberParticles = uint64(v)
	} else if !errors.Is(err, errNoDataset) {
		return nil, err
	}

	tallies, err := optionalDataset(ctx, s, pathTallies)
	if err != nil {
		return nil, err
	}
	m.Tallies = tallies
	return m, nil
}

func readRecords(ctx context.Context, s *Store, r *Records) error {
	t, err := s.Dataset(ctx, pathTime)
	if err != nil {
		return err
	}
	r.Time = t.Values
	nt := len(r.Time)

	cl, err := s.Dataset(ctx, pathConcentrationLiquid)
	if err != nil {
		return err
	}
	if len(cl.Shape) != 3 || cl.Shape[0] != nt {
		return fmt.Errorf("%w: %s has shape %v for %d steps", results.ErrShapeMismatch, pathConcentrationLiquid, cl.Shape, nt)
	}
	r.Compartments, r.Species = cl.Shape[1], cl.Shape[2]
	r.ConcentrationLiquid = cl.Values

	vl, err := s.Dataset(ctx, pathVolumeLiquid)
	if err != nil {
		return err
	}
	if len(vl.Values) != nt*r.Compartments {
		return fmt.Errorf("%w: %s has shape %v", results.ErrShapeMismatch, pathVolumeLiquid, vl.Shape)
	}
	r.VolumeLiquid = vl.Values

	// Gas data is only meaningful when both concentration and volume exist.
	cg, err := optionalDataset(ctx, s, pathConcentrationGas)
	if err != nil {
		return err
	}
	vg, err := optionalDataset(ctx, s, pathVolumeGas)
	if err != nil {
		return err
	}
	if cg != nil && vg != nil {
		r.ConcentrationGas, r.VolumeGas = cg, vg
	}

	r.MTR, err = optionalDataset(ctx, s, pathMTR)
	return err
}

func optionalDataset(ctx context.Context, s *Store, path string) ([]float64, error) {
	d, err := s.Dataset(ctx, path)
	if errors.Is(err, errNoDataset) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.Values, nil
}

// exportGroups returns the sorted export indices present under biological_model/.
func exportGroups(ctx context.Context, s *Store) ([]int, error) {
	paths, err := s.DatasetPaths(ctx, groupBiological)
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	for _, p := range paths {
		seg, _, ok := strings.Cut(strings.TrimPrefix(p, groupBiological), "/")
		if !ok {
			continue
		}
		if i, err := strconv.Atoi(seg); err == nil {
			seen[i] = true
		}
	}
	groups := make([]int, 0, len(seen))
	for i := range seen {
		groups = append(groups, i)
	}
	sort.Ints(groups)
	return groups, nil
}

// propertyKeys lists particle property names exported at step iExport.
func propertyKeys(ctx context.Context, s *Store, iExport int) ([]string, error) {
	prefix := groupBiological + strconv.Itoa(iExport) + "/"
	paths, err := s.DatasetPaths(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, p := range paths {
		key := strings.TrimPrefix(p, prefix)
		if strings.HasPrefix(key, spatialSegment) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
