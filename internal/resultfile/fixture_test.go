package resultfile

import (
	"testing"

	"github.com/san-kum/biomcpp/internal/results"
)

// fixtureMain is a 3-step, 2-compartment, 2-species run written over two ranks.
// Rank 1 stops exporting particles after step 1.
func fixtureMain() *Main {
	return &Main{
		Initial: Initial{
			DeltaTime:                   0.5,
			FinalTime:                   20,
			InitialBiomassConcentration: 1.5,
			InitialWeight:               2,
			NMap:                        1,
			NumberCompartment:           2,
			NumberParticles:             3,
			TPerFlowMap:                 10,
		},
		Records: Records{
			Time:         []float64{0, 10, 20},
			Compartments: 2,
			Species:      2,
			ConcentrationLiquid: []float64{
				1, 100, 3, 300,
				2, 200, 4, 400,
				5, 500, 7, 700,
			},
			VolumeLiquid: []float64{
				1, 1,
				1, 3,
				2, 2,
			},
			MTR: []float64{
				1, 100, 3, 300,
				2, 200, 4, 400,
				5, 500, 7, 700,
			},
		},
		Misc:  Misc{NRank: 2, NNodeThread: 4},
		Final: Final{Events: map[string]uint64{"new_particle": 4, "death": 1}, NumberParticles: 7},
		Tallies: results.Tallies{
			1, 0, 5, 0, 0, 0,
			4, 1, 9, 2, 0, 1,
		},
	}
}

type rankExport struct {
	mass, age, spatialMass []float64
}

var fixtureRanks = [][]rankExport{
	{
		{mass: []float64{1, 2}, age: []float64{10, 20}, spatialMass: []float64{1, 2}},
		{mass: []float64{2, 3}, age: []float64{1, 1}, spatialMass: []float64{2, 3}},
		{mass: []float64{4}, age: []float64{7}, spatialMass: []float64{4, 0}},
	},
	{
		{mass: []float64{3}, age: []float64{30}, spatialMass: []float64{0, 3}},
		{mass: []float64{1, 1, 1}, age: []float64{2, 2, 2}, spatialMass: []float64{3, 0}},
	},
}

var fixtureNumberParticle = [][]float64{
	{1, 1, 1, 1, 1, 0},
	{0, 1, 1, 2, 0, 0},
}

var fixtureProbes = [][]float64{{3600, 7200}, {10800}}

func writeFixture(t *testing.T, root, name string) {
	t.Helper()
	ctx := t.Context()

	w, err := Create(ctx, root, name, len(fixtureRanks))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	if err := w.WriteMain(ctx, fixtureMain()); err != nil {
		t.Fatalf("WriteMain: %v", err)
	}
	for rank, exports := range fixtureRanks {
		if err := w.WriteNumberParticle(ctx, rank, 3, 2, fixtureNumberParticle[rank]); err != nil {
			t.Fatalf("WriteNumberParticle: %v", err)
		}
		if err := w.WriteProbes(ctx, rank, fixtureProbes[rank]); err != nil {
			t.Fatalf("WriteProbes: %v", err)
		}
		for i, e := range exports {
			if err := w.WriteProperty(ctx, rank, i, "mass", e.mass); err != nil {
				t.Fatalf("WriteProperty: %v", err)
			}
			if err := w.WriteProperty(ctx, rank, i, "age", e.age); err != nil {
				t.Fatalf("WriteProperty: %v", err)
			}
			if err := w.WriteSpatialProperty(ctx, rank, i, "mass", e.spatialMass); err != nil {
				t.Fatalf("WriteSpatialProperty: %v", err)
			}
		}
	}
}

func openFixture(t *testing.T) *Run {
	t.Helper()
	root := t.TempDir()
	writeFixture(t, root, "cstr")

	r, err := Open(t.Context(), "cstr", root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}
