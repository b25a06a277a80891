package resultfile

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/biomcpp/internal/results"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestMainRoundTrip(t *testing.T) {
	r := openFixture(t)

	if diff := cmp.Diff(fixtureMain(), r.Main()); diff != "" {
		t.Errorf("main file mismatch (-want +got):\n%s", diff)
	}
	if r.Name() != "cstr" {
		t.Errorf("Name() = %q", r.Name())
	}
	if r.NExport() != 3 {
		t.Errorf("NExport() = %d, want 3", r.NExport())
	}
	if r.MaxNExportBio() != 3 {
		t.Errorf("MaxNExportBio() = %d, want 3", r.MaxNExportBio())
	}
	if diff := cmp.Diff([]string{"age", "mass"}, r.PropertyNames()); diff != "" {
		t.Errorf("PropertyNames mismatch (-want +got):\n%s", diff)
	}
	if w := r.Weight(); !w.IsSingle() || w.Single != 2 {
		t.Errorf("Weight() = %+v, want single 2", w)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(t.Context(), "nope", t.TempDir())
	if !errors.Is(err, results.ErrRunNotFound) {
		t.Fatalf("Open() error = %v, want ErrRunNotFound", err)
	}
	var le *results.LookupError
	if !errors.As(err, &le) || le.Key != "nope" {
		t.Errorf("expected LookupError for key nope, got %v", err)
	}
}

func TestOpen_DefaultRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFixture(t, "", "cstr")

	r, err := Open(t.Context(), "cstr", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.Root() != DefaultRoot {
		t.Errorf("Root() = %q, want %q", r.Root(), DefaultRoot)
	}
}

func TestConcentrationQueries(t *testing.T) {
	r := openFixture(t)

	avg, err := r.SpatialAverageConcentration(0, results.Liquid)
	if err != nil {
		t.Fatalf("SpatialAverageConcentration: %v", err)
	}
	if diff := cmp.Diff([]float64{2, 3.5, 6}, avg, approx); diff != "" {
		t.Errorf("spatial average (-want +got):\n%s", diff)
	}

	tavg, err := r.TimeAverageConcentration(0, 1, results.Liquid)
	if err != nil {
		t.Fatalf("TimeAverageConcentration: %v", err)
	}
	if diff := cmp.Diff([]float64{8.0 / 3, 14.0 / 3}, tavg, approx); diff != "" {
		t.Errorf("time average (-want +got):\n%s", diff)
	}

	mtr, err := r.SpatialAverageMTR(1)
	if err != nil {
		t.Fatalf("SpatialAverageMTR: %v", err)
	}
	if diff := cmp.Diff([]float64{200, 300, 600}, mtr, approx); diff != "" {
		t.Errorf("mtr (-want +got):\n%s", diff)
	}

	f, err := r.Concentrations(results.Liquid)
	if err != nil {
		t.Fatalf("Concentrations: %v", err)
	}
	if got := f.At(2, 1, 1); got != 700 {
		t.Errorf("Concentrations().At(2,1,1) = %v, want 700", got)
	}
	f.Data[0] = -1
	if again, _ := r.Concentrations(results.Liquid); again.At(0, 0, 0) != 1 {
		t.Error("Concentrations must return a copy")
	}
}

func TestConcentrationErrors(t *testing.T) {
	r := openFixture(t)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"species out of range", func() error {
			_, err := r.SpatialAverageConcentration(2, results.Liquid)
			return err
		}, results.ErrOutOfRange},
		{"negative species", func() error {
			_, err := r.SpatialAverageMTR(-1)
			return err
		}, results.ErrOutOfRange},
		{"position out of range", func() error {
			_, err := r.TimeAverageConcentration(0, 2, results.Liquid)
			return err
		}, results.ErrOutOfRange},
		{"gas absent", func() error {
			_, err := r.SpatialAverageConcentration(0, results.Gas)
			return err
		}, results.ErrPhaseAbsent},
		{"gas field absent", func() error {
			_, err := r.Concentrations(results.Gas)
			return err
		}, results.ErrPhaseAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBiomass(t *testing.T) {
	r := openFixture(t)

	got, err := r.BiomassConcentration()
	if err != nil {
		t.Fatalf("BiomassConcentration: %v", err)
	}
	want := mat.NewDense(3, 2, []float64{2, 10, 10, 2, 4, 0})
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("BiomassConcentration() =\n%v\nwant\n%v", mat.Formatted(got), mat.Formatted(want))
	}

	avg, err := r.SpatialAverageBiomassConcentration()
	if err != nil {
		t.Fatalf("SpatialAverageBiomassConcentration: %v", err)
	}
	if diff := cmp.Diff([]float64{6, 4, 2}, avg, approx); diff != "" {
		t.Errorf("spatial average biomass (-want +got):\n%s", diff)
	}
}

func TestPopulation(t *testing.T) {
	r := openFixture(t)

	mass, err := r.Properties("mass", 1)
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if diff := cmp.Diff([]float64{2, 3, 1, 1, 1}, mass); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}

	vec, err := r.TimePopulationMean("age")
	if err != nil {
		t.Fatalf("TimePopulationMean: %v", err)
	}
	if diff := cmp.Diff([]float64{20, 1.6, 7}, vec, approx); diff != "" {
		t.Errorf("TimePopulationMean mismatch (-want +got):\n%s", diff)
	}
	for i, want := range vec {
		got, err := r.PopulationMean("age", i)
		if err != nil {
			t.Fatalf("PopulationMean(%d): %v", i, err)
		}
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("PopulationMean(age, %d) = %v, want %v", i, got, want)
		}
	}

	if diff := cmp.Diff([]float64{3, 5, 1}, r.GrowthInNumber()); diff != "" {
		t.Errorf("GrowthInNumber mismatch (-want +got):\n%s", diff)
	}
	np := r.NumberParticle()
	if np.At(1, 1) != 3 {
		t.Errorf("NumberParticle()[1,1] = %v, want 3", np.At(1, 1))
	}
	np.Set(1, 1, 0)
	if r.NumberParticle().At(1, 1) != 3 {
		t.Error("NumberParticle must return a copy")
	}
}

func TestPopulationErrors(t *testing.T) {
	r := openFixture(t)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"export past end", func() error {
			_, err := r.Properties("mass", 3)
			return err
		}, results.ErrOutOfRange},
		{"negative export", func() error {
			_, err := r.PopulationMean("mass", -1)
			return err
		}, results.ErrOutOfRange},
		{"unknown key", func() error {
			_, err := r.Properties("volume", 0)
			return err
		}, results.ErrUnknownProperty},
		{"unknown key vectorized", func() error {
			_, err := r.TimePopulationMean("volume")
			return err
		}, results.ErrUnknownProperty},
		{"histogram past end", func() error {
			_, err := r.Histogram(10, 3, "mass")
			return err
		}, results.ErrOutOfRange},
		{"histogram zero bins", func() error {
			_, err := r.Histogram(0, 0, "mass")
			return err
		}, results.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHistogram_AllRanks(t *testing.T) {
	r := openFixture(t)

	h, err := r.Histogram(2, 1, "mass")
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	want := results.Histogram{Edges: []float64{1, 2, 3}, Counts: []float64{3, 2}}
	if diff := cmp.Diff(want, h, approx); diff != "" {
		t.Errorf("Histogram mismatch (-want +got):\n%s", diff)
	}
}

func TestProbesEventsTallies(t *testing.T) {
	r := openFixture(t)

	probes, err := r.Probes()
	if err != nil {
		t.Fatalf("Probes: %v", err)
	}
	if diff := cmp.Diff([]float64{3600, 7200, 10800}, probes); diff != "" {
		t.Errorf("Probes mismatch (-want +got):\n%s", diff)
	}

	events := r.Events()
	if events["new_particle"] != 4 || events["death"] != 1 {
		t.Errorf("Events() = %v", events)
	}

	tallies, err := r.Tallies()
	if err != nil {
		t.Fatalf("Tallies: %v", err)
	}
	rows, err := tallies.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 || rows[1][2] != 9 {
		t.Errorf("Rows() = %v", rows)
	}
}

func TestOptionalQuantitiesAbsent(t *testing.T) {
	root := t.TempDir()
	ctx := t.Context()

	m := fixtureMain()
	m.Records.MTR = nil
	m.Tallies = nil
	w, err := Create(ctx, root, "bare", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteMain(ctx, m); err != nil {
		t.Fatalf("WriteMain: %v", err)
	}
	if err := w.WriteNumberParticle(ctx, 0, 3, 2, make([]float64, 6)); err != nil {
		t.Fatalf("WriteNumberParticle: %v", err)
	}
	w.Close()

	r, err := Open(ctx, "bare", root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.SpatialAverageMTR(0); !errors.Is(err, results.ErrNotAvailable) {
		t.Errorf("SpatialAverageMTR error = %v, want ErrNotAvailable", err)
	}
	if _, err := r.Tallies(); !errors.Is(err, results.ErrNotAvailable) {
		t.Errorf("Tallies error = %v, want ErrNotAvailable", err)
	}
	if _, err := r.Probes(); !errors.Is(err, results.ErrNotAvailable) {
		t.Errorf("Probes error = %v, want ErrNotAvailable", err)
	}
	if r.MaxNExportBio() != 0 {
		t.Errorf("MaxNExportBio() = %d, want 0", r.MaxNExportBio())
	}
	if _, err := r.Properties("mass", 0); !errors.Is(err, results.ErrUnknownProperty) {
		t.Errorf("Properties error = %v, want ErrUnknownProperty", err)
	}
}

func TestCreate_Existing(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "cstr")

	if _, err := Create(t.Context(), root, "cstr", 1); !errors.Is(err, ErrRunExists) {
		t.Fatalf("Create() error = %v, want ErrRunExists", err)
	}
	if err := Remove(root, "cstr"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := Open(t.Context(), "cstr", root); !errors.Is(err, results.ErrRunNotFound) {
		t.Errorf("Open after Remove error = %v, want ErrRunNotFound", err)
	}
	if err := Remove(root, "cstr"); !errors.Is(err, results.ErrRunNotFound) {
		t.Errorf("second Remove error = %v, want ErrRunNotFound", err)
	}
}

func TestWriter_RankOutOfRange(t *testing.T) {
	w, err := Create(t.Context(), t.TempDir(), "one", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	if err := w.WriteProbes(t.Context(), 1, []float64{1}); !errors.Is(err, results.ErrOutOfRange) {
		t.Errorf("WriteProbes error = %v, want ErrOutOfRange", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "b_run")
	writeFixture(t, root, "a_run")

	runs, err := List(t.Context(), root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List() returned %d runs, want 2", len(runs))
	}
	if runs[0].Name != "a_run" || runs[1].Name != "b_run" {
		t.Errorf("List() not sorted: %v", runs)
	}
	if runs[0].Steps != 3 || runs[0].NRank != 2 || runs[0].HasGas {
		t.Errorf("unexpected run info %+v", runs[0])
	}

	empty, err := List(t.Context(), filepath.Join(root, "missing"))
	if err != nil || len(empty) != 0 {
		t.Errorf("List(missing) = %v, %v", empty, err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, values := range [][]float64{{}, {1.5}, {0, -2, math.Inf(1), 1e300}} {
		blob, err := encodeValues(values)
		if err != nil {
			t.Fatalf("encodeValues: %v", err)
		}
		got, err := decodeValues(blob)
		if err != nil {
			t.Fatalf("decodeValues: %v", err)
		}
		if diff := cmp.Diff(values, got); diff != "" {
			t.Errorf("codec mismatch (-want +got):\n%s", diff)
		}
	}
}
