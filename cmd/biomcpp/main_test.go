package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/biomcpp/internal/resultfile"
	"github.com/san-kum/biomcpp/internal/results"
)

// execute runs the CLI with args and returns what it printed on stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

// workspace generates a synthetic run "toy" and returns the results root and
// figure directory.
func workspace(t *testing.T) (root, out string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "results")
	out = filepath.Join(dir, "figures")
	if _, err := execute(t, "synth", "toy", "--root", root, "--preset", "cstr"); err != nil {
		t.Fatalf("synth: %v", err)
	}
	return root, out
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Errorf("%s is empty", path)
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	if cmd.Use != "biomcpp" {
		t.Errorf("Use = %q, want biomcpp", cmd.Use)
	}
	for _, name := range []string{"root", "out", "format", "config", "log-level"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
}

func TestListAndInfo(t *testing.T) {
	root, _ := workspace(t)

	out, err := execute(t, "list", "--root", root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "toy") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = execute(t, "list", "--root", root, "--json")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var runs []resultfile.RunInfo
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Name != "toy" || runs[0].Species != 2 {
		t.Errorf("runs = %+v", runs)
	}

	out, err = execute(t, "info", "toy", "--root", root, "--ascii")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, s := range []string{"toy", "compartments", "time_average", "biomass concentration"} {
		if !strings.Contains(out, s) {
			t.Errorf("info output lacks %q:\n%s", s, out)
		}
	}
}

func TestFigureCommands(t *testing.T) {
	root, out := workspace(t)

	tests := []struct {
		args []string
		file string
	}{
		{[]string{"biomass", "toy"}, "biomass_concentration_over_time.svg"},
		{[]string{"biomass", "toy", "--compartment", "1", "--format", "png"}, "local_biomass_concentration_over_time_1.png"},
		{[]string{"concentration", "toy", "--species", "1", "--variance"}, "variance_liquid_1.svg"},
		{[]string{"concentration", "toy"}, "concentration_over_time_liquid_0.svg"},
		{[]string{"mean", "toy", "--key", "age", "--check"}, "population_mean_over_time_age.svg"},
		{[]string{"mean", "toy", "--estimator", "weighted"}, "population_mean_over_time_mass.svg"},
		{[]string{"growth", "toy"}, "growth_rate.svg"},
		{[]string{"hist", "toy", "--key", "mass", "--bins", "20", "--density"}, "histogram_mass_24.svg"},
		{[]string{"rtd", "toy", "--step", "5"}, "rtd.svg"},
		{[]string{"concat", "toy", "toy"}, "concat_biomass_concentration_over_time.svg"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, "_"), func(t *testing.T) {
			args := append(tt.args, "--root", root, "--out", out)
			stdout, err := execute(t, args...)
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			want := filepath.Join(out, tt.file)
			if !strings.Contains(stdout, want) {
				t.Errorf("stdout %q does not name %s", stdout, want)
			}
			assertFile(t, want)
		})
	}
}

func TestConcentrationTimeAverage(t *testing.T) {
	root, out := workspace(t)
	stdout, err := execute(t, "concentration", "toy", "--time-average", "0", "--root", root, "--out", out)
	if err != nil {
		t.Fatal(err)
	}
	if fields := strings.Fields(stdout); len(fields) != 4 {
		t.Errorf("expected one value per compartment, got %q", stdout)
	}
}

func TestExportCommands(t *testing.T) {
	root, out := workspace(t)

	stdout, err := execute(t, "tallies", "toy", "--root", root)
	if err != nil {
		t.Fatalf("tallies: %v", err)
	}
	if !strings.HasPrefix(stdout, "NewParticle,Death,Move,Exit,Overflow,ChangeWeight") {
		t.Errorf("tallies csv:\n%s", stdout)
	}

	stdout, err = execute(t, "tallies", "toy", "--root", root, "--as", "json")
	if err != nil {
		t.Fatalf("tallies json: %v", err)
	}
	if !json.Valid([]byte(stdout)) {
		t.Errorf("tallies json invalid:\n%s", stdout)
	}

	csvPath := filepath.Join(out, "toy.csv")
	if _, err := execute(t, "export-csv", "toy", "--root", root, "-o", csvPath); err != nil {
		t.Fatalf("export-csv: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "time_s,biomass,biomass_total,liquid_0,liquid_1") {
		t.Errorf("csv header: %s", strings.SplitN(string(data), "\n", 2)[0])
	}

	stdout, err = execute(t, "export-json", "toy", "--root", root)
	if err != nil {
		t.Fatalf("export-json: %v", err)
	}
	var doc struct {
		Run    string               `json:"run"`
		Series map[string][]float64 `json:"series"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.Run != "toy" || len(doc.Series["biomass"]) != 25 {
		t.Errorf("export-json: run %q, %d biomass values", doc.Run, len(doc.Series["biomass"]))
	}
}

func TestArtifactLog(t *testing.T) {
	root, out := workspace(t)
	if _, err := execute(t, "biomass", "toy", "--root", root, "--out", out, "--log-level", "debug"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(out, "artifacts.jsonl"))
	if err != nil {
		t.Fatalf("artifact log: %v", err)
	}
	var entry map[string]string
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["command"] != "biomass" || entry["run"] != "toy" {
		t.Errorf("entry = %v", entry)
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	root, out := workspace(t)
	cfgPath := filepath.Join(t.TempDir(), "biomcpp.yaml")
	data := "results_root: " + root + "\noutput_dir: " + out + "\nfigure_format: png\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "biomass", "toy", "--config", cfgPath); err != nil {
		t.Fatal(err)
	}
	assertFile(t, filepath.Join(out, "biomass_concentration_over_time.png"))

	t.Setenv("BIOMC_FIGURE_FORMAT", "svg")
	if _, err := execute(t, "rtd", "toy", "--config", cfgPath); err != nil {
		t.Fatal(err)
	}
	assertFile(t, filepath.Join(out, "rtd.svg"))
}

func TestCommandErrors(t *testing.T) {
	root, out := workspace(t)

	_, err := execute(t, "biomass", "missing", "--root", root, "--out", out)
	if !errors.Is(err, results.ErrRunNotFound) {
		t.Errorf("missing run: err = %v", err)
	}

	if _, err := execute(t, "concentration", "toy", "--root", root, "--phase", "gas"); !errors.Is(err, results.ErrPhaseAbsent) {
		t.Errorf("gas phase: err = %v", err)
	}

	_, err = execute(t, "synth", "toy", "--root", root)
	if !errors.Is(err, resultfile.ErrRunExists) {
		t.Errorf("existing run: err = %v", err)
	}
	if _, err := execute(t, "synth", "toy", "--root", root, "--preset", "multi_rank", "--force"); err != nil {
		t.Errorf("synth --force: %v", err)
	}

	if _, err := execute(t, "synth", "other", "--root", root, "--preset", "nope"); err == nil {
		t.Error("unknown preset accepted")
	}
	if _, err := execute(t, "biomass", "toy", "--root", root, "--format", "gif"); err == nil {
		t.Error("gif format accepted")
	}
	if _, err := execute(t, "mean", "toy", "--root", root, "--key", "volume"); !errors.Is(err, results.ErrUnknownProperty) {
		t.Errorf("unknown property: err = %v", err)
	}
	if _, err := execute(t, "tallies", "toy", "--root", root, "--as", "xml"); err == nil {
		t.Error("xml tallies accepted")
	}
}
