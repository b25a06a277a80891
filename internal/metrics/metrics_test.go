package metrics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSummarize(t *testing.T) {
	ts := []float64{0, 1, 2, 4}
	v := []float64{1, 3, math.NaN(), 2}

	got := Summarize(ts, v, Standard()...)
	want := map[string]float64{
		"final":        2,
		"peak":         3,
		"time_average": (2.0 + 2.5*3) / 4,
		"drift":        1,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Summarize (-want +got):\n%s", diff)
	}
	if names := Names(got); names[0] != "drift" || len(names) != 4 {
		t.Errorf("Names = %v", names)
	}
}

func TestEmptySeries(t *testing.T) {
	got := Summarize(nil, nil, Standard()...)
	for name, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("%s of empty series = %v, want NaN", name, v)
		}
	}
}

func TestTimeAverageSingleSample(t *testing.T) {
	m := NewTimeAverage()
	m.Observe(5, 7)
	if m.Value() != 7 {
		t.Errorf("expected 7, got %v", m.Value())
	}
}

func TestReset(t *testing.T) {
	for _, m := range Standard() {
		m.Observe(0, 1)
		m.Observe(1, 5)
		m.Reset()
		m.Observe(2, 4)
		m.Observe(3, 4)
		v := m.Value()
		want := 4.0
		if m.Name() == "drift" {
			want = 0
		}
		if v != want {
			t.Errorf("%s after reset = %v, want %v", m.Name(), v, want)
		}
	}
}

func TestDriftZeroStart(t *testing.T) {
	m := NewDrift()
	m.Observe(0, 0)
	m.Observe(1, 3)
	if !math.IsNaN(m.Value()) {
		t.Errorf("expected NaN drift from zero, got %v", m.Value())
	}
}
