// Package export writes derived run series and event tallies as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/biomcpp/internal/analysis"
	"github.com/san-kum/biomcpp/internal/metrics"
	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

// Column is one derived series aligned with Table.Time.
type Column struct {
	Name   string
	Values []float64
}

// Table holds every derived series of a run on a normalized time axis.
type Table struct {
	Run      string
	TimeUnit timeunit.Unit
	Time     []float64
	Columns  []Column
}

// Derived collects the series available for r. Quantities the run did not
// record (gas phase, particle masses) are left out rather than failing.
func Derived(r results.Reader, name string) (*Table, error) {
	ts := timeunit.Normalize(r.Time())
	tbl := &Table{Run: name, TimeUnit: ts.Unit, Time: ts.Values}

	add := func(col string, v []float64, err error) error {
		switch {
		case err == nil:
			tbl.Columns = append(tbl.Columns, Column{Name: col, Values: v})
			return nil
		case errors.Is(err, results.ErrPhaseAbsent),
			errors.Is(err, results.ErrNotAvailable),
			errors.Is(err, results.ErrUnknownProperty):
			return nil
		}
		return fmt.Errorf("%s: %w", col, err)
	}

	v, err := analysis.SpatialAverageBiomass(r)
	if err := add("biomass", v, err); err != nil {
		return nil, err
	}
	v, err = analysis.TotalBiomass(r)
	if err := add("biomass_total", v, err); err != nil {
		return nil, err
	}

	for _, phase := range []results.Phase{results.Liquid, results.Gas} {
		field, err := r.Concentrations(phase)
		if errors.Is(err, results.ErrPhaseAbsent) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for s := 0; s < field.Species; s++ {
			v, err := analysis.SpatialAverage(r, s, phase)
			if err := add(fmt.Sprintf("%s_%d", phase, s), v, err); err != nil {
				return nil, err
			}
		}
		if phase != results.Liquid {
			continue
		}
		for s := 0; s < field.Species; s++ {
			v, err := r.SpatialAverageMTR(s)
			if err := add(fmt.Sprintf("mtr_%d", s), v, err); err != nil {
				return nil, err
			}
		}
	}

	for _, key := range r.PropertyNames() {
		v, err := r.TimePopulationMean(key)
		if err := add("mean_"+key, v, err); err != nil {
			return nil, err
		}
	}
	tbl.Columns = append(tbl.Columns, Column{Name: "growth_in_number", Values: r.GrowthInNumber()})
	return tbl, nil
}

// Summary reduces every column with the standard metrics.
func (t *Table) Summary() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = metrics.Summarize(t.Time, c.Values, metrics.Standard()...)
	}
	return out
}

// WriteCSV writes one row per export step: time first, then every column.
// NaN values and steps past the end of a shorter column are left empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := []string{fmt.Sprintf("time_%s", t.TimeUnit)}
	for _, c := range t.Columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, ts := range t.Time {
		row := []string{formatFloat(ts)}
		for _, c := range t.Columns {
			cell := ""
			if i < len(c.Values) {
				cell = formatFloat(c.Values[i])
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Number is a float64 that encodes NaN and ±Inf as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func numbers(v []float64) []Number {
	out := make([]Number, len(v))
	for i, x := range v {
		out[i] = Number(x)
	}
	return out
}

type ExportData struct {
	Run      string                       `json:"run"`
	TimeUnit string                       `json:"time_unit"`
	Steps    int                          `json:"steps"`
	Time     []Number                     `json:"time"`
	Series   map[string][]Number          `json:"series"`
	Summary  map[string]map[string]Number `json:"summary"`
}

// WriteJSON writes the table and its summary as an indented JSON document.
func WriteJSON(w io.Writer, t *Table) error {
	data := ExportData{
		Run:      t.Run,
		TimeUnit: string(t.TimeUnit),
		Steps:    len(t.Time),
		Time:     numbers(t.Time),
		Series:   make(map[string][]Number, len(t.Columns)),
		Summary:  make(map[string]map[string]Number, len(t.Columns)),
	}
	for _, c := range t.Columns {
		data.Series[c.Name] = numbers(c.Values)
	}
	for col, s := range t.Summary() {
		m := make(map[string]Number, len(s))
		for k, v := range s {
			m[k] = Number(v)
		}
		data.Summary[col] = m
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
