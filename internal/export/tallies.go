package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/san-kum/biomcpp/internal/results"
)

// WriteTalliesCSV writes one row per tally record under a header of
// results.TallyColumns.
func WriteTalliesCSV(w io.Writer, t results.Tallies) error {
	rows, err := t.Rows()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(results.TallyColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type talliesData struct {
	Columns []string          `json:"columns"`
	Rows    [][]float64       `json:"rows"`
	Events  map[string]uint64 `json:"events,omitempty"`
}

// WriteTalliesJSON writes the tallies and the final event counters.
func WriteTalliesJSON(w io.Writer, t results.Tallies, events map[string]uint64) error {
	rows, err := t.Rows()
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(talliesData{Columns: results.TallyColumns, Rows: rows, Events: events})
}

// EventNames returns the event counter names in a stable order.
func EventNames(events map[string]uint64) []string {
	names := make([]string, 0, len(events))
	for k := range events {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
