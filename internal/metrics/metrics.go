// Package metrics reduces a derived time series to summary scalars.
//
// Metrics observe (t, v) samples one at a time and are reused across series
// with Reset.
package metrics

import (
	"math"
	"sort"
)

type Metric interface {
	Name() string
	Observe(t, v float64)
	Value() float64
	Reset()
}

// Summarize feeds t and values through every metric and returns their
// values by name. Samples with a NaN value are skipped.
func Summarize(t, values []float64, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for i := range values {
			if i >= len(t) || math.IsNaN(values[i]) {
				continue
			}
			m.Observe(t[i], values[i])
		}
		out[m.Name()] = m.Value()
	}
	return out
}

// Standard is the metric set shown for every series.
func Standard() []Metric {
	return []Metric{NewFinal(), NewPeak(), NewTimeAverage(), NewDrift()}
}

// Names returns the keys of a summary in a stable order.
func Names(summary map[string]float64) []string {
	names := make([]string, 0, len(summary))
	for k := range summary {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
