// Package timeunit normalizes run time axes for display.
//
// Long runs are shown in hours. The unit is carried by the returned [Series]
// rather than held in process-wide state, so two runs normalized in the same
// process never share a display unit by accident.
package timeunit

import "fmt"

// Unit is the display unit of a time axis.
type Unit string

const (
	Seconds Unit = "s"
	Hours   Unit = "h"
)

const (
	// Threshold is the final time, in seconds, above which an axis is shown in hours.
	Threshold = 10000.0
	// SecondsPerHour converts between the two units.
	SecondsPerHour = 3600.0
)

// Scale returns the number of seconds in one unit.
func (u Unit) Scale() float64 {
	if u == Hours {
		return SecondsPerHour
	}
	return 1
}

// Series is a time axis tagged with its unit.
type Series struct {
	Values []float64
	Unit   Unit
}

// Normalize converts t to hours when its last value exceeds Threshold and
// copies it unchanged otherwise. t is never modified.
func Normalize(t []float64) Series {
	out := make([]float64, len(t))
	if len(t) == 0 || t[len(t)-1] <= Threshold {
		copy(out, t)
		return Series{Values: out, Unit: Seconds}
	}
	for i, v := range t {
		out[i] = v / SecondsPerHour
	}
	return Series{Values: out, Unit: Hours}
}

// Label is the axis title, e.g. "Time [h]".
func (s Series) Label() string {
	return fmt.Sprintf("Time [%s]", s.unit())
}

func (s Series) Len() int {
	return len(s.Values)
}

// Last returns the final timestamp, or 0 for an empty series.
func (s Series) Last() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[len(s.Values)-1]
}

// Seconds returns the values converted back to seconds.
func (s Series) Seconds() []float64 {
	out := make([]float64, len(s.Values))
	scale := s.unit().Scale()
	for i, v := range s.Values {
		out[i] = v * scale
	}
	return out
}

// In returns a copy of s expressed in u.
func (s Series) In(u Unit) Series {
	out := make([]float64, len(s.Values))
	from, to := s.unit().Scale(), u.Scale()
	for i, v := range s.Values {
		out[i] = v * from / to
	}
	return Series{Values: out, Unit: u}
}

func (s Series) unit() Unit {
	if s.Unit == "" {
		return Seconds
	}
	return s.Unit
}
