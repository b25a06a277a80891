package metrics

import "math"

type Final struct {
	name    string
	last    float64
	samples int
}

func NewFinal() *Final {
	return &Final{name: "final"}
}

func (f *Final) Name() string { return f.name }

func (f *Final) Observe(t, v float64) {
	f.last = v
	f.samples++
}

func (f *Final) Value() float64 {
	if f.samples == 0 {
		return math.NaN()
	}
	return f.last
}

func (f *Final) Reset() {
	f.last = 0
	f.samples = 0
}

// Peak is the largest observed value.
type Peak struct {
	name string
	max  float64
}

func NewPeak() *Peak {
	return &Peak{name: "peak", max: math.Inf(-1)}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(t, v float64) {
	p.max = math.Max(p.max, v)
}

func (p *Peak) Value() float64 {
	if math.IsInf(p.max, -1) {
		return math.NaN()
	}
	return p.max
}

func (p *Peak) Reset() {
	p.max = math.Inf(-1)
}

// TimeAverage is the trapezoidal integral divided by the observed time span.
// A single sample averages to itself.
type TimeAverage struct {
	name     string
	integral float64
	t0       float64
	lastT    float64
	lastV    float64
	samples  int
}

func NewTimeAverage() *TimeAverage {
	return &TimeAverage{name: "time_average"}
}

func (a *TimeAverage) Name() string { return a.name }

func (a *TimeAverage) Observe(t, v float64) {
	if a.samples == 0 {
		a.t0 = t
	} else {
		a.integral += 0.5 * (v + a.lastV) * (t - a.lastT)
	}
	a.lastT, a.lastV = t, v
	a.samples++
}

func (a *TimeAverage) Value() float64 {
	switch {
	case a.samples == 0:
		return math.NaN()
	case a.lastT == a.t0:
		return a.lastV
	}
	return a.integral / (a.lastT - a.t0)
}

func (a *TimeAverage) Reset() {
	*a = TimeAverage{name: a.name}
}

// Drift is the relative change between the first and last samples.
type Drift struct {
	name    string
	first   float64
	last    float64
	samples int
}

func NewDrift() *Drift {
	return &Drift{name: "drift"}
}

func (d *Drift) Name() string { return d.name }

func (d *Drift) Observe(t, v float64) {
	if d.samples == 0 {
		d.first = v
	}
	d.last = v
	d.samples++
}

func (d *Drift) Value() float64 {
	if d.samples == 0 || d.first == 0 {
		return math.NaN()
	}
	return (d.last - d.first) / math.Abs(d.first)
}

func (d *Drift) Reset() {
	d.first, d.last = 0, 0
	d.samples = 0
}
