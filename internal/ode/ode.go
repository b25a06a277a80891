// Package ode provides fixed-step integrators for small autonomous ODE
// systems dX/dt = f(X, t).
//
// It backs the synthetic run generator and is not meant as a general solver.
package ode

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidState indicates a NaN or Inf in the state vector.
	ErrInvalidState = errors.New("ode: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates an initial state of the wrong size.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")

	// ErrUnknownStepper is returned by NewStepper for an unsupported name.
	ErrUnknownStepper = errors.New("ode: unknown stepper")
)

// State is a state vector.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is an ODE right-hand side.
type System interface {
	Derive(x State, t float64) State
	Dim() int
}

// Stepper advances a state by one step of size dt.
type Stepper interface {
	Step(sys System, x State, t, dt float64) State
}

// StepError carries the step at which integration failed.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }

// NewStepper returns the stepper registered under name ("euler" or "rk4").
func NewStepper(name string) (Stepper, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4", "":
		return NewRK4(), nil
	}
	return nil, fmt.Errorf("%w: %q (available: euler, rk4)", ErrUnknownStepper, name)
}

// Sample integrates sys from x0 with step dt and returns the state at each
// of the requested times. times must be non-decreasing and start at or
// after t0; the last step before each sample is shortened to land on it.
func Sample(ctx context.Context, sys System, stepper Stepper, x0 State, t0, dt float64, times []float64) ([]State, error) {
	if len(x0) != sys.Dim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x0), sys.Dim())
	}
	if dt <= 0 {
		return nil, fmt.Errorf("ode: dt must be positive, got %g", dt)
	}

	out := make([]State, 0, len(times))
	x, t := x0.Clone(), t0
	step := 0
	for _, target := range times {
		if target < t {
			return nil, fmt.Errorf("ode: sample time %g precedes current time %g", target, t)
		}
		for t < target {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			h := math.Min(dt, target-t)
			x = stepper.Step(sys, x, t, h)
			t += h
			if math.Abs(target-t) < dt*1e-9 {
				t = target
			}
			step++
			if !x.IsValid() {
				return nil, &StepError{Step: step, Time: t, Wrapped: ErrInvalidState}
			}
		}
		out = append(out, x.Clone())
	}
	return out, nil
}
