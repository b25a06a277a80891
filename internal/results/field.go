package results

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Field3 is a row-major steps × compartments × species field.
type Field3 struct {
	Steps        int
	Compartments int
	Species      int
	Data         []float64
}

// NewField3 checks that data holds exactly steps*compartments*species values.
func NewField3(steps, compartments, species int, data []float64) (Field3, error) {
	if steps*compartments*species != len(data) {
		return Field3{}, fmt.Errorf("%w: %d values for shape [%d %d %d]",
			ErrShapeMismatch, len(data), steps, compartments, species)
	}
	return Field3{Steps: steps, Compartments: compartments, Species: species, Data: data}, nil
}

func (f Field3) At(step, compartment, species int) float64 {
	return f.Data[(step*f.Compartments+compartment)*f.Species+species]
}

// SpeciesSlice copies one species into a steps × compartments matrix.
func (f Field3) SpeciesSlice(species int) (*mat.Dense, error) {
	if species < 0 || species >= f.Species {
		return nil, OutOfRange("species slice", species, f.Species)
	}
	if f.Steps == 0 || f.Compartments == 0 {
		return &mat.Dense{}, nil
	}
	m := mat.NewDense(f.Steps, f.Compartments, nil)
	for t := 0; t < f.Steps; t++ {
		for c := 0; c < f.Compartments; c++ {
			m.Set(t, c, f.At(t, c, species))
		}
	}
	return m, nil
}
