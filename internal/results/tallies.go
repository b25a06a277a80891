package results

import "fmt"

// TallyColumns names the six counters of one tally row.
var TallyColumns = []string{"NewParticle", "Death", "Move", "Exit", "Overflow", "ChangeWeight"}

// Tallies is a flat list of event counters, one row of len(TallyColumns) per record.
type Tallies []float64

func (t Tallies) Validate() error {
	if len(t)%len(TallyColumns) != 0 {
		return fmt.Errorf("%w: %d tally values are not divisible by %d",
			ErrShapeMismatch, len(t), len(TallyColumns))
	}
	return nil
}

// Rows splits the tallies into records. It fails when Validate does.
func (t Tallies) Rows() ([][]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	n := len(TallyColumns)
	rows := make([][]float64, 0, len(t)/n)
	for i := 0; i < len(t); i += n {
		rows = append(rows, t[i:i+n])
	}
	return rows, nil
}
