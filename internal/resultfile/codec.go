package resultfile

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Every dataset blob is an Arrow IPC stream with one float64 column.
var valueSchema = arrow.NewSchema([]arrow.Field{
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
}, nil)

func encodeValues(values []float64) ([]byte, error) {
	mem := memory.NewGoAllocator()

	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, nil)
	col := b.NewFloat64Array()
	defer col.Release()

	rec := array.NewRecord(valueSchema, []arrow.Array{col}, int64(len(values)))
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(valueSchema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("encode values: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte) ([]float64, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	defer r.Release()

	out := []float64{}
	for r.Next() {
		rec := r.Record()
		if rec.NumCols() != 1 {
			return nil, fmt.Errorf("decode values: expected 1 column, got %d", rec.NumCols())
		}
		col, ok := rec.Column(0).(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("decode values: unexpected column type %s", rec.Column(0).DataType())
		}
		out = append(out, col.Float64Values()...)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return out, nil
}
