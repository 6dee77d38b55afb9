package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeRow serializes values (one per schema column, in order) into a
// fixed-width buffer of length schema.RowWidth(). There is no null bitmap:
// every column must be present (records are fixed-width throughout, per
// this engine's non-goal of variable-length/nullable storage).
func EncodeRow(schema Schema, values []any) ([]byte, error) {
	if len(values) != schema.NumCols() {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrSchemaMismatch, schema.NumCols(), len(values))
	}

	buf := make([]byte, schema.RowWidth())
	off := 0
	for i, col := range schema.Cols {
		w := col.Width()
		if err := encodeValue(col, values[i], buf[off:off+w]); err != nil {
			return nil, err
		}
		off += w
	}
	return buf, nil
}

func encodeValue(col Column, v any, dst []byte) error {
	switch col.Type {
	case ColInt:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("%w: column %q expects int, got %T", ErrSchemaMismatch, col.Name, v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case ColFloat:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%w: column %q expects float64, got %T", ErrSchemaMismatch, col.Name, v)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(f))
	case ColBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: column %q expects bool, got %T", ErrSchemaMismatch, col.Name, v)
		}
		if b {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case ColString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: column %q expects string, got %T", ErrSchemaMismatch, col.Name, v)
		}
		if len(s) > col.Len {
			return fmt.Errorf("%w: column %q width %d, got %d bytes", ErrVarTooLong, col.Name, col.Len, len(s))
		}
		copy(dst, s)
		for i := len(s); i < len(dst); i++ {
			dst[i] = 0
		}
	default:
		return fmt.Errorf("%w: unknown column type for %q", ErrSchemaMismatch, col.Name)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// DecodeRow deserializes a fixed-width buffer back into one value per
// schema column, in order. Integers decode as int64, floats as float64,
// strings as their trailing-NUL-trimmed content.
func DecodeRow(schema Schema, buf []byte) ([]any, error) {
	if len(buf) < schema.RowWidth() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrBadBuffer, schema.RowWidth(), len(buf))
	}

	values := make([]any, schema.NumCols())
	off := 0
	for i, col := range schema.Cols {
		w := col.Width()
		v, err := decodeValue(col, buf[off:off+w])
		if err != nil {
			return nil, err
		}
		values[i] = v
		off += w
	}
	return values, nil
}

func decodeValue(col Column, src []byte) (any, error) {
	switch col.Type {
	case ColInt:
		return int64(binary.LittleEndian.Uint64(src)), nil
	case ColFloat:
		return math.Float64frombits(binary.LittleEndian.Uint64(src)), nil
	case ColBool:
		return src[0] != 0, nil
	case ColString:
		end := len(src)
		for end > 0 && src[end-1] == 0 {
			end--
		}
		return string(src[:end]), nil
	default:
		return nil, fmt.Errorf("%w: unknown column type for %q", ErrBadBuffer, col.Name)
	}
}
