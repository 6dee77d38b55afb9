package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTestSchema() Schema {
	return Schema{
		Cols: []Column{
			{Name: "id", Type: ColInt},
			{Name: "score", Type: ColFloat},
			{Name: "active", Type: ColBool},
			{Name: "name", Type: ColString, Len: 16},
		},
	}
}

func TestEncodeDecodeRow_RoundTrip(t *testing.T) {
	schema := makeTestSchema()

	values := []any{int64(42), 3.14159, true, "hello"}

	buf, err := EncodeRow(schema, values)
	require.NoError(t, err)
	require.Len(t, buf, schema.RowWidth())

	row, err := DecodeRow(schema, buf)
	require.NoError(t, err)

	require.Len(t, row, len(values))
	require.Equal(t, int64(42), row[0])
	require.InDelta(t, 3.14159, row[1].(float64), 1e-9)
	require.True(t, row[2].(bool))
	require.Equal(t, "hello", row[3])
}

func TestEncodeRow_SchemaMismatch(t *testing.T) {
	schema := makeTestSchema()

	t.Run("wrong number of values", func(t *testing.T) {
		_, err := EncodeRow(schema, []any{int64(1), 2.0, true})
		require.Error(t, err)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("wrong type for column", func(t *testing.T) {
		values := []any{"not-an-int", 1.0, true, "ok"}
		_, err := EncodeRow(schema, values)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})
}

func TestEncodeRow_StringTooLong(t *testing.T) {
	schema := Schema{Cols: []Column{{Name: "name", Type: ColString, Len: 4}}}

	_, err := EncodeRow(schema, []any{"way too long"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrVarTooLong)
}

func TestEncodeRow_StringPadding(t *testing.T) {
	schema := Schema{Cols: []Column{{Name: "name", Type: ColString, Len: 8}}}

	buf, err := EncodeRow(schema, []any{"ab"})
	require.NoError(t, err)
	require.Len(t, buf, 8)
	require.Equal(t, []byte{'a', 'b', 0, 0, 0, 0, 0, 0}, buf)

	row, err := DecodeRow(schema, buf)
	require.NoError(t, err)
	require.Equal(t, "ab", row[0])
}

func TestDecodeRow_BadBuffer(t *testing.T) {
	schema := makeTestSchema()

	buf, err := EncodeRow(schema, []any{int64(42), 2.71828, true, "test"})
	require.NoError(t, err)

	truncated := buf[:len(buf)-3]
	_, err = DecodeRow(schema, truncated)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadBuffer)
}

func TestSchema_Validate(t *testing.T) {
	require.NoError(t, makeTestSchema().Validate())

	empty := Schema{}
	require.ErrorIs(t, empty.Validate(), ErrSchemaMismatch)

	badString := Schema{Cols: []Column{{Name: "s", Type: ColString, Len: 0}}}
	require.ErrorIs(t, badString.Validate(), ErrSchemaMismatch)
}
