package recordmgr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobytes/pagedb/internal/bufferpool"
	"github.com/arlobytes/pagedb/internal/record"
)

func testSchema() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt},
		{Name: "score", Type: record.ColFloat},
		{Name: "name", Type: record.ColString, Len: 16},
	}}
}

func newTestTable(t *testing.T) (*Table, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.tbl")
	tbl, err := CreateTable(path, testSchema(), 4, bufferpool.FIFO)
	require.NoError(t, err)

	return tbl, func() { _ = tbl.Close() }
}

func TestTable_InsertGet_RoundTrip(t *testing.T) {
	tbl, cleanup := newTestTable(t)
	defer cleanup()

	rid, err := tbl.Insert([]any{int64(1), 9.5, "alice"})
	require.NoError(t, err)
	require.Equal(t, record.RID{Page: 1, Slot: 0}, rid)

	values, err := tbl.Get(rid)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), 9.5, "alice"}, values)
	require.Equal(t, int64(1), tbl.NumTuples())
}

func TestTable_SpansMultiplePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spanning.tbl")
	tbl, err := CreateTable(path, testSchema(), 4, bufferpool.FIFO)
	require.NoError(t, err)
	defer tbl.Close()

	slotsPerPage := tbl.slotsPerPage
	total := slotsPerPage*2 + 3
	var rids []record.RID
	for i := 0; i < total; i++ {
		rid, err := tbl.Insert([]any{int64(i), float64(i), "row"})
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.Equal(t, 3, rids[len(rids)-1].Page)
	require.Equal(t, int64(total), tbl.NumTuples())
}

func TestTable_DeleteThenGetFails(t *testing.T) {
	tbl, cleanup := newTestTable(t)
	defer cleanup()

	rid, err := tbl.Insert([]any{int64(1), 1.0, "a"})
	require.NoError(t, err)

	require.NoError(t, tbl.Delete(rid))
	_, err = tbl.Get(rid)
	require.ErrorIs(t, err, ErrNoTupleWithRID)
	require.Equal(t, int64(0), tbl.NumTuples())
}

func TestTable_Update(t *testing.T) {
	tbl, cleanup := newTestTable(t)
	defer cleanup()

	rid, err := tbl.Insert([]any{int64(1), 1.0, "a"})
	require.NoError(t, err)

	require.NoError(t, tbl.Update(rid, []any{int64(1), 2.0, "b"}))
	values, err := tbl.Get(rid)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), 2.0, "b"}, values)
}

func TestScan_SkipsTombstones(t *testing.T) {
	tbl, cleanup := newTestTable(t)
	defer cleanup()

	var rids []record.RID
	for i := 0; i < 5; i++ {
		rid, err := tbl.Insert([]any{int64(i), float64(i), "row"})
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, tbl.Delete(rids[2]))

	scan, err := OpenScan(tbl, func(live bool, values []any) bool { return live })
	require.NoError(t, err)
	defer scan.Close()

	var ids []int64
	for {
		_, values, err := scan.Next()
		if err == ErrNoMoreTuples {
			break
		}
		require.NoError(t, err)
		ids = append(ids, values[0].(int64))
	}
	require.Equal(t, []int64{0, 1, 3, 4}, ids)
	require.Equal(t, int64(4), tbl.NumTuples())
}

func TestOpenTable_ReopensSchemaAndCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.tbl")
	tbl, err := CreateTable(path, testSchema(), 4, bufferpool.FIFO)
	require.NoError(t, err)
	_, err = tbl.Insert([]any{int64(1), 1.0, "a"})
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	reopened, err := OpenTable(path, 4, bufferpool.FIFO)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, int64(1), reopened.NumTuples())
	require.Equal(t, testSchema(), reopened.Schema())

	values, err := reopened.Get(record.RID{Page: 1, Slot: 0})
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), 1.0, "a"}, values)
}

func TestTable_ClosedRejectsOperations(t *testing.T) {
	tbl, _ := newTestTable(t)
	require.NoError(t, tbl.Close())

	_, err := tbl.Insert([]any{int64(1), 1.0, "a"})
	require.ErrorIs(t, err, ErrTableClosed)
}
