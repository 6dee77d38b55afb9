package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobytes/pagedb/internal/record"
)

func testSchema() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt},
		{Name: "name", Type: record.ColString, Len: 16},
	}}
}

func TestDatabase_CreateInsertReopenTable(t *testing.T) {
	db := NewDatabase(t.TempDir())

	tbl, err := db.CreateTable("people", testSchema())
	require.NoError(t, err)

	rid, err := tbl.Insert([]any{int64(1), "ada"})
	require.NoError(t, err)

	require.NoError(t, db.Close())

	db2 := NewDatabase(db.DataDir)
	reopened, err := db2.OpenTable("people")
	require.NoError(t, err)
	defer db2.Close()

	values, err := reopened.Get(rid)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), "ada"}, values)
}

func TestDatabase_CreateTable_Duplicate(t *testing.T) {
	db := NewDatabase(t.TempDir())
	defer db.Close()

	_, err := db.CreateTable("t", testSchema())
	require.NoError(t, err)

	_, err = db.CreateTable("t", testSchema())
	require.ErrorIs(t, err, ErrTableExists)
}

func TestDatabase_OpenTable_NotFound(t *testing.T) {
	db := NewDatabase(t.TempDir())
	defer db.Close()

	_, err := db.OpenTable("missing")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestDatabase_CreateAndUseIndex(t *testing.T) {
	db := NewDatabase(t.TempDir())
	defer db.Close()

	idx, err := db.CreateIndex("people_by_id", record.KeyInt, 2)
	require.NoError(t, err)

	require.NoError(t, idx.Insert(record.NewIntKey(1), record.RID{Page: 1, Slot: 0}))
	rid, err := idx.FindKey(record.NewIntKey(1))
	require.NoError(t, err)
	require.Equal(t, record.RID{Page: 1, Slot: 0}, rid)
}

func TestDatabase_ClosedRejectsOperations(t *testing.T) {
	db := NewDatabase(t.TempDir())
	require.NoError(t, db.Close())

	_, err := db.CreateTable("t", testSchema())
	require.ErrorIs(t, err, ErrDatabaseClosed)
}
