// Package recordmgr implements the slotted-page record manager: table
// create/open/close/delete, insert/update/delete/get by RID, and predicate
// scans, layered on top of a bufferpool.Pool.
package recordmgr

import (
	"log/slog"

	"go.uber.org/atomic"

	"github.com/arlobytes/pagedb/internal/bufferpool"
	"github.com/arlobytes/pagedb/internal/pagefile"
	"github.com/arlobytes/pagedb/internal/record"
)

// Table is an open handle to a slotted-page table file: page 0 holds
// metadata (tuple count, free-page hint, schema); pages 1.. hold
// fixed-width, tombstone-prefixed record slots.
type Table struct {
	schema       record.Schema
	recordSize   int
	slotsPerPage int

	pool *bufferpool.Pool
	file *pagefile.File

	tupleCount int64
	freePage   int64

	closed atomic.Bool
	log    *slog.Logger
}

// CreateTable creates a new table file at path with the given schema and
// buffer pool sizing, writing an initial empty page-0 metadata page.
func CreateTable(path string, schema record.Schema, poolCapacity int, strategy bufferpool.Strategy) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := pagefile.CreatePageFile(path, pagefile.DefaultPageSize); err != nil {
		return nil, err
	}
	f, err := pagefile.OpenPageFile(path, pagefile.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	pool, err := bufferpool.NewPool(f, poolCapacity, strategy)
	if err != nil {
		f.ClosePageFile()
		return nil, err
	}

	t := newTable(f, pool, schema, 0, 1)
	if err := t.syncMeta(); err != nil {
		pool.Shutdown()
		f.ClosePageFile()
		return nil, err
	}
	return t, nil
}

// OpenTable opens an existing table file, reading its schema and counters
// back from the page-0 metadata page.
func OpenTable(path string, poolCapacity int, strategy bufferpool.Strategy) (*Table, error) {
	f, err := pagefile.OpenPageFile(path, pagefile.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	pool, err := bufferpool.NewPool(f, poolCapacity, strategy)
	if err != nil {
		f.ClosePageFile()
		return nil, err
	}

	h, err := pool.Pin(0)
	if err != nil {
		pool.Shutdown()
		f.ClosePageFile()
		return nil, err
	}
	meta, err := decodeMeta(h.Data)
	pool.Unpin(h, false)
	if err != nil {
		pool.Shutdown()
		f.ClosePageFile()
		return nil, err
	}

	t := newTable(f, pool, meta.schema, meta.tupleCount, meta.freePage)
	return t, nil
}

// DeleteTable removes the table's backing page file.
func DeleteTable(path string) error {
	return pagefile.DestroyPageFile(path)
}

func newTable(f *pagefile.File, pool *bufferpool.Pool, schema record.Schema, tupleCount, freePage int64) *Table {
	recordSize := 1 + schema.RowWidth()
	return &Table{
		schema:       schema,
		recordSize:   recordSize,
		slotsPerPage: f.PageSize() / recordSize,
		pool:         pool,
		file:         f,
		tupleCount:   tupleCount,
		freePage:     freePage,
		log:          slog.Default().With("component", "recordmgr", "table", f.Name()),
	}
}

// Schema returns the table's column schema.
func (t *Table) Schema() record.Schema { return t.schema }

// NumTuples returns the number of live (non-tombstoned) rows inserted minus
// deleted so far.
func (t *Table) NumTuples() int64 { return t.tupleCount }

// Close flushes and shuts down the table's buffer pool and closes its page
// file. Further operations on t return ErrTableClosed.
func (t *Table) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if err := t.pool.Shutdown(); err != nil {
		return err
	}
	return t.file.ClosePageFile()
}

func (t *Table) checkOpen() error {
	if t.closed.Load() {
		return ErrTableClosed
	}
	return nil
}

// syncMeta writes the table's current counters and schema back to page 0.
func (t *Table) syncMeta() error {
	buf, err := encodeMeta(tableMeta{
		tupleCount: t.tupleCount,
		freePage:   t.freePage,
		schema:     t.schema,
	}, t.file.PageSize())
	if err != nil {
		return err
	}
	h, err := t.pool.Pin(0)
	if err != nil {
		return err
	}
	copy(h.Data, buf)
	return t.pool.Unpin(h, true)
}

// findFreeSlot returns the index of the first slot in buf whose status byte
// is not '+', or -1 if every slot is occupied.
func findFreeSlot(buf []byte, recordSize, slotsPerPage int) int {
	for i := 0; i < slotsPerPage; i++ {
		if buf[i*recordSize] != '+' {
			return i
		}
	}
	return -1
}

// Insert writes values as a new row, starting the search for a free slot at
// the table's free-page hint and growing the file (via the pool's
// ensure-capacity-on-miss) if every existing page is full.
func (t *Table) Insert(values []any) (record.RID, error) {
	if err := t.checkOpen(); err != nil {
		return record.NoRID, err
	}
	row, err := record.EncodeRow(t.schema, values)
	if err != nil {
		return record.NoRID, err
	}

	page := t.freePage
	for {
		h, err := t.pool.Pin(int(page))
		if err != nil {
			return record.NoRID, err
		}
		slot := findFreeSlot(h.Data, t.recordSize, t.slotsPerPage)
		if slot == -1 {
			if err := t.pool.Unpin(h, false); err != nil {
				return record.NoRID, err
			}
			page++
			continue
		}

		off := slot * t.recordSize
		h.Data[off] = '+'
		copy(h.Data[off+1:off+t.recordSize], row)
		if err := t.pool.Unpin(h, true); err != nil {
			return record.NoRID, err
		}

		t.tupleCount++
		t.freePage = page
		if err := t.syncMeta(); err != nil {
			return record.NoRID, err
		}
		return record.RID{Page: int(page), Slot: slot}, nil
	}
}

// Get reads the live row at rid, failing with ErrNoTupleWithRID if the slot
// is tombstoned.
func (t *Table) Get(rid record.RID) ([]any, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	h, err := t.pool.Pin(rid.Page)
	if err != nil {
		return nil, err
	}
	defer t.pool.Unpin(h, false)

	off := rid.Slot * t.recordSize
	slot := h.Data[off : off+t.recordSize]
	if slot[0] != '+' {
		return nil, ErrNoTupleWithRID
	}
	return record.DecodeRow(t.schema, slot[1:])
}

// Update overwrites the row at rid with values, marking the slot live.
func (t *Table) Update(rid record.RID, values []any) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	row, err := record.EncodeRow(t.schema, values)
	if err != nil {
		return err
	}
	h, err := t.pool.Pin(rid.Page)
	if err != nil {
		return err
	}

	off := rid.Slot * t.recordSize
	h.Data[off] = '+'
	copy(h.Data[off+1:off+t.recordSize], row)
	return t.pool.Unpin(h, true)
}

// Delete tombstones the slot at rid and points the free-page hint at rid's
// page, since it now has at least one free slot.
func (t *Table) Delete(rid record.RID) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	h, err := t.pool.Pin(rid.Page)
	if err != nil {
		return err
	}
	h.Data[rid.Slot*t.recordSize] = '-'
	if err := t.pool.Unpin(h, true); err != nil {
		return err
	}

	t.tupleCount--
	t.freePage = int64(rid.Page)
	return t.syncMeta()
}
