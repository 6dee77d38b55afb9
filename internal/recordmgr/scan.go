package recordmgr

import (
	"github.com/arlobytes/pagedb/internal/record"
)

// Predicate decides whether a scanned row should be returned. live reports
// whether the slot's status byte was '+' — a scan visits tombstoned slots
// too, so a typical predicate should check live before trusting values.
type Predicate func(live bool, values []any) bool

// Scan walks every slot of an open table in page/slot order, starting at
// page 1 (page 0 is metadata), evaluating pred against each and returning
// the first hit. It reuses the table handle passed to OpenScan rather than
// opening its own.
type Scan struct {
	table   *Table
	pred    Predicate
	page    int
	slot    int
	visited int64
}

// OpenScan begins a new scan over table using pred to filter rows.
func OpenScan(table *Table, pred Predicate) (*Scan, error) {
	if pred == nil {
		return nil, ErrScanConditionMissing
	}
	if err := table.checkOpen(); err != nil {
		return nil, err
	}
	return &Scan{table: table, pred: pred, page: 1, slot: 0}, nil
}

// Next advances the scan and returns the RID and values of the next row
// satisfying the predicate, or ErrNoMoreTuples once every slot has been
// visited once without a fresh hit.
func (s *Scan) Next() (record.RID, []any, error) {
	t := s.table
	if t.tupleCount == 0 {
		return record.NoRID, nil, ErrNoMoreTuples
	}

	for {
		if s.visited > 0 {
			s.slot++
			if s.slot >= t.slotsPerPage {
				s.slot = 0
				s.page++
			}
		}
		if s.page >= t.file.PageCount() {
			break
		}

		h, err := t.pool.Pin(s.page)
		if err != nil {
			return record.NoRID, nil, err
		}
		off := s.slot * t.recordSize
		raw := h.Data[off : off+t.recordSize]
		live := raw[0] == '+'
		values, decErr := record.DecodeRow(t.schema, raw[1:])
		rid := record.RID{Page: s.page, Slot: s.slot}
		if err := t.pool.Unpin(h, false); err != nil {
			return record.NoRID, nil, err
		}
		if decErr != nil {
			return record.NoRID, nil, decErr
		}

		s.visited++
		if s.pred(live, values) {
			return rid, values, nil
		}
	}

	s.visited = 0
	s.page = 1
	s.slot = 0
	return record.NoRID, nil, ErrNoMoreTuples
}

// Close resets the scan's cursor. The underlying table handle belongs to
// the caller and is left open.
func (s *Scan) Close() error {
	s.visited = 0
	s.page = 1
	s.slot = 0
	return nil
}
