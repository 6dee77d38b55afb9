package recordmgr

import "errors"

var (
	ErrNoTupleWithRID     = errors.New("recordmgr: no tuple with given RID")
	ErrNoMoreTuples       = errors.New("recordmgr: no more tuples")
	ErrScanConditionMissing = errors.New("recordmgr: scan has no predicate")
	ErrTableClosed        = errors.New("recordmgr: table is closed")
	ErrPageTooSmall       = errors.New("recordmgr: page size too small for one record")
)
