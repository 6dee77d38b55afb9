package btree

import "errors"

var (
	ErrKeyNotFound    = errors.New("btree: key not found")
	ErrNoMoreEntries  = errors.New("btree: no more entries")
	ErrInvalidFanOut  = errors.New("btree: fan-out must be >= 1")
	ErrScanClosed     = errors.New("btree: scan is closed")
	ErrTreeClosed     = errors.New("btree: tree is closed")
)
