package record

import "errors"

var (
	ErrSchemaMismatch    = errors.New("record: value does not match schema")
	ErrVarTooLong         = errors.New("record: string value exceeds column width")
	ErrBadBuffer          = errors.New("record: buffer too short to decode")
	ErrKeyKindMismatch    = errors.New("record: key kind mismatch")
)
