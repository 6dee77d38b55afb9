package recordmgr

import (
	"encoding/binary"
	"fmt"

	"github.com/arlobytes/pagedb/internal/record"
)

// attrNameLen is the fixed width reserved for an attribute's name in the
// page-0 metadata layout.
const attrNameLen = 32

// metaHeaderLen is the byte width of the four-integer page-0 header
// (tuple count, first-free-page hint, attribute count, key size).
const metaHeaderLen = 4 * 8

// attrDescLen is the byte width of one per-attribute descriptor triple
// (name, data type tag, type length).
const attrDescLen = attrNameLen + 8 + 8

// tableMeta is the decoded content of a table's page-0 metadata page.
type tableMeta struct {
	tupleCount int64
	freePage   int64
	keySize    int64
	schema     record.Schema
}

// encodeMeta serializes meta into a page-sized buffer. Unused trailing
// bytes are left zero.
func encodeMeta(meta tableMeta, pageSize int) ([]byte, error) {
	need := metaHeaderLen + len(meta.schema.Cols)*attrDescLen
	if need > pageSize {
		return nil, fmt.Errorf("%w: schema needs %d bytes, page holds %d", ErrPageTooSmall, need, pageSize)
	}

	buf := make([]byte, pageSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(meta.tupleCount))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(meta.freePage))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(meta.schema.Cols)))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(meta.keySize))

	off := metaHeaderLen
	for _, col := range meta.schema.Cols {
		copy(buf[off:off+attrNameLen], col.Name)
		binary.LittleEndian.PutUint64(buf[off+attrNameLen:off+attrNameLen+8], uint64(col.Type))
		binary.LittleEndian.PutUint64(buf[off+attrNameLen+8:off+attrDescLen], uint64(col.Len))
		off += attrDescLen
	}
	return buf, nil
}

// decodeMeta parses a page-0 metadata page produced by encodeMeta.
func decodeMeta(buf []byte) (tableMeta, error) {
	if len(buf) < metaHeaderLen {
		return tableMeta{}, ErrPageTooSmall
	}
	meta := tableMeta{
		tupleCount: int64(binary.LittleEndian.Uint64(buf[0:8])),
		freePage:   int64(binary.LittleEndian.Uint64(buf[8:16])),
		keySize:    int64(binary.LittleEndian.Uint64(buf[24:32])),
	}
	attrCount := int(binary.LittleEndian.Uint64(buf[16:24]))

	off := metaHeaderLen
	cols := make([]record.Column, attrCount)
	for i := 0; i < attrCount; i++ {
		if off+attrDescLen > len(buf) {
			return tableMeta{}, ErrPageTooSmall
		}
		name := trimZero(buf[off : off+attrNameLen])
		typ := record.ColumnType(binary.LittleEndian.Uint64(buf[off+attrNameLen : off+attrNameLen+8]))
		length := int(binary.LittleEndian.Uint64(buf[off+attrNameLen+8 : off+attrDescLen]))
		cols[i] = record.Column{Name: name, Type: typ, Len: length}
		off += attrDescLen
	}
	meta.schema = record.Schema{Cols: cols}
	return meta, nil
}

func trimZero(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
