package pagefile

import "github.com/dsnet/golib/memfile"

// NewMemFile creates an in-memory page file backed by
// github.com/dsnet/golib/memfile, used as a test fixture. B+-tree index
// files are ordinary on-disk page files, not memory files.
func NewMemFile(name string, pageSize int) *File {
	return OpenMemFile(name, memfile.New(nil), pageSize)
}
