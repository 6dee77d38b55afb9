// Package pagefile implements fixed-size block storage on a single named
// file: the external collaborator the buffer pool sits on top of.
package pagefile

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/atomic"
)

// DefaultPageSize matches the historical PAGE_SIZE constant of the system
// this engine descends from.
const DefaultPageSize = 4096

// blockStore is the narrow surface pagefile.File needs from its backing
// storage. *os.File satisfies it directly; OpenMemFile adapts an in-memory
// backing store.
type blockStore interface {
	io.ReaderAt
	io.WriterAt
	Close() error
}

// File is a fixed-size block file: PAGE_SIZE bytes per page, addressed by a
// zero-based page number, with a cursor (curPagePos) used by the
// cursor-relative read operations.
type File struct {
	mu         sync.Mutex
	store      blockStore
	name       string
	pageSize   int
	pageCount  int
	curPagePos int
	closed     atomic.Bool
}

// CreatePageFile creates a new page file on disk containing a single
// zero-filled page, truncating any existing file at path.
func CreatePageFile(path string, pageSize int) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	defer f.Close()

	empty := make([]byte, pageSize)
	if _, err := f.WriteAt(empty, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// OpenPageFile opens an existing page file, computing its page count from
// the file's size on disk.
func OpenPageFile(path string, pageSize int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	return &File{
		store:     f,
		name:      path,
		pageSize:  pageSize,
		pageCount: int(info.Size()) / pageSize,
	}, nil
}

// DestroyPageFile deletes the page file at path.
func DestroyPageFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	return nil
}

// OpenMemFile wraps an in-memory blockStore (typically backed by
// github.com/dsnet/golib/memfile) as a page file that never touches disk.
// The file starts with zero pages.
func OpenMemFile(name string, store blockStore, pageSize int) *File {
	return &File{store: store, name: name, pageSize: pageSize}
}

func (f *File) checkOpen() error {
	if f.closed.Load() {
		return ErrClosed
	}
	if f.store == nil {
		return ErrFileHandleNotInit
	}
	return nil
}

// ClosePageFile releases the underlying OS resources. Further operations on
// f return ErrClosed.
func (f *File) ClosePageFile() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Swap(true) {
		return nil
	}
	if f.store == nil {
		return nil
	}
	return f.store.Close()
}

// Name returns the path (or logical name, for in-memory files) this handle
// was opened with.
func (f *File) Name() string { return f.name }

// PageSize returns the fixed block size for this file.
func (f *File) PageSize() int { return f.pageSize }

// PageCount returns the number of pages currently in the file.
func (f *File) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCount
}

// GetBlockPos returns the file handle's current cursor position, or -1 if
// the handle is not usable.
func (f *File) GetBlockPos() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkOpen() != nil {
		return -1
	}
	return f.curPagePos
}

// ReadBlock reads page pageNum into buf, which must be at least PageSize()
// bytes, and advances the cursor to pageNum on success.
func (f *File) ReadBlock(pageNum int, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readBlockLocked(pageNum, buf)
}

func (f *File) readBlockLocked(pageNum int, buf []byte) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if pageNum < 0 || pageNum >= f.pageCount {
		return ErrReadNonExistingPage
	}
	n, err := f.store.ReadAt(buf[:f.pageSize], int64(pageNum)*int64(f.pageSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", ErrReadNonExistingPage, err)
	}
	if n != f.pageSize {
		return ErrReadNonExistingPage
	}
	f.curPagePos = pageNum
	return nil
}

// WriteBlock writes buf (PageSize() bytes) to page pageNum and advances the
// cursor to pageNum on success. pageNum must already exist; grow the file
// with AppendEmptyBlock/EnsureCapacity first.
func (f *File) WriteBlock(pageNum int, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return err
	}
	if pageNum < 0 || pageNum >= f.pageCount {
		return ErrWriteFailed
	}
	n, err := f.store.WriteAt(buf[:f.pageSize], int64(pageNum)*int64(f.pageSize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if n != f.pageSize {
		return ErrWriteFailed
	}
	f.curPagePos = pageNum
	return nil
}

// WriteCurrentBlock writes buf to the page at the current cursor position.
func (f *File) WriteCurrentBlock(buf []byte) error {
	f.mu.Lock()
	cur := f.curPagePos
	f.mu.Unlock()
	return f.WriteBlock(cur, buf)
}

// AppendEmptyBlock appends one zero-filled page, growing the file by one
// page and incrementing the page count.
func (f *File) AppendEmptyBlock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return err
	}
	empty := make([]byte, f.pageSize)
	if _, err := f.store.WriteAt(empty, int64(f.pageCount)*int64(f.pageSize)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	f.pageCount++
	return nil
}

// EnsureCapacity grows the file with zero-filled pages, if necessary, so
// that it holds at least numPages pages. A no-op if the file is already
// large enough.
func (f *File) EnsureCapacity(numPages int) error {
	f.mu.Lock()
	toAdd := numPages - f.pageCount
	f.mu.Unlock()
	for toAdd > 0 {
		if err := f.AppendEmptyBlock(); err != nil {
			return err
		}
		toAdd--
	}
	return nil
}

// ReadFirst reads page 0.
func (f *File) ReadFirst(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readBlockLocked(0, buf)
}

// ReadLast reads the last existing page.
func (f *File) ReadLast(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readBlockLocked(f.pageCount-1, buf)
}

// ReadPrevious reads the page immediately before the cursor.
func (f *File) ReadPrevious(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readBlockLocked(f.curPagePos-1, buf)
}

// ReadCurrent re-reads the page at the cursor.
func (f *File) ReadCurrent(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readBlockLocked(f.curPagePos, buf)
}

// ReadNext reads the page immediately after the cursor.
func (f *File) ReadNext(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readBlockLocked(f.curPagePos+1, buf)
}
