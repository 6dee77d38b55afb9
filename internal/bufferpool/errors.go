package bufferpool

import "errors"

var (
	ErrInvalidArgs         = errors.New("bufferpool: invalid arguments")
	ErrNoFreeFrame         = errors.New("bufferpool: no free frame available")
	ErrPageNotPinned       = errors.New("bufferpool: page is not held by any frame")
	ErrAlreadyUnpinned     = errors.New("bufferpool: page is already unpinned")
	ErrPinnedPagesInBuffer = errors.New("bufferpool: pinned pages remain in buffer")
)
