package pagefile

import "errors"

var (
	ErrFileNotFound        = errors.New("pagefile: file not found")
	ErrFileHandleNotInit   = errors.New("pagefile: file handle not initialized")
	ErrWriteFailed         = errors.New("pagefile: write failed")
	ErrReadNonExistingPage = errors.New("pagefile: read of non-existing page")
	ErrClosed              = errors.New("pagefile: file is closed")
)
