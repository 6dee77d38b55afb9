// Package bufferpool implements the bounded, pin-reference-counted page
// cache sitting between the higher-level access methods and the page file.
package bufferpool

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/arlobytes/pagedb/internal/pagefile"
)

const (
	// NoPage is the sentinel page number held by an empty frame.
	NoPage = -1
	// DefaultCapacity is used when a caller does not specify a pool size.
	DefaultCapacity = 16
)

// Frame is an in-memory slot holding at most one page.
type Frame struct {
	PageID    int
	Buf       []byte
	Dirty     bool
	Pin       int32
	FIFOStamp uint64
	LRUStamp  uint64
}

// Handle is a borrowed view of a frame's buffer, valid only between a Pin
// and its matching Unpin. The Data slice aliases the frame's own buffer; it
// must not be retained past Unpin.
type Handle struct {
	PageNum int
	Data    []byte
}

// Pool is a fixed-size array of frames caching pages from a single
// pagefile.File, with a chosen replacement Strategy.
type Pool struct {
	mu        sync.Mutex
	file      *pagefile.File
	frames    []*Frame
	pageTable map[int]int
	strategy  Strategy
	capacity  int

	nextFIFOStamp uint64
	cacheHits     uint64
	readIO        uint64
	writeIO       uint64

	log *slog.Logger
}

// NewPool allocates a pool of capacity frames (each initially empty) over
// file, using strategy to pick eviction victims. capacity <= 0 is replaced
// with DefaultCapacity.
func NewPool(file *pagefile.File, capacity int, strategy Strategy) (*Pool, error) {
	if file == nil {
		return nil, ErrInvalidArgs
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	frames := make([]*Frame, capacity)
	for i := range frames {
		frames[i] = &Frame{PageID: NoPage}
	}

	return &Pool{
		file:      file,
		frames:    frames,
		pageTable: make(map[int]int, capacity),
		strategy:  strategy,
		capacity:  capacity,
		log:       slog.With("component", "bufferpool", "strategy", strategy.String()),
	}, nil
}

// Pin acquires a frame for pageNum, loading it from the page file on a
// miss, and returns a Handle aliasing the frame's buffer. Pair every Pin
// with exactly one Unpin.
func (p *Pool) Pin(pageNum int) (*Handle, error) {
	if pageNum < 0 {
		return nil, ErrInvalidArgs
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageTable[pageNum]; ok {
		fr := p.frames[idx]
		fr.Pin++
		p.cacheHits++
		if p.strategy == LRU {
			fr.LRUStamp = p.cacheHits
		}
		p.log.Debug("pin hit", "pageNum", pageNum, "fixCount", fr.Pin)
		return &Handle{PageNum: pageNum, Data: fr.Buf}, nil
	}

	idx, err := p.acquireFrameLocked()
	if err != nil {
		return nil, err
	}
	fr := p.frames[idx]

	if fr.PageID != NoPage {
		if fr.Dirty {
			if err := p.flushFrameLocked(fr); err != nil {
				return nil, err
			}
		}
		delete(p.pageTable, fr.PageID)
	}

	if err := p.file.EnsureCapacity(pageNum + 1); err != nil {
		return nil, err
	}
	if fr.Buf == nil {
		fr.Buf = make([]byte, p.file.PageSize())
	}
	if err := p.file.ReadBlock(pageNum, fr.Buf); err != nil {
		return nil, err
	}
	p.readIO++
	p.cacheHits++

	fr.PageID = pageNum
	fr.Dirty = false
	fr.Pin = 1
	p.nextFIFOStamp++
	fr.FIFOStamp = p.nextFIFOStamp
	if p.strategy == LRU {
		fr.LRUStamp = p.cacheHits
	}
	p.pageTable[pageNum] = idx

	p.log.Debug("pin miss loaded", "pageNum", pageNum, "frame", idx)
	return &Handle{PageNum: pageNum, Data: fr.Buf}, nil
}

// acquireFrameLocked returns the index of a frame to hold a newly-pinned
// page: an empty frame if one exists, otherwise the replacement policy's
// victim. Caller holds p.mu.
func (p *Pool) acquireFrameLocked() (int, error) {
	for i, fr := range p.frames {
		if fr.PageID == NoPage {
			return i, nil
		}
	}
	idx := pickVictim(p.frames, p.strategy)
	if idx == -1 {
		return 0, ErrNoFreeFrame
	}
	return idx, nil
}

func (p *Pool) frameForPage(pageNum int) (*Frame, error) {
	idx, ok := p.pageTable[pageNum]
	if !ok {
		return nil, fmt.Errorf("%w: page %d", ErrPageNotPinned, pageNum)
	}
	return p.frames[idx], nil
}

// Unpin decrements the fix count of the frame holding handle.PageNum,
// marking it dirty if dirty is true.
func (p *Pool) Unpin(handle *Handle, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fr, err := p.frameForPage(handle.PageNum)
	if err != nil {
		return err
	}
	if fr.Pin <= 0 {
		return fmt.Errorf("%w: page %d", ErrAlreadyUnpinned, handle.PageNum)
	}
	fr.Pin--
	if dirty {
		fr.Dirty = true
	}
	return nil
}

// MarkDirty sets the dirty flag of the frame currently holding pageNum.
func (p *Pool) MarkDirty(pageNum int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fr, err := p.frameForPage(pageNum)
	if err != nil {
		return err
	}
	fr.Dirty = true
	return nil
}

// ForcePage writes the frame holding pageNum to disk immediately and clears
// its dirty flag, regardless of its pin state.
func (p *Pool) ForcePage(pageNum int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fr, err := p.frameForPage(pageNum)
	if err != nil {
		return err
	}
	return p.flushFrameLocked(fr)
}

func (p *Pool) flushFrameLocked(fr *Frame) error {
	if err := p.file.WriteBlock(fr.PageID, fr.Buf); err != nil {
		return err
	}
	p.writeIO++
	fr.Dirty = false
	return nil
}

// FlushAll writes every dirty, unpinned frame back to disk and clears its
// dirty flag. Pinned frames are left untouched. A write failure on one
// frame does not stop the sweep; all per-frame errors are aggregated and
// returned together.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	for _, fr := range p.frames {
		if fr.PageID == NoPage || !fr.Dirty || fr.Pin > 0 {
			continue
		}
		errs = multierr.Append(errs, p.flushFrameLocked(fr))
	}
	return errs
}

// Shutdown flushes all dirty unpinned frames and releases frame buffers.
// It fails with ErrPinnedPagesInBuffer if any frame is still pinned.
func (p *Pool) Shutdown() error {
	if err := p.FlushAll(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, fr := range p.frames {
		if fr.Pin > 0 {
			return ErrPinnedPagesInBuffer
		}
	}
	for _, fr := range p.frames {
		fr.Buf = nil
		fr.PageID = NoPage
		fr.Dirty = false
	}
	p.pageTable = make(map[int]int, p.capacity)
	return nil
}

// GetFrameContents returns the page number held by each frame (NoPage for
// an empty frame), in frame order.
func (p *Pool) GetFrameContents() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.frames))
	for i, fr := range p.frames {
		out[i] = fr.PageID
	}
	return out
}

// GetDirtyFlags returns each frame's dirty flag, in frame order.
func (p *Pool) GetDirtyFlags() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]bool, len(p.frames))
	for i, fr := range p.frames {
		out[i] = fr.Dirty
	}
	return out
}

// GetFixCounts returns each frame's fix count, in frame order.
func (p *Pool) GetFixCounts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.frames))
	for i, fr := range p.frames {
		out[i] = int(fr.Pin)
	}
	return out
}

// NumReadIO returns the number of page reads issued to the page file.
func (p *Pool) NumReadIO() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readIO
}

// NumWriteIO returns the number of page writes issued to the page file.
func (p *Pool) NumWriteIO() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeIO
}

// NumCacheHits returns the pool's hit counter. It is incremented by every
// successful Pin, both hits on resident pages and misses that load a page,
// and its value is the LRU access stamp.
func (p *Pool) NumCacheHits() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cacheHits
}

// Capacity returns the number of frames in the pool.
func (p *Pool) Capacity() int { return p.capacity }
