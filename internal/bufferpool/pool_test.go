package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/arlobytes/pagedb/internal/pagefile"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, capacity int, strategy Strategy, numPages int) (*Pool, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.page")
	require.NoError(t, pagefile.CreatePageFile(path, pagefile.DefaultPageSize))
	f, err := pagefile.OpenPageFile(path, pagefile.DefaultPageSize)
	require.NoError(t, err)
	require.NoError(t, f.EnsureCapacity(numPages))

	p, err := NewPool(f, capacity, strategy)
	require.NoError(t, err)

	return p, func() { _ = f.ClosePageFile() }
}

func TestNewPool_DefaultCapacity(t *testing.T) {
	p, cleanup := newTestPool(t, 0, FIFO, 1)
	defer cleanup()
	require.Equal(t, DefaultCapacity, p.Capacity())
}

func TestPool_Pin_LoadsAndPins(t *testing.T) {
	p, cleanup := newTestPool(t, 3, FIFO, 1)
	defer cleanup()

	h, err := p.Pin(0)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, 1, p.GetFixCounts()[0])
	require.Equal(t, uint64(1), p.NumReadIO())
}

func TestPool_Pin_Full_NoFreeFrame(t *testing.T) {
	p, cleanup := newTestPool(t, 2, FIFO, 5)
	defer cleanup()

	_, err := p.Pin(0)
	require.NoError(t, err)
	_, err = p.Pin(1)
	require.NoError(t, err)
	_, err = p.Pin(2)
	require.ErrorIs(t, err, ErrNoFreeFrame)
}

// Scenario 2: FIFO eviction trace.
func TestPool_FIFO_EvictionOrder(t *testing.T) {
	p, cleanup := newTestPool(t, 3, FIFO, 5)
	defer cleanup()

	for _, pg := range []int{0, 1, 2, 3} {
		h, err := p.Pin(pg)
		require.NoError(t, err)
		require.NoError(t, p.Unpin(h, false))
	}
	require.ElementsMatch(t, []int{3, 1, 2}, p.GetFrameContents())

	h, err := p.Pin(4)
	require.NoError(t, err)
	require.NoError(t, p.Unpin(h, false))
	require.ElementsMatch(t, []int{3, 4, 2}, p.GetFrameContents())

	require.Equal(t, uint64(5), p.NumReadIO())
	require.Equal(t, uint64(0), p.NumWriteIO())
}

// Scenario 3: LRU eviction trace.
func TestPool_LRU_EvictionOrder(t *testing.T) {
	p, cleanup := newTestPool(t, 3, LRU, 5)
	defer cleanup()

	for _, pg := range []int{0, 1, 2} {
		h, err := p.Pin(pg)
		require.NoError(t, err)
		require.NoError(t, p.Unpin(h, false))
	}

	hitsBefore := p.NumCacheHits()
	h, err := p.Pin(0)
	require.NoError(t, err)
	require.NoError(t, p.Unpin(h, false))
	require.Greater(t, p.NumCacheHits(), hitsBefore)

	h, err = p.Pin(3)
	require.NoError(t, err)
	require.NoError(t, p.Unpin(h, false))

	require.ElementsMatch(t, []int{0, 3, 2}, p.GetFrameContents())
}

// Scenario 4: dirty eviction forces exactly one write and preserves the
// mutation.
func TestPool_DirtyEviction_WritesBack(t *testing.T) {
	p, cleanup := newTestPool(t, 2, FIFO, 5)
	defer cleanup()

	h, err := p.Pin(0)
	require.NoError(t, err)
	h.Data[0] = 'Z'
	require.NoError(t, p.Unpin(h, true))

	for _, pg := range []int{1, 2, 3} {
		h, err := p.Pin(pg)
		require.NoError(t, err)
		require.NoError(t, p.Unpin(h, false))
	}

	require.Equal(t, uint64(1), p.NumWriteIO())

	h, err = p.Pin(0)
	require.NoError(t, err)
	require.Equal(t, byte('Z'), h.Data[0])
	require.NoError(t, p.Unpin(h, false))
}

func TestPool_FlushAll_SkipsPinned(t *testing.T) {
	p, cleanup := newTestPool(t, 2, FIFO, 2)
	defer cleanup()

	h0, err := p.Pin(0)
	require.NoError(t, err)
	h0.Data[0] = 'A'
	require.NoError(t, p.MarkDirty(0))

	h1, err := p.Pin(1)
	require.NoError(t, err)
	h1.Data[0] = 'B'
	require.NoError(t, p.Unpin(h1, true))

	require.NoError(t, p.FlushAll())
	require.Equal(t, uint64(1), p.NumWriteIO())
	require.True(t, p.GetDirtyFlags()[0])

	require.NoError(t, p.Unpin(h0, false))
}

// Idempotence: flushAll twice in a row on an idle pool issues no further
// write-IO the second time.
func TestPool_FlushAll_Idempotent(t *testing.T) {
	p, cleanup := newTestPool(t, 2, FIFO, 2)
	defer cleanup()

	h, err := p.Pin(0)
	require.NoError(t, err)
	require.NoError(t, p.Unpin(h, true))

	require.NoError(t, p.FlushAll())
	after := p.NumWriteIO()
	require.NoError(t, p.FlushAll())
	require.Equal(t, after, p.NumWriteIO())
}

func TestPool_Shutdown_FailsWithPinnedFrames(t *testing.T) {
	p, cleanup := newTestPool(t, 1, FIFO, 1)
	defer cleanup()

	_, err := p.Pin(0)
	require.NoError(t, err)
	require.ErrorIs(t, p.Shutdown(), ErrPinnedPagesInBuffer)
}

func TestPool_Unpin_Unknown(t *testing.T) {
	p, cleanup := newTestPool(t, 1, FIFO, 1)
	defer cleanup()

	require.ErrorIs(t, p.Unpin(&Handle{PageNum: 7}, false), ErrPageNotPinned)
}

func TestPool_Unpin_DoubleUnpinFails(t *testing.T) {
	p, cleanup := newTestPool(t, 1, FIFO, 1)
	defer cleanup()

	h, err := p.Pin(0)
	require.NoError(t, err)
	require.NoError(t, p.Unpin(h, false))
	require.ErrorIs(t, p.Unpin(h, false), ErrAlreadyUnpinned)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("fifo")
	require.NoError(t, err)
	require.Equal(t, FIFO, s)

	s, err = ParseStrategy("lru")
	require.NoError(t, err)
	require.Equal(t, LRU, s)

	_, err = ParseStrategy("clock")
	require.ErrorIs(t, err, ErrInvalidArgs)
}
