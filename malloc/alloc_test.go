package malloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := New()
	require.NoError(t, err)
	return a
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	a := newTestAllocator(t)
	assert.Nil(t, a.Allocate(0))
	assert.Nil(t, a.Allocate(-1))
}

func TestFreeOfNilIsNoop(t *testing.T) {
	a := newTestAllocator(t)
	assert.NotPanics(t, func() { a.Free(nil) })
	require.NoError(t, a.Check(0))
}

func TestReallocateNilIsAllocate(t *testing.T) {
	a := newTestAllocator(t)
	p := a.Reallocate(nil, 32)
	require.NotNil(t, p)
	assert.Len(t, p, 32)
}

func TestReallocateZeroIsFree(t *testing.T) {
	a := newTestAllocator(t)
	p := a.Allocate(32)
	require.NotNil(t, p)
	assert.Nil(t, a.Reallocate(p, 0))
	require.NoError(t, a.Check(0))
}

// Scenario 1: allocate/free round trip reuses the same address, and the
// freed block's bin holds exactly one entry right before reuse.
func TestScenarioAllocateFreeRoundTrip(t *testing.T) {
	a := newTestAllocator(t)

	p := a.Allocate(24)
	require.NotNil(t, p)
	copy(p, []byte("hello"))
	bp := blockPtrOf(p)

	// keep the free rest of the heap from coalescing with p once it is freed
	guard := a.Allocate(24)
	require.NotNil(t, guard)

	a.Free(p)

	asize := adjustedSize(24)
	idx := binIndex(asize)
	stats := a.Stats()
	assert.Equal(t, 1, stats.BinCounts[idx])

	q := a.Allocate(24)
	require.NotNil(t, q)
	assert.Equal(t, bp, blockPtrOf(q), "reused block should be at the same address")
	require.NoError(t, a.Check(0))
}

// Scenario 2: freeing a middle block among three same-size blocks must
// not coalesce (neighbors still allocated).
func TestScenarioNoCoalesceBetweenAllocatedNeighbors(t *testing.T) {
	a := newTestAllocator(t)

	pa := a.Allocate(16)
	pb := a.Allocate(16)
	pc := a.Allocate(16)
	require.NotNil(t, pa)
	require.NotNil(t, pb)
	require.NotNil(t, pc)

	a.Free(pb)

	asize := adjustedSize(16)
	idx := binIndex(asize)
	stats := a.Stats()
	assert.Equal(t, 1, stats.BinCounts[idx])
	require.NoError(t, a.Check(0))

	// a and c remain distinct live allocations
	hdrA := readWord(headerPtr(blockPtrOf(pa)))
	hdrC := readWord(headerPtr(blockPtrOf(pc)))
	assert.True(t, allocOf(hdrA))
	assert.True(t, allocOf(hdrC))
}

// Scenario 3: freeing two physically adjacent blocks coalesces them into
// one larger free block.
func TestScenarioCoalesceAdjacentFrees(t *testing.T) {
	a := newTestAllocator(t)

	pa := a.Allocate(16)
	pb := a.Allocate(16)
	require.NotNil(t, pa)
	require.NotNil(t, pb)

	// keep the free rest of the heap from joining the merge of a and b
	guard := a.Allocate(16)
	require.NotNil(t, guard)

	sizeA := adjustedSize(16)
	sizeB := adjustedSize(16)
	mergedSize := sizeA + sizeB

	a.Free(pa)
	a.Free(pb)

	stats := a.Stats()
	assert.Equal(t, 1, stats.BinCounts[binIndex(mergedSize)])
	if binIndex(sizeA) != binIndex(mergedSize) {
		assert.Equal(t, 0, stats.BinCounts[binIndex(sizeA)])
	}
	require.NoError(t, a.Check(0))
}

// Scenario 4: shrinking reallocate keeps the same pointer and the
// carved-off remainder ends up free.
func TestScenarioReallocateShrinkInPlace(t *testing.T) {
	a := newTestAllocator(t)

	p := a.Allocate(4000)
	require.NotNil(t, p)
	bp := blockPtrOf(p)

	q := a.Reallocate(p, 40)
	require.NotNil(t, q)
	assert.Equal(t, bp, blockPtrOf(q))
	require.NoError(t, a.Check(0))
}

// Scenario 6: zero-allocate returns zeroed memory sized at least as
// requested.
func TestScenarioZeroAllocate(t *testing.T) {
	a := newTestAllocator(t)

	p := a.ZeroAllocate(100, 8)
	require.NotNil(t, p)
	require.Len(t, p, 800)
	for i, b := range p {
		assert.Equalf(t, byte(0), b, "byte %d not zero", i)
	}
	hdr := readWord(headerPtr(blockPtrOf(p)))
	assert.GreaterOrEqual(t, sizeOf(hdr), uint32(808))
}

func TestPayloadPreservedAcrossGrowReallocate(t *testing.T) {
	a := newTestAllocator(t)

	p := a.Allocate(16)
	require.NotNil(t, p)
	for i := range p {
		p[i] = byte(i + 1)
	}

	q := a.Reallocate(p, 256)
	require.NotNil(t, q)
	require.Len(t, q, 256)
	for i := 0; i < 16; i++ {
		assert.Equal(t, byte(i+1), q[i])
	}
	require.NoError(t, a.Check(0))
}

func TestAllocatedPointersAreEightByteAligned(t *testing.T) {
	a := newTestAllocator(t)
	for _, n := range []int{1, 7, 8, 15, 16, 100, 1000, 5000} {
		p := a.Allocate(n)
		require.NotNil(t, p)
		bp := blockPtrOf(p)
		assert.Equal(t, uintptr(0), uintptr(bp)%8)
	}
}

func TestOutOfMemorySignalsNilWithoutCorruption(t *testing.T) {
	a, err := New(WithProvider(newCappedProvider(t, 512)))
	require.NoError(t, err)

	// exhaust the tiny heap
	var last []byte
	for i := 0; i < 1000; i++ {
		p := a.Allocate(64)
		if p == nil {
			break
		}
		last = p
	}
	assert.NotNil(t, last)
	require.NoError(t, a.Check(0))

	// further requests must fail cleanly rather than corrupt state
	assert.Nil(t, a.Allocate(1<<20))
	require.NoError(t, a.Check(0))
}
