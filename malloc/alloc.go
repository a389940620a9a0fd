package malloc

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/segheap/alloc/heapmem"
)

// ErrOutOfMemory is wrapped by the internal heap-growth error when the heap
// provider cannot grow far enough to satisfy a request. The public methods
// report that case as a nil result and do not return the error.
var ErrOutOfMemory = errors.New("malloc: heap provider out of memory")

// Allocator manages one heap region. The zero value is not usable; build
// one with New. Not safe for concurrent use — see the package doc.
type Allocator struct {
	mem *heapmem.Provider

	// anchor, firstBlock and binEnd are the allocator's only heap-layout
	// state, kept per instance and initialized lazily on the first call
	// that needs the heap. anchor is nil until then.
	anchor     unsafe.Pointer
	firstBlock unsafe.Pointer
	binEnd     unsafe.Pointer

	chunkWords int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithChunkWords overrides the default 64-word heap extension size used
// when no free block can satisfy a request.
func WithChunkWords(words int) Option {
	return func(a *Allocator) {
		if words > 0 {
			a.chunkWords = words
		}
	}
}

// WithProvider injects a heap provider, e.g. one built with a small
// heapmem.WithMaxBytes cap for exercising out-of-memory behavior in tests.
func WithProvider(p *heapmem.Provider) Option {
	return func(a *Allocator) { a.mem = p }
}

// New constructs an Allocator. The heap itself is not touched until the
// first Allocate/Reallocate/ZeroAllocate call; Check and Free do not
// initialize it.
func New(opts ...Option) (*Allocator, error) {
	a := &Allocator{chunkWords: defaultChunkWords}
	for _, opt := range opts {
		opt(a)
	}
	if a.mem == nil {
		a.mem = heapmem.New()
	}
	return a, nil
}

// ensureInit lazily lays down the prologue/epilogue and seeds the first
// free block, per spec section 4.8's Initialize.
func (a *Allocator) ensureInit() error {
	if a.anchor != nil {
		return nil
	}
	if _, ok := a.mem.Extend(prologueTotalBytes); !ok {
		return fmt.Errorf("malloc: init: %w", ErrOutOfMemory)
	}
	a.anchor = a.mem.Lo()
	a.binEnd = unsafe.Add(a.anchor, int(binTableOffset)+numBins*doubleWordSize)
	a.firstBlock = unsafe.Add(a.anchor, prologueTotalBytes)
	a.writePrologue()

	if err := a.growHeap(a.chunkWords * wordSize); err != nil {
		return err
	}
	return nil
}

// writePrologue lays down the padding word, the prologue header/footer
// wrapping the bin sentinels, and the initial epilogue.
func (a *Allocator) writePrologue() {
	writeWord(a.anchor, 0) // alignment padding

	hdr := unsafe.Add(a.anchor, wordSize)
	writeWord(hdr, packHeader(prologueSpan, true, true))

	for idx := 0; idx < numBins; idx++ {
		off := binSentinelOffset(idx)
		sentinel := a.toPtr(off)
		a.writeNext(sentinel, endOffset)
		a.writePrev(sentinel, endOffset)
	}

	writeWord(a.binEnd, packHeader(prologueSpan, true, true))

	epilogue := unsafe.Add(a.binEnd, wordSize)
	writeWord(epilogue, packHeader(0, true, true))
}

// growHeap extends the heap by n bytes, turning the current epilogue into
// the header of a new free block and writing a fresh epilogue at the new
// top, then coalesces the new block with any free physical predecessor.
func (a *Allocator) growHeap(n int) error {
	oldHi, ok := a.mem.Extend(n)
	if !ok {
		return fmt.Errorf("malloc: extend heap by %d bytes: %w", n, ErrOutOfMemory)
	}
	oldEpilogue := unsafe.Add(oldHi, -(wordSize - 1))
	prevAllocated := pallocOf(readWord(oldEpilogue))

	bp := unsafe.Add(oldEpilogue, wordSize)
	size := uint32(n)

	writeWord(oldEpilogue, packHeader(size, false, prevAllocated))
	writeWord(footerPtr(bp, size), packHeader(size, false, false))

	newEpilogue := unsafe.Add(bp, int(size)-wordSize)
	writeWord(newEpilogue, packHeader(0, true, false))

	a.coalesce(a.toOffset(bp))
	return nil
}

// adjustedSize computes the aligned, header-inclusive block size needed
// to satisfy an n-byte payload request, per spec section 4.8.
func adjustedSize(n int) uint32 {
	if n <= 3*wordSize {
		return minBlockSize
	}
	return uint32(doubleWordSize * ((n + wordSize + doubleWordSize - 1) / doubleWordSize))
}

// payloadSlice builds the caller-facing slice for a block at bpOff whose
// total size is blockSize, with n visible bytes.
func (a *Allocator) payloadSlice(bpOff uint32, n int, blockSize uint32) []byte {
	bp := a.toPtr(bpOff)
	usable := int(blockSize) - wordSize
	return unsafe.Slice((*byte)(bp), usable)[:n]
}

// blockPtrOf recovers the payload address a prior Allocate/Reallocate
// call returned, from the slice's data pointer. Mirrors how a raw
// pointer would be recovered in the C original — block is only valid if
// it was returned by this allocator and hasn't been freed already.
func blockPtrOf(block []byte) unsafe.Pointer {
	return unsafe.Pointer(*(*uintptr)(unsafe.Pointer(&block)))
}

// Allocate returns a slice of at least n usable bytes, or nil if n <= 0
// or the heap could not be grown far enough.
func (a *Allocator) Allocate(n int) []byte {
	if err := a.ensureInit(); err != nil {
		return nil
	}
	if n <= 0 {
		return nil
	}
	asize := adjustedSize(n)

	if off, ok := a.findFit(asize); ok {
		final := a.place(off, asize)
		return a.payloadSlice(off, n, final)
	}

	extend := asize
	if chunk := uint32(a.chunkWords * wordSize); chunk > extend {
		extend = chunk
	}
	if err := a.growHeap(int(extend)); err != nil {
		return nil
	}
	off, ok := a.findFit(asize)
	if !ok {
		return nil
	}
	final := a.place(off, asize)
	return a.payloadSlice(off, n, final)
}

// Free returns block to the allocator. A nil/empty block is a no-op.
// Freeing anything not returned by Allocate/Reallocate, or freeing it
// twice, is undefined, per spec section 7.
func (a *Allocator) Free(block []byte) {
	if cap(block) == 0 {
		return
	}
	bp := blockPtrOf(block)
	hdr := readWord(headerPtr(bp))
	size := sizeOf(hdr)
	palloc := pallocOf(hdr)

	writeWord(headerPtr(bp), packHeader(size, false, palloc))
	writeWord(footerPtr(bp, size), packHeader(size, false, false))

	a.coalesce(a.toOffset(bp))
}

// Reallocate resizes block to n bytes, preserving min(n, old len) bytes
// of content. A nil block behaves like Allocate; n == 0 behaves like Free.
func (a *Allocator) Reallocate(block []byte, n int) []byte {
	if n == 0 {
		a.Free(block)
		return nil
	}
	if cap(block) == 0 {
		return a.Allocate(n)
	}

	if err := a.ensureInit(); err != nil {
		return nil
	}
	asize := adjustedSize(n)
	bp := blockPtrOf(block)
	hdr := readWord(headerPtr(bp))
	curSize := sizeOf(hdr)

	if asize <= curSize {
		return a.shrinkInPlace(bp, curSize, asize, n)
	}

	newBlock := a.Allocate(n)
	if newBlock == nil {
		return nil
	}
	copyN := n
	if oldUsable := int(curSize) - wordSize; oldUsable < copyN {
		copyN = oldUsable
	}
	copy(newBlock, block[:copyN])
	a.Free(block)
	return newBlock
}

// shrinkInPlace implements the in-place split path of Reallocate: the
// block already holds enough bytes, so only the remainder (if any) is
// carved off and coalesced with its successor.
func (a *Allocator) shrinkInPlace(bp unsafe.Pointer, curSize, asize uint32, n int) []byte {
	bpOff := a.toOffset(bp)
	hdr := readWord(headerPtr(bp))
	palloc := pallocOf(hdr)

	remSize := curSize - asize
	if remSize < minBlockSize {
		return a.payloadSlice(bpOff, n, curSize)
	}

	writeWord(headerPtr(bp), packHeader(asize, true, palloc))

	rem := unsafe.Add(bp, int(asize))
	writeWord(headerPtr(rem), packHeader(remSize, false, true))
	writeWord(footerPtr(rem, remSize), packHeader(remSize, false, false))

	a.coalesce(a.toOffset(rem))
	return a.payloadSlice(bpOff, n, asize)
}

// ZeroAllocate allocates count*size bytes and zeroes them, mirroring
// calloc. Overflow in count*size is the caller's responsibility.
func (a *Allocator) ZeroAllocate(count, size int) []byte {
	p := a.Allocate(count * size)
	if p == nil {
		return nil
	}
	for i := range p {
		p[i] = 0
	}
	return p
}
