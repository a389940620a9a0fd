package malloc

import "unsafe"

// endOffset is the sentinel "no neighbor" value: it decodes back to the
// anchor address itself, which is never a valid block or bin pointer
// (the anchor holds alignment padding, not a block).
const endOffset uint32 = 0

func (a *Allocator) toPtr(off uint32) unsafe.Pointer { return unsafe.Add(a.anchor, off) }

func (a *Allocator) toOffset(p unsafe.Pointer) uint32 {
	return uint32(uintptr(p) - uintptr(a.anchor))
}

func (a *Allocator) isEnd(off uint32) bool { return off == endOffset }

// readNext/readPrev/writeNext/writePrev operate on the (next, prev) link
// cells that live in the first 8 bytes of a free block's body, or
// identically at a bin's sentinel offset — the two are addressed the same
// way, so the free-list primitives below don't need to special-case bins.
func (a *Allocator) readNext(bp unsafe.Pointer) uint32 { return readWord(bp) }

func (a *Allocator) writeNext(bp unsafe.Pointer, off uint32) { writeWord(bp, off) }

func (a *Allocator) readPrev(bp unsafe.Pointer) uint32 {
	return readWord(unsafe.Add(bp, wordSize))
}

func (a *Allocator) writePrev(bp unsafe.Pointer, off uint32) {
	writeWord(unsafe.Add(bp, wordSize), off)
}

// join connects prev and next around a node that no longer exists between
// them, preserving I6 (the symmetric next/prev invariant).
func (a *Allocator) join(prev, next uint32) {
	if !a.isEnd(next) {
		a.writePrev(a.toPtr(next), prev)
	}
	if !a.isEnd(prev) {
		a.writeNext(a.toPtr(prev), next)
	}
}

// insertAtRoot links bpOff in as the new head of the list rooted at
// binOff, the bin-sentinel's offset.
func (a *Allocator) insertAtRoot(bpOff, binOff uint32) {
	bin := a.toPtr(binOff)
	first := a.readNext(bin)
	bp := a.toPtr(bpOff)
	a.writeNext(bp, first)
	a.writePrev(bp, binOff)
	a.writeNext(bin, bpOff)
	if !a.isEnd(first) {
		a.writePrev(a.toPtr(first), bpOff)
	}
}

// unlink removes bpOff from whatever list currently holds it.
func (a *Allocator) unlink(bpOff uint32) {
	bp := a.toPtr(bpOff)
	prev := a.readPrev(bp)
	next := a.readNext(bp)
	a.join(prev, next)
}

// isRootOf reports whether bpOff is directly linked from bin idx's
// sentinel — used by the coalescer to skip a redundant unlink/reinsert
// when a merge doesn't change a block's bin membership.
func (a *Allocator) isRootOf(bpOff uint32, idx int) bool {
	return a.readPrev(a.toPtr(bpOff)) == binSentinelOffset(idx)
}
