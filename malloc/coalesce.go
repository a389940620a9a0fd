package malloc

import "unsafe"

// coalesce merges bpOff, a just-freed or just-split-off block, with its
// physically adjacent free neighbors, under the four-case protocol, and
// returns the offset of the resulting free block (which may be bpOff
// itself, or its absorbing predecessor).
func (a *Allocator) coalesce(bpOff uint32) uint32 {
	bp := a.toPtr(bpOff)
	hdr := readWord(headerPtr(bp))
	size := sizeOf(hdr)
	prevAlloc := pallocOf(hdr)

	next := nextBlk(bp, size)
	nextHdr := readWord(headerPtr(next))
	nextAlloc := allocOf(nextHdr)

	switch {
	case prevAlloc && nextAlloc:
		return a.coalesceCase1(bpOff, size, next)
	case prevAlloc && !nextAlloc:
		return a.coalesceCase2(bpOff, size, next, nextHdr)
	case !prevAlloc && nextAlloc:
		return a.coalesceCase3(bp, size, next)
	default:
		return a.coalesceCase4(bp, size, next, nextHdr)
	}
}

// case 1: both physical neighbors allocated. Just insert.
func (a *Allocator) coalesceCase1(bpOff uint32, size uint32, next unsafe.Pointer) uint32 {
	setPalloc(headerPtr(next), false)
	a.insertAtRoot(bpOff, binSentinelOffset(binIndex(size)))
	return bpOff
}

// case 2: predecessor allocated, successor free. Absorb successor.
func (a *Allocator) coalesceCase2(bpOff uint32, size uint32, next unsafe.Pointer, nextHdr uint32) uint32 {
	bp := a.toPtr(bpOff)
	nextSize := sizeOf(nextHdr)
	a.unlink(a.toOffset(next))

	newSize := size + nextSize
	writeWord(headerPtr(bp), packHeader(newSize, false, true))
	writeWord(footerPtr(bp, newSize), packHeader(newSize, false, false))

	after := nextBlk(bp, newSize)
	setPalloc(headerPtr(after), false)

	idx := binIndex(newSize)
	a.insertAtRoot(bpOff, binSentinelOffset(idx))
	return bpOff
}

// case 3: predecessor free, successor allocated. Absorb into predecessor.
func (a *Allocator) coalesceCase3(bp unsafe.Pointer, size uint32, next unsafe.Pointer) uint32 {
	prevFooter := readWord(unsafe.Add(bp, -doubleWordSize))
	prevSize := sizeOf(prevFooter)
	prevBp := unsafe.Add(bp, -int(prevSize))
	prevHdr := readWord(headerPtr(prevBp))
	prevPalloc := pallocOf(prevHdr)
	prevOff := a.toOffset(prevBp)

	newSize := size + prevSize
	idx := binIndex(newSize)

	writeWord(headerPtr(prevBp), packHeader(newSize, false, prevPalloc))
	writeWord(footerPtr(prevBp, newSize), packHeader(newSize, false, false))
	setPalloc(headerPtr(next), false)

	if a.isRootOf(prevOff, idx) {
		return prevOff
	}
	a.unlink(prevOff)
	a.insertAtRoot(prevOff, binSentinelOffset(idx))
	return prevOff
}

// case 4: both neighbors free. Absorb both into predecessor.
func (a *Allocator) coalesceCase4(bp unsafe.Pointer, size uint32, next unsafe.Pointer, nextHdr uint32) uint32 {
	nextSize := sizeOf(nextHdr)
	a.unlink(a.toOffset(next))

	prevFooter := readWord(unsafe.Add(bp, -doubleWordSize))
	prevSize := sizeOf(prevFooter)
	prevBp := unsafe.Add(bp, -int(prevSize))
	prevHdr := readWord(headerPtr(prevBp))
	prevPalloc := pallocOf(prevHdr)
	prevOff := a.toOffset(prevBp)

	newSize := size + prevSize + nextSize
	idx := binIndex(newSize)

	writeWord(headerPtr(prevBp), packHeader(newSize, false, prevPalloc))
	after := nextBlk(prevBp, newSize)
	writeWord(footerPtr(prevBp, newSize), packHeader(newSize, false, false))
	setPalloc(headerPtr(after), false)

	if a.isRootOf(prevOff, idx) {
		return prevOff
	}
	a.unlink(prevOff)
	a.insertAtRoot(prevOff, binSentinelOffset(idx))
	return prevOff
}
