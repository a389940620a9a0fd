package malloc

import "unsafe"

// place removes bpOff from its bin and serves a request of asize bytes
// from it, splitting off and re-binning any leftover fragment large
// enough to stand alone. It returns the size of the block bpOff now
// occupies (asize if split, the original size otherwise).
func (a *Allocator) place(bpOff uint32, asize uint32) uint32 {
	bp := a.toPtr(bpOff)
	hdr := readWord(headerPtr(bp))
	csize := sizeOf(hdr)
	palloc := pallocOf(hdr)

	a.unlink(bpOff)

	if csize-asize >= minBlockSize {
		writeWord(headerPtr(bp), packHeader(asize, true, palloc))

		rem := unsafe.Add(bp, int(asize))
		remSize := csize - asize
		writeWord(headerPtr(rem), packHeader(remSize, false, true))
		writeWord(footerPtr(rem, remSize), packHeader(remSize, false, false))

		remOff := a.toOffset(rem)
		a.insertAtRoot(remOff, binSentinelOffset(binIndex(remSize)))

		after := nextBlk(rem, remSize)
		setPalloc(headerPtr(after), false)
		return asize
	}

	writeWord(headerPtr(bp), packHeader(csize, true, palloc))
	after := nextBlk(bp, csize)
	setPalloc(headerPtr(after), true)
	return csize
}
