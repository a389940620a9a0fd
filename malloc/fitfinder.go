package malloc

// findFit performs bounded best-fit: starting at bin(asize), it walks bins
// in increasing size-class order. Within a bin it returns immediately on
// an exact-size match; otherwise it tracks the closest-fitting block in
// that bin and, if one was found, returns it rather than walking further
// bins. This keeps small, common-size requests near O(1) while still
// giving a near-best fit for everything else.
func (a *Allocator) findFit(asize uint32) (uint32, bool) {
	for idx := binIndex(asize); idx < numBins; idx++ {
		sentinel := binSentinelOffset(idx)
		best := endOffset
		var bestSize uint32

		cur := a.readNext(a.toPtr(sentinel))
		for !a.isEnd(cur) {
			sz := sizeOf(readWord(headerPtr(a.toPtr(cur))))
			if sz == asize {
				return cur, true
			}
			if sz >= asize && (a.isEnd(best) || sz < bestSize) {
				best = cur
				bestSize = sz
			}
			cur = a.readNext(a.toPtr(cur))
		}
		if !a.isEnd(best) {
			return best, true
		}
	}
	return 0, false
}
