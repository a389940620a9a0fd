package malloc

// Stats summarizes an Allocator's current state, recovered from
// original_source/mm.c's utilization-tracking driver (payload bytes over
// heap bytes) that spec.md's distillation dropped.
type Stats struct {
	HeapBytes int // total bytes extended from the heap provider so far
	LiveBytes int // bytes currently held by outstanding allocations, excluding header overhead
	FreeBytes int // bytes held in free blocks, excluding header/footer overhead
	BinCounts [numBins]int
}

// Stats walks the physical chain once and reports the current accounting;
// BinCounts counts each free block under the bin its size selects, without
// traversing the free lists. It does not mutate state.
func (a *Allocator) Stats() Stats {
	var s Stats
	if a.anchor == nil {
		return s
	}
	s.HeapBytes = a.mem.Used()

	bp := a.firstBlock
	for {
		hdr := readWord(headerPtr(bp))
		size := sizeOf(hdr)
		if size == 0 {
			break
		}
		if allocOf(hdr) {
			s.LiveBytes += int(size) - wordSize
		} else {
			s.FreeBytes += int(size) - doubleWordSize
			s.BinCounts[binIndex(size)]++
		}
		bp = nextBlk(bp, size)
	}
	return s
}
