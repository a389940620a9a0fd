package malloc

import "fmt"

// Check walks the physical block chain and every bin's free list and
// verifies invariants I1-I8. It never mutates allocator state. lineHint
// is folded into the returned error so a caller driving many Check calls
// from different call sites can tell which one failed.
func (a *Allocator) Check(lineHint int) error {
	if a.anchor == nil {
		return nil
	}

	physicalFree, err := a.checkPhysicalChain()
	if err != nil {
		return fmt.Errorf("malloc: check (line %d): %w", lineHint, err)
	}

	binFree, err := a.checkBins()
	if err != nil {
		return fmt.Errorf("malloc: check (line %d): %w", lineHint, err)
	}

	if physicalFree != binFree {
		return fmt.Errorf("malloc: check (line %d): free block count mismatch: physical=%d bins=%d",
			lineHint, physicalFree, binFree)
	}
	return nil
}

// CheckOrPanic calls Check and panics if it returns an error, for callers
// that want the original's abort-on-corruption behavior.
func (a *Allocator) CheckOrPanic(lineHint int) {
	if err := a.Check(lineHint); err != nil {
		panic(err)
	}
}

// checkPhysicalChain verifies I1 (chain reaches the epilogue), I2
// (alignment), I3 (no adjacent frees), I7 (palloc bit matches
// predecessor), and I8 (footer/header agreement on free blocks). It
// returns the number of free blocks seen.
func (a *Allocator) checkPhysicalChain() (int, error) {
	bp := a.firstBlock
	prevAlloc := true
	freeCount := 0

	for {
		off := a.toOffset(bp)
		if off%wordSize != 0 {
			return 0, fmt.Errorf("block at offset %d is misaligned", off)
		}

		hdr := readWord(headerPtr(bp))
		size := sizeOf(hdr)
		if size == 0 {
			// epilogue
			if !allocOf(hdr) {
				return 0, fmt.Errorf("epilogue at offset %d is not marked allocated", off)
			}
			break
		}
		if off%doubleWordSize != 0 {
			return 0, fmt.Errorf("block at offset %d is not 8-aligned", off)
		}

		alloc := allocOf(hdr)
		palloc := pallocOf(hdr)
		if palloc != prevAlloc {
			return 0, fmt.Errorf("block at offset %d has palloc=%v, want %v", off, palloc, prevAlloc)
		}
		if !alloc {
			freeCount++
			if !prevAlloc {
				return 0, fmt.Errorf("block at offset %d is free and adjacent to a free predecessor", off)
			}
			footer := readWord(footerPtr(bp, size))
			if sizeOf(footer) != size {
				return 0, fmt.Errorf("block at offset %d: header size %d != footer size %d", off, size, sizeOf(footer))
			}
		}

		prevAlloc = alloc
		bp = nextBlk(bp, size)
	}
	return freeCount, nil
}

// checkBins verifies I4 (bin traversal count matches physical count via
// its caller), I5 (bin membership), and I6 (doubly-linked symmetry). It
// returns the total number of free blocks reachable across all bins.
func (a *Allocator) checkBins() (int, error) {
	total := 0
	for idx := 0; idx < numBins; idx++ {
		sentinel := binSentinelOffset(idx)
		prev := sentinel
		cur := a.readNext(a.toPtr(sentinel))

		for !a.isEnd(cur) {
			if a.readPrev(a.toPtr(cur)) != prev {
				return 0, fmt.Errorf("bin %d: block at offset %d has prev=%d, want %d",
					idx, cur, a.readPrev(a.toPtr(cur)), prev)
			}
			hdr := readWord(headerPtr(a.toPtr(cur)))
			if allocOf(hdr) {
				return 0, fmt.Errorf("bin %d: block at offset %d is marked allocated", idx, cur)
			}
			size := sizeOf(hdr)
			if got := binIndex(size); got != idx {
				return 0, fmt.Errorf("bin %d: block at offset %d of size %d belongs in bin %d", idx, cur, size, got)
			}
			total++
			prev = cur
			cur = a.readNext(a.toPtr(cur))
		}
	}
	return total, nil
}
