// Package heapmem implements the external heap provider the allocator in
// package malloc consumes: a single contiguous byte region that can only
// grow, addressed by heap_lo/heap_hi/extend per the provider contract.
//
// The region is backed by one fixed-capacity slab obtained once from
// bytedance/gopkg's mcache, so addresses handed out by extend never move —
// growth only advances a high-water mark inside the slab, it never
// reallocates. That mirrors how a real sbrk only moves the program break
// within an already-reserved address range.
package heapmem

import (
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

// DefaultMaxBytes bounds how far a Provider can grow before Extend starts
// signaling failure, simulating an sbrk that has hit its OS-imposed limit.
const DefaultMaxBytes = 64 << 20 // 64MiB

// Provider is a single-instance, single-threaded heap region.
type Provider struct {
	arena    []byte
	used     int
	maxBytes int
}

// Option configures a Provider.
type Option func(*Provider)

// WithMaxBytes caps how large the region may grow. Extend fails once the
// cap would be exceeded, the Go-idiomatic stand-in for the spec's
// "distinguished failure value".
func WithMaxBytes(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// New reserves a Provider's backing slab.
func New(opts ...Option) *Provider {
	p := &Provider{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(p)
	}
	p.arena = mcache.Malloc(p.maxBytes)[:p.maxBytes]
	return p
}

// Close releases the backing slab. The Provider must not be used afterward.
func (p *Provider) Close() {
	mcache.Free(p.arena)
	p.arena = nil
}

// Lo returns the first byte address of the region. It never changes for
// the lifetime of a Provider.
func (p *Provider) Lo() unsafe.Pointer {
	return unsafe.Pointer(&p.arena[0])
}

// Hi returns the last currently-valid byte address (inclusive), or an
// address one below Lo if nothing has been extended yet.
func (p *Provider) Hi() unsafe.Pointer {
	if p.used == 0 {
		return unsafe.Add(p.Lo(), -1)
	}
	return unsafe.Add(p.Lo(), p.used-1)
}

// Extend grows the region by n bytes, zero-filling the new bytes, and
// returns the high-water mark as it stood before the extension. ok is
// false, with the previous Hi unaffected, if the cap would be exceeded.
func (p *Provider) Extend(n int) (oldHi unsafe.Pointer, ok bool) {
	if n <= 0 {
		return nil, false
	}
	if p.used+n > p.maxBytes {
		return nil, false
	}
	oldHi = p.Hi()
	fresh := p.arena[p.used : p.used+n]
	for i := range fresh {
		fresh[i] = 0
	}
	p.used += n
	return oldHi, true
}

// Used returns the number of bytes extended so far.
func (p *Provider) Used() int { return p.used }

// Capacity returns the maximum number of bytes the region can grow to.
func (p *Provider) Capacity() int { return p.maxBytes }
