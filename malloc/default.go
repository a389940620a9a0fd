package malloc

import "sync"

var (
	defaultOnce sync.Once
	defaultInst *Allocator
)

// Default returns the package-level allocator instance, constructing it
// on first use. It exists for callers that want the classic implicit-
// singleton malloc/free ergonomics spec section 6 describes; the
// Allocator type itself, not this wrapper, is the primary surface.
func Default() *Allocator {
	defaultOnce.Do(func() {
		defaultInst, _ = New()
	})
	return defaultInst
}

// Allocate is shorthand for Default().Allocate(n).
func Allocate(n int) []byte { return Default().Allocate(n) }

// Free is shorthand for Default().Free(block).
func Free(block []byte) { Default().Free(block) }

// Reallocate is shorthand for Default().Reallocate(block, n).
func Reallocate(block []byte, n int) []byte { return Default().Reallocate(block, n) }

// ZeroAllocate is shorthand for Default().ZeroAllocate(count, size).
func ZeroAllocate(count, size int) []byte { return Default().ZeroAllocate(count, size) }

// Check is shorthand for Default().Check(lineHint).
func Check(lineHint int) error { return Default().Check(lineHint) }
