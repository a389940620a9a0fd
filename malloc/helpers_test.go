package malloc

import (
	"testing"

	"github.com/segheap/alloc/heapmem"
)

// newCappedProvider builds a heap provider capped at maxBytes, for
// exercising out-of-memory behavior without actually exhausting process
// memory.
func newCappedProvider(t *testing.T, maxBytes int) *heapmem.Provider {
	t.Helper()
	return heapmem.New(heapmem.WithMaxBytes(maxBytes))
}
