// Command allocbench replays a synthetic allocate/free trace against the
// malloc package and reports heap utilization and throughput. It is the
// "driver harness" spec.md section 1 places out of scope for the
// allocator core itself — a thin example caller, not part of the library.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/segheap/alloc/malloc"
)

func main() {
	ops := flag.Int("ops", 50000, "number of allocate/free operations to replay")
	maxSize := flag.Int("max-size", 8192, "maximum single-allocation size in bytes")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	a, err := malloc.New()
	if err != nil {
		fmt.Println("init failed:", err)
		return
	}

	rng := rand.New(rand.NewSource(*seed))
	var live [][]byte

	start := time.Now()
	for i := 0; i < *ops; i++ {
		if len(live) == 0 || rng.Intn(3) != 0 {
			if p := a.Allocate(rng.Intn(*maxSize) + 1); p != nil {
				live = append(live, p)
			}
			continue
		}
		idx := rng.Intn(len(live))
		a.Free(live[idx])
		live[idx] = live[len(live)-1]
		live = live[:len(live)-1]
	}
	elapsed := time.Since(start)

	stats := a.Stats()
	utilization := 0.0
	if stats.HeapBytes > 0 {
		utilization = float64(stats.LiveBytes) / float64(stats.HeapBytes)
	}

	fmt.Printf("ops=%d elapsed=%s ops/sec=%.0f\n", *ops, elapsed, float64(*ops)/elapsed.Seconds())
	fmt.Printf("heap_bytes=%d live_bytes=%d free_bytes=%d utilization=%.3f\n",
		stats.HeapBytes, stats.LiveBytes, stats.FreeBytes, utilization)
	fmt.Println("bin occupancy:", stats.BinCounts)
}
