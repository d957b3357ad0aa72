// Package parallel provides helpers for splitting index ranges across
// goroutines. Callers are responsible for making the per-range work
// disjoint; the helpers only divide [0, items) and wait for completion.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into contiguous ranges, one per worker, and
// runs fn(start, end) for each range on its own goroutine. The worker count
// is GOMAXPROCS, capped at items. Returns after every range has finished.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > items {
		workers = items
	}

	// Ceiling division so the last range is never longer than the others
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items is at or below threshold, and falls back to Parallelize above it.
// Small workloads skip the goroutine and synchronization overhead entirely.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}

	Parallelize(items, fn)
}
