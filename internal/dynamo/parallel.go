package dynamo

import "sync"

// ParallelFor executes fn over [0, n) split into contiguous chunks, one
// goroutine per chunk. Chunks never overlap, so fn may write to any data
// indexed inside its own range without locking.
func ParallelFor(n, minChunk, numWorkers int, fn func(start, end int)) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || numWorkers == 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
