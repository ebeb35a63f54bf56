package dynamo

import "sync"

// ParallelFor splits [0, n) into at most workers contiguous chunks and runs fn
// on each chunk concurrently. Chunk boundaries depend only on n and workers,
// so the worker index of every element is reproducible between runs.
func ParallelFor(n, workers int, fn func(worker, start, end int)) {
	if workers <= 1 || n <= 1 {
		fn(0, 0, n)
		return
	}
	if workers > n {
		workers = n
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(worker, s, e int) {
			defer wg.Done()
			fn(worker, s, e)
		}(w, start, end)
	}

	wg.Wait()
}

// Chunks returns how many chunks ParallelFor will use for n items.
func Chunks(n, workers int) int {
	if workers <= 1 || n <= 1 {
		return 1
	}
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers
	return (n + chunkSize - 1) / chunkSize
}
