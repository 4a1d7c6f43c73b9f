package simulate

import (
	"runtime"
	"sync"
)

// WorkItem is one power replicate to run.
type WorkItem struct {
	Seq  int
	Seed uint64
}

// WorkResult holds the outcome of a single replicate.
type WorkResult struct {
	Seq        int
	P          float64
	Degenerate bool
	Err        error
}

// RunReplicates evaluates work items on a pool of workers.
// Results are sent to the returned channel in completion order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func RunReplicates(items <-chan WorkItem, workers int, fn func(WorkItem) WorkResult) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				r := fn(item)
				r.Seq = item.Seq
				results <- r
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results wait in a pending map until their turn.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
