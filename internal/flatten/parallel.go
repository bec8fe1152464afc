package flatten

import "sync"

// forEachEntity runs build(i) for every entity index, sharded across the
// given number of workers. No step depends on cross-entity ordering, so
// results land in caller-preallocated slices indexed by entity position and
// the merge order never depends on scheduling. The lowest-index error wins,
// keeping failures deterministic too.
func forEachEntity(n, workers int, build func(i int) error) error {
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := build(i); err != nil {
				return err
			}
		}
		return nil
	}
	if workers > n {
		workers = n
	}

	errs := make([]error, n)
	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				errs[i] = build(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
