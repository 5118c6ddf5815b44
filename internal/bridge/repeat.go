package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/gatebridge/internal/config"
	"github.com/san-kum/gatebridge/internal/storage"
)

// Repeat builds n independent bridges from cfg and simulates them
// concurrently. Each run owns its own store, plant and loop.
func Repeat(ctx context.Context, cfg *config.Config, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("repeat count must be positive, got %d", n)
	}

	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			b, err := New(cfg.Clone(), Options{})
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = b.Simulate(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Verify compares every result against the first and reports the first
// divergence found. tol zero demands bit-identical commands.
func Verify(results []*Result, tol float64) (int, *storage.Divergence, error) {
	for i := 1; i < len(results); i++ {
		d, err := storage.Compare(results[0].Trace, results[i].Trace, tol)
		if err != nil || d != nil {
			return i, d, err
		}
	}
	return 0, nil, nil
}
