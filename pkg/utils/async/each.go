package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Each calls handler for every index in [0, n) with at most workers calls
// running at a time. The returned slice holds the error of each index.
//
// A panic in handler is recovered and returned as that index's error. Indexes
// not started before ctx is cancelled get ctx.Err().
func Each(ctx context.Context, workers, n int, handler func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = call(ctx, i, handler)
		}(i)
	}

	wg.Wait()
	return errs
}

func call(ctx context.Context, i int, handler func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			ctxlog.From(ctx).Error("Panic in async handler",
				"recover", r,
				"index", i,
				"stack", string(stack),
			)
			err = goerr.New("panic in async handler", goerr.V("recover", r), goerr.V("index", i))
		}
	}()

	return handler(ctx, i)
}
