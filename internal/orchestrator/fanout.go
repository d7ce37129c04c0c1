package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"codeberg.org/lexiread/lexiread/internal/errs"
	"codeberg.org/lexiread/lexiread/internal/retry"
)

// FanoutOptions tunes OptimizeAPICalls.
type FanoutOptions struct {
	MaxConcurrency   int
	RetryAttempts    int
	RetryDelay       time.Duration
	TolerateFailures bool // fill failed slots with their error instead of failing the batch
}

func (o FanoutOptions) concurrency() int64 {
	if o.MaxConcurrency > 0 {
		return int64(o.MaxConcurrency)
	}
	return DefaultMaxConcurrency
}

func (o FanoutOptions) retrier() *retry.Retrier {
	r := retry.New()
	if o.RetryAttempts > 0 {
		r.MaxRetries = o.RetryAttempts
	}
	if o.RetryDelay > 0 {
		r.BaseDelay = o.RetryDelay
	}
	return r
}

// Slot is one fan-out result. Err is set only when the request exhausted
// its retries and the caller opted into partial-failure tolerance.
type Slot[T any] struct {
	Value T
	Err   *errs.Error
}

// OptimizeAPICalls executes the requests with at most MaxConcurrency in
// flight, each wrapped in its own retry loop. Results come back in the
// original submission order regardless of completion order; excess requests
// queue FIFO and are admitted as slots free up. Without failure tolerance
// the first exhausted request fails the whole batch.
func OptimizeAPICalls[T any](ctx context.Context, requests []func(ctx context.Context) (T, error), opts FanoutOptions) ([]Slot[T], error) {
	slots := make([]Slot[T], len(requests))
	if len(requests) == 0 {
		return slots, nil
	}

	retrier := opts.retrier()
	sem := semaphore.NewWeighted(opts.concurrency())
	var wg sync.WaitGroup

	for i := range requests {
		if err := sem.Acquire(ctx, 1); err != nil {
			slots[i].Err = errs.Classify(err)
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			value, err := retry.Do(ctx, retrier, "api-call", requests[i])
			if err != nil {
				slots[i].Err = errs.Classify(err)
				return
			}
			slots[i].Value = value
		}(i)
	}
	wg.Wait()

	if !opts.TolerateFailures {
		for i := range slots {
			if slots[i].Err != nil {
				return nil, slots[i].Err
			}
		}
	}
	return slots, nil
}
