package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default number of simultaneous remote fetches.
const DefaultConcurrency = 10

// Limiter bounds how many units of work run at once.
type Limiter struct {
	sem *semaphore.Weighted
	n   int
}

// NewLimiter creates a limiter with n permits (at least 1).
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), n: n}
}

// Size returns the number of permits.
func (l *Limiter) Size() int {
	return l.n
}

// Acquire blocks until a permit is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns a permit.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding a permit.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Each runs fn for every index in [0, n) with bounded concurrency and waits
// for all of them. fn is not called for indexes whose permit could not be
// acquired because ctx ended.
func (l *Limiter) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Do(ctx, func(ctx context.Context) error {
				fn(ctx, i)
				return nil
			})
		}(i)
	}
	wg.Wait()
}
