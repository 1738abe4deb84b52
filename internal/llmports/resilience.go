package llmports

import (
	"context"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// Resilience wraps a flaky network call (embed/rerank/generate) with a
// circuit breaker plus exponential backoff retry, so that a down
// model-serving endpoint fails fast instead of stalling an ingest run.
type Resilience struct {
	breaker *errorcode.CircuitBreaker
	retry   errorcode.RetryConfig
}

// NewResilience builds a Resilience wrapper scoped to name (used as the
// circuit breaker's identity in logs/metrics).
func NewResilience(name string) *Resilience {
	return &Resilience{
		breaker: errorcode.NewCircuitBreaker(name),
		retry:   errorcode.DefaultRetryConfig(),
	}
}

// NewResilienceWithRetry builds a Resilience wrapper with a caller-supplied
// retry policy, e.g. to disable backoff delay in tests.
func NewResilienceWithRetry(name string, retry errorcode.RetryConfig) *Resilience {
	return &Resilience{
		breaker: errorcode.NewCircuitBreaker(name),
		retry:   retry,
	}
}

// Do runs fn under retry, then through the circuit breaker: each retry
// attempt is itself gated by the breaker, so a tripped breaker fails every
// attempt immediately rather than waiting out the full backoff schedule.
func (r *Resilience) Do(ctx context.Context, fn func() error) error {
	return errorcode.Retry(ctx, r.retry, func() error {
		return r.breaker.Execute(fn)
	})
}

// DoResult is the generic counterpart of Do for calls that return a value.
func DoResult[T any](ctx context.Context, r *Resilience, fn func() (T, error)) (T, error) {
	return errorcode.RetryWithResult(ctx, r.retry, func() (T, error) {
		return errorcode.CircuitExecuteWithResult(r.breaker, fn, func() (T, error) {
			var zero T
			return zero, errorcode.ErrCircuitOpen
		})
	})
}

// Allow reports whether the breaker would currently let a call through,
// without actually making one.
func (r *Resilience) Allow() bool {
	return r.breaker.Allow()
}
