package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/logger"
)

// RetryPolicy bounds how often a transaction that hit a storage conflict is
// re-run from scratch.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used when Options leaves Retry zero.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 25 * time.Millisecond}

// do runs fn until it succeeds, fails with something other than
// domain.ErrStorageConflict, or the attempts are used up.
func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrStorageConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}

		storageRetries.WithLabelValues(op).Inc()
		logger.Debug("storage conflict, retrying", "operation", op, "attempt", i+1)

		wait := p.Backoff << i
		if wait > 0 {
			wait += time.Duration(rand.Int63n(int64(wait)/2 + 1))
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
	return err
}
