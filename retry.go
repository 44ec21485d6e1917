package ygggo_db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how classified-transient failures are retried.
// MaxAttempts counts the first attempt, so 1 disables retrying. A zero
// MaxElapsed leaves the total retry window uncapped.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      bool
	MaxElapsed  time.Duration
}

// retryWithPolicy runs op under pol with exponential backoff, retrying only
// when classify reports a transient class. Any other failure returns
// immediately; context cancellation stops the loop between attempts.
func retryWithPolicy(ctx context.Context, pol RetryPolicy, op func() error, classify func(error) ErrorClass) error {
	if pol.MaxAttempts <= 0 {
		pol.MaxAttempts = 1
	}
	if pol.BaseBackoff <= 0 {
		pol.BaseBackoff = 10 * time.Millisecond
	}
	if pol.MaxBackoff < pol.BaseBackoff {
		pol.MaxBackoff = pol.BaseBackoff
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = pol.BaseBackoff
	eb.MaxInterval = pol.MaxBackoff
	eb.MaxElapsedTime = pol.MaxElapsed
	if !pol.Jitter {
		eb.RandomizationFactor = 0
	}

	var bo backoff.BackOff = backoff.WithContext(eb, ctx)
	bo = backoff.WithMaxRetries(bo, uint64(pol.MaxAttempts-1))

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		switch classify(err) {
		case ErrClassRetryable, ErrClassReadonly:
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

// Retry runs op under pol using the default classifier. It exists for
// callers composing retried operations outside WithinTx.
func Retry(ctx context.Context, pol RetryPolicy, op func() error) error {
	return retryWithPolicy(ctx, pol, op, Classify)
}
