package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds retries of transient failures with exponential backoff.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy matches the client's three tries one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     5 * time.Second,
	}
}

// Transient marks errors that are worth retrying.
type Transient interface {
	Temporary() bool
}

// IsTransient reports whether err, or an error it wraps, is temporary.
func IsTransient(err error) bool {
	var t Transient
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0
	eb.RandomizationFactor = 0.2

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempts run out. retryable decides which errors are retried.
func (p RetryPolicy) Do(ctx context.Context, log logrus.FieldLogger, name string, retryable func(error) bool, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"operation": name,
			"attempt":   attempt,
			"wait":      wait.String(),
		}).WithError(err).Warn("transient failure, retrying")
	}

	return backoff.RetryNotify(wrapped, p.backOff(ctx), notify)
}
