package ai

import (
	"context"
	"math"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/kapu/sales-skills-engine/internal/constants"
)

var transientPattern = regexp.MustCompile(`(?i)timeout|timed out|429|5\d\d|unavailable|quota|exhausted`)

// IsTransient reports whether err looks like a failure worth retrying.
// Classification is by message so provider-specific error types need no
// special casing.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return transientPattern.MatchString(err.Error())
}

// RetryPolicy is exponential backoff with multiplicative jitter.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
	MaxDelay   time.Duration
	JitterMin  float64
	JitterMax  float64

	// Sleep and Rand are swapped out in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: constants.RetryConfig.MaxRetries,
		BaseDelay:  constants.RetryConfig.BaseDelay,
		Factor:     constants.RetryConfig.Factor,
		MaxDelay:   constants.RetryConfig.MaxDelay,
		JitterMin:  constants.RetryConfig.JitterMin,
		JitterMax:  constants.RetryConfig.JitterMax,
	}
}

// Wait returns the jittered wait for a given un-jittered delay.
func (p RetryPolicy) Wait(delay time.Duration) time.Duration {
	rnd := rand.Float64
	if p.Rand != nil {
		rnd = p.Rand
	}
	factor := p.JitterMin + rnd()*(p.JitterMax-p.JitterMin)
	return time.Duration(math.Round(float64(delay) * factor))
}

func (p RetryPolicy) next(delay time.Duration) time.Duration {
	n := time.Duration(math.Round(float64(delay) * p.Factor))
	if p.MaxDelay > 0 && n > p.MaxDelay {
		return p.MaxDelay
	}
	return n
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs fn up to MaxRetries+1 times. Only transient errors are retried;
// anything else, or the error from the final attempt, is returned unchanged.
// onRetry, if set, is called before each wait.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(attempt int) (T, error), onRetry func(attempt int, wait time.Duration, err error)) (T, error) {
	var (
		zero    T
		lastErr error
		delay   = p.BaseDelay
	)

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == p.MaxRetries {
			break
		}

		wait := p.Wait(delay)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			break
		}
		delay = p.next(delay)
	}

	return zero, lastErr
}
