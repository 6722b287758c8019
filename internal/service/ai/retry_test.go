package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engineerrors "github.com/kapu/sales-skills-engine/pkg/errors"
)

func recordingPolicy(retries int, waits *[]time.Duration) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = retries
	p.Rand = func() float64 { return 0.5 }
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return p
}

func TestIsTransient(t *testing.T) {
	transient := []error{
		errors.New("judge API call timed out after 300000ms"),
		errors.New("dial tcp: i/o timeout"),
		engineerrors.NewUpstreamError("coach", 429, "rate limited"),
		engineerrors.NewUpstreamError("coach", 503, "busy"),
		errors.New("Service Unavailable"),
		errors.New("quota exceeded"),
		errors.New("RESOURCE_EXHAUSTED"),
	}
	for _, err := range transient {
		assert.True(t, IsTransient(err), err.Error())
	}

	permanent := []error{
		nil,
		engineerrors.NewUpstreamError("judge", 400, "bad request"),
		engineerrors.NewUpstreamError("judge", 401, "invalid key"),
		errors.New("judge missing LLM_API_KEY"),
	}
	for _, err := range permanent {
		assert.False(t, IsTransient(err))
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	var waits []time.Duration
	calls := 0

	got, err := Retry(context.Background(), recordingPolicy(2, &waits), func(attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errors.New("judge 503: upstream unavailable")
		}
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	// jitter factor is 0.7 + 0.5*0.6 = 1.0, so waits are the raw schedule.
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 900 * time.Millisecond}, waits)
}

func TestRetryNonTransientFailsImmediately(t *testing.T) {
	var waits []time.Duration
	calls := 0
	permanent := engineerrors.NewUpstreamError("judge", 400, "bad request")

	_, err := Retry(context.Background(), recordingPolicy(2, &waits), func(int) (int, error) {
		calls++
		return 0, permanent
	}, nil)

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestRetryExhaustedReturnsLastError(t *testing.T) {
	var waits []time.Duration
	calls := 0
	var last error

	_, err := Retry(context.Background(), recordingPolicy(2, &waits), func(attempt int) (int, error) {
		calls++
		last = engineerrors.NewUpstreamError("coach", 500+attempt, "boom")
		return 0, last
	}, nil)

	assert.Same(t, last, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, waits, 2)
}

func TestRetryDelayCapped(t *testing.T) {
	var waits []time.Duration
	_, _ = Retry(context.Background(), recordingPolicy(8, &waits), func(int) (int, error) {
		return 0, errors.New("429 too many requests")
	}, nil)

	require.Len(t, waits, 8)
	for _, w := range waits {
		assert.LessOrEqual(t, w, 8*time.Second)
	}
	assert.Equal(t, 8*time.Second, waits[len(waits)-1])
}

func TestRetryWaitJitterBounds(t *testing.T) {
	p := DefaultRetryPolicy()

	p.Rand = func() float64 { return 0 }
	assert.Equal(t, 350*time.Millisecond, p.Wait(500*time.Millisecond))

	p.Rand = func() float64 { return 1 }
	assert.Equal(t, 650*time.Millisecond, p.Wait(500*time.Millisecond))
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultRetryPolicy()
	calls := 0
	_, err := Retry(ctx, p, func(int) (int, error) {
		calls++
		return 0, errors.New("timeout")
	}, nil)

	assert.EqualError(t, err, "timeout")
	assert.Equal(t, 1, calls)
}

func TestRetryCallsOnRetry(t *testing.T) {
	var waits []time.Duration
	var seen []int
	_, _ = Retry(context.Background(), recordingPolicy(1, &waits), func(int) (int, error) {
		return 0, errors.New("unavailable")
	}, func(attempt int, _ time.Duration, _ error) {
		seen = append(seen, attempt)
	})
	assert.Equal(t, []int{0}, seen)
}
