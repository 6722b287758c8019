package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

func TestNewBreakerDisabled(t *testing.T) {
	b := NewBreaker(0, time.Second, zap.NewNop())
	assert.Nil(t, b)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerClosed, b.State())
	b.RecordFailure()
	b.RecordSuccess()
	b.Release()
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(2, 30*time.Second, zap.NewNop())
	b.now = func() time.Time { return now }

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one trial call in half-open")

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(1, time.Minute, zap.NewNop())
	b.now = func() time.Time { return now }

	b.RecordFailure()
	require.Equal(t, BreakerOpen, b.State())

	now = now.Add(2 * time.Minute)
	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

type failingProvider struct {
	err   error
	calls int
}

func (f *failingProvider) Name() string { return "failing" }

func (f *failingProvider) Complete(context.Context, ChatRequest, string) (*Completion, error) {
	f.calls++
	return nil, f.err
}

func TestClientRejectsWhileBreakerOpen(t *testing.T) {
	provider := &failingProvider{err: errors.New("upstream returned 503")}
	breaker := NewBreaker(1, time.Hour, zap.NewNop())
	client := NewClient(provider, ClientConfig{Retry: noWaitPolicy(0), Breaker: breaker}, zap.NewNop(), metrics.NewManager())

	_, err := client.Complete(context.Background(), ChatRequest{Model: "m"}, "judge")
	require.Error(t, err)
	assert.Equal(t, BreakerOpen, breaker.State())

	_, err = client.Complete(context.Background(), ChatRequest{Model: "m"}, "judge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM provider unavailable")
	assert.Equal(t, 1, provider.calls)
}

func TestClientNonTransientErrorKeepsBreakerClosed(t *testing.T) {
	provider := &failingProvider{err: errors.New("upstream returned 400: bad model")}
	breaker := NewBreaker(1, time.Hour, zap.NewNop())
	client := NewClient(provider, ClientConfig{Retry: noWaitPolicy(0), Breaker: breaker}, zap.NewNop(), metrics.NewManager())

	_, err := client.Complete(context.Background(), ChatRequest{Model: "m"}, "coach")
	require.Error(t, err)
	assert.Equal(t, BreakerClosed, breaker.State())
}
