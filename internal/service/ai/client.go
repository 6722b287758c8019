package ai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	engineerrors "github.com/kapu/sales-skills-engine/pkg/errors"
	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

// ChatRequest is one system+user exchange.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
	JSONMode    bool
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Completion is the assistant text plus the provider's raw response document.
type Completion struct {
	Content string
	Raw     json.RawMessage
	Model   string
	Usage   Usage
}

// Completer is what the assessment stages depend on.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest, hint string) (*Completion, error)
}

// Provider performs a single attempt against one backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req ChatRequest, hint string) (*Completion, error)
}

type ClientConfig struct {
	Timeout time.Duration
	Retry   RetryPolicy
	Breaker *Breaker
}

// Client adds the per-call timeout, bounded retry and an optional breaker
// around a Provider.
type Client struct {
	provider Provider
	timeout  time.Duration
	retry    RetryPolicy
	breaker  *Breaker
	logger   *zap.Logger
	metrics  *metrics.Manager
}

func NewClient(provider Provider, cfg ClientConfig, logger *zap.Logger, m *metrics.Manager) *Client {
	return &Client{
		provider: provider,
		timeout:  cfg.Timeout,
		retry:    cfg.Retry,
		breaker:  cfg.Breaker,
		logger:   logger,
		metrics:  m,
	}
}

// Complete runs req with retries. hint labels the call site in errors and logs.
func (c *Client) Complete(ctx context.Context, req ChatRequest, hint string) (*Completion, error) {
	if !c.breaker.Allow() {
		c.metrics.RecordLLMRequest(hint, "rejected", 0)
		return nil, engineerrors.NewServiceError(
			fmt.Sprintf("%s call rejected: LLM provider unavailable", hint),
			c.provider.Name(), hint, nil)
	}

	resp, err := Retry(ctx, c.retry, func(attempt int) (*Completion, error) {
		return c.attempt(ctx, req, hint)
	}, func(attempt int, wait time.Duration, err error) {
		c.metrics.RecordLLMRetry(hint)
		c.logger.Warn("LLM call failed, retrying",
			zap.String("hint", hint),
			zap.String("provider", c.provider.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	switch {
	case err == nil:
		c.breaker.RecordSuccess()
	case ctx.Err() != nil:
		c.breaker.Release()
	case IsTransient(err):
		c.breaker.RecordFailure()
	default:
		// the provider answered, the request itself was bad
		c.breaker.RecordSuccess()
	}
	return resp, err
}

func (c *Client) attempt(ctx context.Context, req ChatRequest, hint string) (*Completion, error) {
	callCtx := ctx
	var timeoutErr error
	if c.timeout > 0 {
		timeoutErr = fmt.Errorf("%s API call timed out after %dms", hint, c.timeout.Milliseconds())
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeoutCause(ctx, c.timeout, timeoutErr)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.provider.Complete(callCtx, req, hint)
	elapsed := time.Since(start)

	if err != nil {
		if timeoutErr != nil && stderrors.Is(context.Cause(callCtx), timeoutErr) && ctx.Err() == nil {
			err = timeoutErr
		}
		c.metrics.RecordLLMRequest(hint, "error", elapsed)
		return nil, err
	}

	c.metrics.RecordLLMRequest(hint, "ok", elapsed)
	c.logger.Info("LLM response received",
		zap.String("hint", hint),
		zap.String("provider", c.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("length", len(resp.Content)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", elapsed),
	)
	return resp, nil
}
