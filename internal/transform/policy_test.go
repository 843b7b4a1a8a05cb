package transform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	v, out := Retry(context.Background(), Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, func() string { return "fallback" })

	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, out.Attempts)
	assert.False(t, out.Fallback)
	assert.NoError(t, out.Err)
}

func TestRetryExhaustsToFallback(t *testing.T) {
	calls := 0
	v, out := Retry(context.Background(), Policy{MaxAttempts: 4}, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("always")
	}, func() int { return -1 })

	assert.Equal(t, -1, v)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, out.Attempts)
	assert.True(t, out.Fallback)
	assert.EqualError(t, out.Err, "always")
}

func TestRetryStopsOnFatalError(t *testing.T) {
	fatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	calls := 0
	_, out := Retry(context.Background(), p, func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "", fatal
	}, func() string { return "" })

	assert.Equal(t, 1, calls)
	assert.True(t, out.Fallback)
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, out := Retry(ctx, Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) (string, error) {
		calls++
		cancel()
		return "", errors.New("interrupted")
	}, func() string { return "fb" })

	assert.Equal(t, 1, calls)
	assert.True(t, out.Fallback)
}

func TestRetryBackoffRespectsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	v, out := Retry(ctx, Policy{MaxAttempts: 3, Backoff: time.Hour}, func(ctx context.Context, attempt int) (string, error) {
		return "", errors.New("fail")
	}, func() string { return "fb" })

	assert.Equal(t, "fb", v)
	assert.Equal(t, 1, out.Attempts)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, out := Retry(context.Background(), Policy{}, func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "x", nil
	}, func() string { return "" })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, out.Attempts)
}

func TestRetryAll(t *testing.T) {
	assert.True(t, RetryAll(errors.New("any")))
	assert.True(t, RetryAll(context.DeadlineExceeded))
	assert.False(t, RetryAll(context.Canceled))
}

func TestRetryTransient(t *testing.T) {
	assert.True(t, RetryTransient(errors.New("any")))
	assert.True(t, RetryTransient(llm.NewLLMError(llm.ErrCodeRateLimited, llm.ErrMsgRateLimited)))
	assert.False(t, RetryTransient(llm.NewLLMError(llm.ErrCodeInvalidAPIKey, llm.ErrMsgInvalidAPIKey)))
	assert.False(t, RetryTransient(context.Canceled))
}
