package transform

import (
	"context"
	"errors"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/llm"
)

// Classifier 判断一次失败是否值得重试
type Classifier func(err error) bool

// RetryAll 除调用方上下文结束外，所有错误都重试
func RetryAll(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// RetryTransient 只重试可能自行恢复的错误，密钥错误等永久错误直接回退
func RetryTransient(err error) bool {
	return RetryAll(err) && !llm.IsPermanent(err)
}

// Policy 重试策略
type Policy struct {
	MaxAttempts int           // 最大尝试次数
	Retryable   Classifier    // 为nil时等同RetryAll
	Backoff     time.Duration // 第k次失败后等待 k*Backoff
}

// DefaultPolicy 默认重试策略：最多3次，立即重试
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Retryable:   RetryAll,
	}
}

// Outcome 一次带重试调用的结果描述
type Outcome struct {
	Attempts int   // 实际尝试次数
	Fallback bool  // 是否使用了回退值
	Err      error // 最后一次失败的原因
}

// Retry 按策略执行op，全部失败时返回fallback()
// 调用方上下文结束或错误不可重试时立即回退，不会返回错误
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error), fallback func() T) (T, Outcome) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = RetryAll
	}

	var out Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out.Attempts = attempt
		v, err := op(ctx, attempt)
		if err == nil {
			out.Err = nil
			return v, out
		}
		out.Err = err

		if ctx.Err() != nil || !retryable(err) || attempt == maxAttempts {
			break
		}
		if p.Backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				out.Fallback = true
				return fallback(), out
			case <-timer.C:
			}
		}
	}

	out.Fallback = true
	return fallback(), out
}
