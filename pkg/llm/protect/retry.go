// Package protect 提供上游调用的保护层实现
//
// 包含两种 core.Protector：
//   - Passthrough: 直接执行，不做任何保护
//   - Guard: 指数退避重试 + 按 key 隔离的熔断器
package protect

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Passthrough
// ═══════════════════════════════════════════════════════════════════════════

// Passthrough 直接执行 op 的 Protector
var Passthrough core.Protector = core.ProtectorFunc(func(ctx context.Context, op func(ctx context.Context) error) error {
	return op(ctx)
})

// ═══════════════════════════════════════════════════════════════════════════
// 重试策略
// ═══════════════════════════════════════════════════════════════════════════

// RetryPolicy 重试策略配置
type RetryPolicy struct {
	MaxRetries   int           // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration // 初始延迟
	MaxDelay     time.Duration // 最大延迟
	Multiplier   float64       // 指数退避倍数
	Jitter       bool          // 是否添加 ±25% 随机抖动

	// Retryable 判定错误是否可重试，默认 llm.IsRetryableError
	Retryable func(err error) bool

	// OnRetry 重试回调
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy 默认重试策略
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (p *RetryPolicy) normalize() {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 500 * time.Millisecond
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	if p.Retryable == nil {
		p.Retryable = llm.IsRetryableError
	}
}

// Delay 计算第 attempt 次重试（从 1 开始）前的等待时间
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitter
	}

	if delay < float64(p.InitialDelay) {
		delay = float64(p.InitialDelay)
	}
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// retry 按策略执行 op
//
// 不可重试错误、熔断错误和 ctx 取消立即返回；返回值始终是最后一次 op 的错误或 ctx 错误。
func retry(ctx context.Context, policy *RetryPolicy, logger *zap.Logger, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt)

			logger.Debug("retrying upstream call",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if policy.OnRetry != nil {
				policy.OnRetry(attempt, lastErr, delay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 0 {
				logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return nil
		}

		if ctx.Err() != nil || errors.Is(lastErr, ErrCircuitOpen) || !policy.Retryable(lastErr) {
			return lastErr
		}
	}

	logger.Warn("retries exhausted",
		zap.Int("attempts", policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return lastErr
}
