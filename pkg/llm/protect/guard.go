package protect

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Guard
// ═══════════════════════════════════════════════════════════════════════════

type keyCtx struct{}

// WithKey 为 ctx 绑定熔断隔离 key（通常是智能体 ID）
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, keyCtx{}, key)
}

// KeyFrom 读取 ctx 中的熔断 key，未设置时返回 "default"
func KeyFrom(ctx context.Context) string {
	if key, ok := ctx.Value(keyCtx{}).(string); ok && key != "" {
		return key
	}
	return "default"
}

// Guard 重试 + 熔断保护层
//
// 每次尝试都先经过对应 key 的熔断器；熔断拒绝不会被重试。
type Guard struct {
	policy  *RetryPolicy
	breaker BreakerConfig
	logger  *zap.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// GuardOption Guard 配置选项
type GuardOption func(*Guard)

// WithRetryPolicy 设置重试策略
func WithRetryPolicy(policy *RetryPolicy) GuardOption {
	return func(g *Guard) {
		if policy != nil {
			g.policy = policy
		}
	}
}

// WithBreaker 设置熔断器配置
func WithBreaker(config BreakerConfig) GuardOption {
	return func(g *Guard) {
		g.breaker = config
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard 创建保护层
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		policy:   DefaultRetryPolicy(),
		breaker:  BreakerConfig{Threshold: 5},
		logger:   zap.NewNop(),
		breakers: make(map[string]*Breaker),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.policy.normalize()
	return g
}

// NewGuardFromConfig 根据网关配置创建保护层
func NewGuardFromConfig(cfg llm.Config, logger *zap.Logger) *Guard {
	return NewGuard(
		WithLogger(logger),
		WithRetryPolicy(&RetryPolicy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialBackoff,
			MaxDelay:     cfg.MaxBackoff,
			Multiplier:   2.0,
			Jitter:       true,
		}),
		WithBreaker(BreakerConfig{
			Threshold:    cfg.BreakerThreshold,
			ResetTimeout: cfg.BreakerResetTimeout,
		}),
	)
}

// Execute 实现 core.Protector 接口
func (g *Guard) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b := g.Breaker(KeyFrom(ctx))

	return retry(ctx, g.policy, g.logger, func(ctx context.Context) error {
		if err := b.Allow(); err != nil {
			return err
		}
		err := op(ctx)
		if ctx.Err() != nil {
			b.Release()
			return err
		}
		b.Record(err)
		return err
	})
}

// Breaker 返回 key 对应的熔断器，不存在时创建
func (g *Guard) Breaker(key string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[key]
	if !ok {
		b = NewBreaker(key, g.breaker, g.logger)
		g.breakers[key] = b
	}
	return b
}

// 确保 Guard 实现了 core.Protector 接口
var _ core.Protector = (*Guard)(nil)
