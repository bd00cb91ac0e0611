package gateway

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protect"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/provider"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/transport"
)

const instrumentationName = "github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/gateway"

// ═══════════════════════════════════════════════════════════════════════════
// 外部协作方
// ═══════════════════════════════════════════════════════════════════════════

// Directory Agent 目录
//
// 找不到 Agent 时返回 *llm.AgentNotFoundError 或 (nil, nil)。
// 其他错误视为目录自身故障，原样包装后返回给调用方。
type Directory interface {
	GetAgent(ctx context.Context, id string) (*llm.AgentConfig, error)
}

// DirectoryFunc 函数形式的 Directory
type DirectoryFunc func(ctx context.Context, id string) (*llm.AgentConfig, error)

// GetAgent 实现 Directory 接口
func (f DirectoryFunc) GetAgent(ctx context.Context, id string) (*llm.AgentConfig, error) {
	return f(ctx, id)
}

// ═══════════════════════════════════════════════════════════════════════════
// Gateway
// ═══════════════════════════════════════════════════════════════════════════

// Gateway 多 Provider 对话网关
//
// 构建后只读，可被任意数量的 goroutine 并发调用。
type Gateway struct {
	directory  Directory
	registry   *core.Registry
	transport  core.Transport
	protector  core.Protector
	logger     *zap.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	bufferSize int
}

// Option Gateway 配置选项
type Option func(*Gateway)

// WithRegistry 设置适配器注册表
func WithRegistry(r *core.Registry) Option {
	return func(g *Gateway) {
		if r != nil {
			g.registry = r
		}
	}
}

// WithTransport 设置传输层
func WithTransport(t core.Transport) Option {
	return func(g *Gateway) {
		if t != nil {
			g.transport = t
		}
	}
}

// WithProtector 设置保护层
func WithProtector(p core.Protector) Option {
	return func(g *Gateway) {
		if p != nil {
			g.protector = p
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics 设置 Prometheus 指标
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTracer 设置 OpenTelemetry Tracer
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithStreamBuffer 设置 Stream 返回通道的缓冲大小
func WithStreamBuffer(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.bufferSize = n
		}
	}
}

// New 创建网关
//
// 默认使用全部内置适配器、resty 传输层和直通保护层。
func New(dir Directory, opts ...Option) *Gateway {
	g := &Gateway{
		directory:  dir,
		protector:  protect.Passthrough,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(instrumentationName),
		bufferSize: llm.DefaultConfig().StreamBufferSize,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.registry == nil {
		g.registry = provider.NewRegistry()
	}
	if g.transport == nil {
		g.transport = transport.New(nil)
	}
	return g
}

// NewFromConfig 按网关配置创建网关
//
// 传输层使用 cfg.Timeout，保护层为 protect.Guard（重试 + 熔断），
// 注册表使用 cfg.Anthropic 的参数。opts 在配置之后应用，可覆盖任意组件。
func NewFromConfig(cfg llm.Config, dir Directory, opts ...Option) *Gateway {
	g := &Gateway{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}

	base := []Option{
		WithRegistry(provider.FromConfig(cfg)),
		WithTransport(transport.New(&transport.Config{Timeout: cfg.Timeout})),
		WithProtector(protect.NewGuardFromConfig(cfg, g.logger.Named("protect"))),
		WithStreamBuffer(cfg.StreamBufferSize),
	}
	return New(dir, append(base, opts...)...)
}

// ═══════════════════════════════════════════════════════════════════════════
// 调用准备
// ═══════════════════════════════════════════════════════════════════════════

// resolve 查找 Agent 并选择适配器
//
// 所有错误都发生在任何网络调用之前。
func (g *Gateway) resolve(ctx context.Context, agentID string) (*llm.AgentConfig, core.Adapter, error) {
	if g.directory == nil {
		return nil, nil, llm.NewAgentNotFoundError(agentID)
	}

	cfg, err := g.directory.GetAgent(ctx, agentID)
	if err != nil {
		if llm.IsAgentNotFound(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("lookup agent %s: %w", agentID, err)
	}
	if cfg == nil {
		return nil, nil, llm.NewAgentNotFoundError(agentID)
	}

	if !cfg.IsActive {
		return nil, nil, llm.NewAgentInactiveError(agentID)
	}

	adapter, err := g.registry.Lookup(cfg.Provider)
	if err != nil {
		return nil, nil, err
	}

	if err := adapter.ValidateConfig(cfg); err != nil {
		return nil, nil, err
	}

	return cfg, adapter, nil
}
