package protect

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 熔断器
// ═══════════════════════════════════════════════════════════════════════════

// ErrCircuitOpen 熔断器打开时返回的哨兵错误
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State 熔断器状态
type State int

const (
	// StateClosed 正常放行
	StateClosed State = iota
	// StateOpen 熔断中，直接拒绝
	StateOpen
	// StateHalfOpen 试探恢复，只放行一个请求
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// Threshold 连续失败次数阈值，<= 0 表示禁用熔断
	Threshold int

	// ResetTimeout Open -> HalfOpen 的等待时间
	ResetTimeout time.Duration

	// OnStateChange 状态变更回调（持锁调用，不能阻塞）
	OnStateChange func(key string, from, to State)
}

// Breaker 连续失败计数熔断器
//
// 只有 llm.IsRetryableError 为 true 的错误计入失败；4xx 之类的调用方错误不影响状态。
type Breaker struct {
	key    string
	config BreakerConfig
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker 创建熔断器
func NewBreaker(key string, config BreakerConfig, logger *zap.Logger) *Breaker {
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		key:    key,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// State 当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow 判定是否放行本次调用
//
// 拒绝时返回包装了 ErrCircuitOpen 的 ExternalServiceError。
func (b *Breaker) Allow() error {
	if b.config.Threshold <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.ResetTimeout {
			return b.rejected()
		}
		b.setState(StateHalfOpen)
		b.probing = true
		return nil

	case StateHalfOpen:
		if b.probing {
			return b.rejected()
		}
		b.probing = true
		return nil

	default:
		return nil
	}
}

// Record 记录一次调用结果
func (b *Breaker) Record(err error) {
	if b.config.Threshold <= 0 {
		return
	}

	failed := err != nil && llm.IsRetryableError(err)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		if failed {
			b.open()
			return
		}
		b.failures = 0
		b.setState(StateClosed)
		b.logger.Info("circuit breaker closed", zap.String("key", b.key))
		return
	}

	if !failed {
		b.failures = 0
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.config.Threshold {
		b.open()
	}
}

// Release 放弃一次已放行但结果不可信的调用（如调用方取消），不改变计数
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.setState(StateOpen)
	b.logger.Warn("circuit breaker opened",
		zap.String("key", b.key),
		zap.Int("failures", b.failures),
		zap.Int("threshold", b.config.Threshold),
	)
}

func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	if from != to && b.config.OnStateChange != nil {
		b.config.OnStateChange(b.key, from, to)
	}
}

func (b *Breaker) rejected() error {
	return llm.NewExternalServiceError("upstream "+b.key+" unavailable", ErrCircuitOpen)
}
