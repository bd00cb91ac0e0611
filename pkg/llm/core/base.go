package core

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 适配器公共部分
// ═══════════════════════════════════════════════════════════════════════════

// Base 适配器公共依赖
//
// 各协议适配器嵌入 Base 以获得可注入的 ID 生成器与时钟，
// 使 TransformRequest/TransformResponse 在测试中完全可复现。
type Base struct {
	newID     func() string
	now       func() time.Time
	maxTokens int
	version   string
}

// Option 适配器选项
type Option func(*Base)

// WithIDGenerator 设置 ID 生成器（默认 uuid v4）
func WithIDGenerator(fn func() string) Option {
	return func(b *Base) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithClock 设置时钟（默认 time.Now）
func WithClock(fn func() time.Time) Option {
	return func(b *Base) {
		if fn != nil {
			b.now = fn
		}
	}
}

// WithMaxTokens 设置默认 max_tokens（Anthropic 使用）
func WithMaxTokens(n int) Option {
	return func(b *Base) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// WithAPIVersion 设置协议版本头（Anthropic 使用）
func WithAPIVersion(v string) Option {
	return func(b *Base) {
		if v != "" {
			b.version = v
		}
	}
}

// NewBase 创建适配器公共部分
func NewBase(opts ...Option) Base {
	b := Base{
		newID:     uuid.NewString,
		now:       time.Now,
		maxTokens: llm.DefaultAnthropicMaxTokens,
		version:   llm.DefaultAnthropicVersion,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// NewID 生成新的标识
func (b Base) NewID() string {
	return b.newID()
}

// Now 返回当前 Unix 时间戳（秒）
func (b Base) Now() int64 {
	return b.now().Unix()
}

// MaxTokens 返回默认 max_tokens
func (b Base) MaxTokens() int {
	return b.maxTokens
}

// APIVersion 返回协议版本
func (b Base) APIVersion() string {
	return b.version
}

// ═══════════════════════════════════════════════════════════════════════════
// 通用构建逻辑
// ═══════════════════════════════════════════════════════════════════════════

// ValidateCommon 通用配置校验
//
// 检查 AgentConfig.Validate 的约束，以及 apiKey 非空（allowAnonymous 为 true 时跳过）。
func ValidateCommon(cfg *llm.AgentConfig, allowAnonymous bool) error {
	if cfg == nil {
		return llm.NewMissingFieldError("config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.APIKey == "" && !allowAnonymous {
		return llm.NewMissingFieldError("apiKey")
	}
	return nil
}

// BearerHeaders 构建 Bearer 认证请求头
func BearerHeaders(apiKey string) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if apiKey != "" {
		h["Authorization"] = "Bearer " + apiKey
	}
	return h
}

// JoinEndpoint 拼接端点与接口路径
//
// 端点已经以该路径结尾时原样返回，避免重复拼接。
func JoinEndpoint(endpoint, path string) string {
	base := strings.TrimRight(endpoint, "/")
	if path == "" || strings.HasSuffix(base, path) {
		return base
	}
	return base + path
}

// ResolveURL 按流式配置选择端点并拼接 Provider 路径
func ResolveURL(cfg *llm.AgentConfig, stream bool) string {
	endpoint := cfg.Endpoint
	if stream && cfg.Features.StreamingConfig.Endpoint != "" {
		endpoint = cfg.Features.StreamingConfig.Endpoint
	}
	return JoinEndpoint(endpoint, cfg.Provider.DefaultPath())
}

// MapMessages 将消息 1:1 映射为 {role, content}，保持顺序
func MapMessages(messages []llm.ChatMessage) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		out = append(out, map[string]any{
			"role":    string(msg.Role),
			"content": msg.Content,
		})
	}
	return out
}
