package llm

import (
	"net/url"
	"regexp"
	"slices"
)

// ═══════════════════════════════════════════════════════════════════════════
// Agent 配置
// ═══════════════════════════════════════════════════════════════════════════

// AgentConfig Agent 配置
//
// 由外部 Agent 目录持有和维护，网关每次调用只读取。
type AgentConfig struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Provider     ProviderType `json:"provider" yaml:"provider"`
	Endpoint     string       `json:"endpoint" yaml:"endpoint"`
	APIKey       string       `json:"apiKey" yaml:"api_key"`
	Model        string       `json:"model" yaml:"model"`
	IsActive     bool         `json:"isActive" yaml:"is_active"`
	Capabilities []string     `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Features     Features     `json:"features" yaml:"features"`

	// AppID Provider 特有的应用标识（FastGPT 为 24 位十六进制）
	AppID string `json:"appId,omitempty" yaml:"app_id,omitempty"`

	// AllowAnonymous 允许空 APIKey（仅 Dify 支持）
	AllowAnonymous bool `json:"allowAnonymous,omitempty" yaml:"allow_anonymous,omitempty"`
}

// Features Agent 能力开关
type Features struct {
	SupportsChatID  bool            `json:"supportsChatId" yaml:"supports_chat_id"`
	SupportsStream  bool            `json:"supportsStream" yaml:"supports_stream"`
	SupportsDetail  bool            `json:"supportsDetail" yaml:"supports_detail"`
	SupportsFiles   bool            `json:"supportsFiles" yaml:"supports_files"`
	SupportsImages  bool            `json:"supportsImages" yaml:"supports_images"`
	StreamingConfig StreamingConfig `json:"streamingConfig" yaml:"streaming_config"`
}

// StreamingConfig 流式配置
type StreamingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Endpoint 流式请求使用的独立端点（可选）
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// StatusEvents 为 true 时才向调用方推送 status 事件
	StatusEvents   bool `json:"statusEvents" yaml:"status_events"`
	FlowNodeStatus bool `json:"flowNodeStatus" yaml:"flow_node_status"`
}

// HasCapability 检查 Agent 是否声明了指定能力
func (c *AgentConfig) HasCapability(name string) bool {
	return slices.Contains(c.Capabilities, name)
}

var fastGPTAppIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// Validate 校验与 Provider 无关的配置约束
//
// 检查项：
//   - endpoint 非空且为绝对 URL
//   - FastGPT 的 appId 若存在必须为 24 位小写十六进制
//
// APIKey 是否允许为空由各协议适配器决定。
func (c *AgentConfig) Validate() error {
	if c.Endpoint == "" {
		return NewValidationError("endpoint", "endpoint is required")
	}
	if !IsAbsoluteURL(c.Endpoint) {
		return NewValidationError("endpoint", "endpoint must be an absolute URL: "+c.Endpoint)
	}
	if c.Features.StreamingConfig.Endpoint != "" && !IsAbsoluteURL(c.Features.StreamingConfig.Endpoint) {
		return NewValidationError("features.streamingConfig.endpoint", "streaming endpoint must be an absolute URL")
	}
	if c.Provider == ProviderTypeFastGPT && c.AppID != "" && !fastGPTAppIDPattern.MatchString(c.AppID) {
		return NewValidationError("appId", "appId must be 24 lowercase hexadecimal characters")
	}
	return nil
}

// IsAbsoluteURL 判断字符串是否为带 scheme 和 host 的绝对 URL
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
