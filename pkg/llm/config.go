package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ═══════════════════════════════════════════════════════════════════════════
// 网关配置
// ═══════════════════════════════════════════════════════════════════════════

// Config 网关运行配置
//
// 基本用法：
//
//	cfg := llm.DefaultConfig()
//	cfg.Timeout = 2 * time.Minute
//
// 从文件加载：
//
//	cfg, err := llm.LoadConfigFile("gateway.yaml")
//
// 文件示例（JSON 中时长同样写成 "60s" 形式的字符串）：
//
//	timeout: 60s
//	max_retries: 2
//	anthropic:
//	  max_tokens: 8192
type Config struct {
	// 网络配置
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`

	// 重试退避
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`

	// 熔断，BreakerThreshold <= 0 表示禁用
	BreakerThreshold    int           `yaml:"breaker_threshold" json:"breaker_threshold"`
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout" json:"breaker_reset_timeout"`

	// StreamBufferSize Stream 返回的 channel 缓冲大小
	StreamBufferSize int `yaml:"stream_buffer_size" json:"stream_buffer_size"`

	Anthropic AnthropicConfig `yaml:"anthropic" json:"anthropic"`
}

// AnthropicConfig Anthropic 协议参数
type AnthropicConfig struct {
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
	Version   string `yaml:"version" json:"version"`
}

const (
	// DefaultAnthropicMaxTokens Anthropic 请求默认的 max_tokens
	DefaultAnthropicMaxTokens = 4096

	// DefaultAnthropicVersion anthropic-version 请求头
	DefaultAnthropicVersion = "2023-06-01"
)

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Timeout:             120 * time.Second,
		MaxRetries:          3,
		InitialBackoff:      500 * time.Millisecond,
		MaxBackoff:          10 * time.Second,
		BreakerThreshold:    5,
		BreakerResetTimeout: 30 * time.Second,
		StreamBufferSize:    10,
		Anthropic: AnthropicConfig{
			MaxTokens: DefaultAnthropicMaxTokens,
			Version:   DefaultAnthropicVersion,
		},
	}
}

// LoadConfigFile 从文件加载配置，未设置的字段使用默认值
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return LoadConfigFromBytes(data, filepath.Ext(path))
}

// LoadConfigFromBytes 从字节数据加载配置
//
// format 支持 "yaml"、"yml"、"json"，可带前导点。
func LoadConfigFromBytes(data []byte, format string) (Config, error) {
	cfg := DefaultConfig()

	format = strings.TrimPrefix(strings.ToLower(format), ".")
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported format: %s (expected yaml, yml, or json)", format)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// JSON 时长编解码
// ═══════════════════════════════════════════════════════════════════════════

// configJSON 时长字段以字符串形式出现的 JSON 表示
type configJSON struct {
	*configFields

	Timeout             *string `json:"timeout,omitempty"`
	InitialBackoff      *string `json:"initial_backoff,omitempty"`
	MaxBackoff          *string `json:"max_backoff,omitempty"`
	BreakerResetTimeout *string `json:"breaker_reset_timeout,omitempty"`
}

// configFields 去掉方法集的 Config，避免递归调用 UnmarshalJSON
type configFields Config

// UnmarshalJSON 时长字段按 time.ParseDuration 解析（如 "30s"、"1m30s"）
//
// 数字形式的时长含义不明确（纳秒还是秒），直接拒绝。
func (c *Config) UnmarshalJSON(data []byte) error {
	aux := configJSON{configFields: (*configFields)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"timeout", aux.Timeout, &c.Timeout},
		{"initial_backoff", aux.InitialBackoff, &c.InitialBackoff},
		{"max_backoff", aux.MaxBackoff, &c.MaxBackoff},
		{"breaker_reset_timeout", aux.BreakerResetTimeout, &c.BreakerResetTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// MarshalJSON 时长字段输出为字符串，与 UnmarshalJSON 对称
func (c Config) MarshalJSON() ([]byte, error) {
	str := func(d time.Duration) *string {
		s := d.String()
		return &s
	}
	return json.Marshal(configJSON{
		configFields:        (*configFields)(&c),
		Timeout:             str(c.Timeout),
		InitialBackoff:      str(c.InitialBackoff),
		MaxBackoff:          str(c.MaxBackoff),
		BreakerResetTimeout: str(c.BreakerResetTimeout),
	})
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.BreakerResetTimeout <= 0 {
		c.BreakerResetTimeout = def.BreakerResetTimeout
	}
	if c.StreamBufferSize <= 0 {
		c.StreamBufferSize = def.StreamBufferSize
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = def.Anthropic.MaxTokens
	}
	if c.Anthropic.Version == "" {
		c.Anthropic.Version = def.Anthropic.Version
	}
}
