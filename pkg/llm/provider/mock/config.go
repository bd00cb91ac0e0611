package mock

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed examples/unified.yaml
var exampleConfigYAML []byte

// Config 配置文件结构
type Config struct {
	// DefaultResponse 默认响应（当没有指定场景时使用）
	DefaultResponse string `yaml:"default_response" json:"default_response"`

	// Scenarios 场景列表（通过 name 标识，直接指定使用）
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`

	// Delay 响应延迟（如 "100ms", "1s"）
	Delay string `yaml:"delay" json:"delay"`

	// SimulateError 模拟网络层错误（没有 HTTP 响应）
	SimulateError string `yaml:"simulate_error" json:"simulate_error"`

	// SimulateStatus 模拟非 2xx 响应状态码
	SimulateStatus int `yaml:"simulate_status" json:"simulate_status"`
}

// Scenario 场景（通过 name 标识，支持多轮对话）
type Scenario struct {
	// Name 场景名称（必需，用于指定场景）
	Name string `yaml:"name" json:"name"`

	// Turns 对话轮次列表
	Turns []Turn `yaml:"turns" json:"turns"`
}

// Turn 单轮对话
type Turn struct {
	// User 用户消息（可选，用于文档说明）
	User string `yaml:"user,omitempty" json:"user,omitempty"`

	// Assistant 助手响应（支持模板语法）
	Assistant string `yaml:"assistant,omitempty" json:"assistant,omitempty"`

	// Nodes 流式调用时在回答之前发出的流程节点名称
	Nodes []string `yaml:"nodes,omitempty" json:"nodes,omitempty"`
}

// LoadConfigFile 从文件加载配置
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	return LoadConfigFromBytes(data, ext)
}

// LoadConfigFromBytes 从字节数据加载配置
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg := &Config{}

	// 规范化格式字符串（支持 ".yaml" 或 "yaml"）
	format = strings.TrimPrefix(strings.ToLower(format), ".")

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s (expected yaml, yml, or json)", format)
	}

	return cfg, nil
}

// LoadExampleConfig 加载内嵌的示例配置
func LoadExampleConfig() (*Config, error) {
	return LoadConfigFromBytes(exampleConfigYAML, "yaml")
}

// WithConfigFile 从配置文件加载设置
func WithConfigFile(path string) Option {
	return func(u *Upstream) {
		cfg, err := LoadConfigFile(path)
		if err != nil {
			// 将错误存储到上游，在首次调用时返回
			u.err = fmt.Errorf("load config file: %w", err)
			return
		}
		applyConfig(u, cfg)
	}
}

// WithConfig 从配置对象加载设置
func WithConfig(cfg *Config) Option {
	return func(u *Upstream) {
		if cfg == nil {
			return
		}
		applyConfig(u, cfg)
	}
}

// applyConfig 应用配置到上游
func applyConfig(u *Upstream, cfg *Config) {
	if cfg.DefaultResponse != "" {
		u.response = cfg.DefaultResponse
	}

	// 加载场景（通过 name 索引）
	if len(cfg.Scenarios) > 0 {
		u.scenarios = make(map[string]*scenarioState)
		for _, s := range cfg.Scenarios {
			if s.Name != "" {
				u.scenarios[s.Name] = &scenarioState{scenario: s}
			}
		}
	}

	if cfg.Delay != "" {
		if d, err := time.ParseDuration(cfg.Delay); err == nil {
			u.delay = d
		}
	}

	if cfg.SimulateError != "" {
		u.err = fmt.Errorf("%s", cfg.SimulateError)
	}
	if cfg.SimulateStatus != 0 {
		u.status = cfg.SimulateStatus
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 场景状态管理
// ═══════════════════════════════════════════════════════════════════════════

// scenarioState 场景状态
type scenarioState struct {
	scenario Scenario
	turnIdx  int // 当前轮次索引
}

// next 渲染当前轮次并推进到下一轮
func (s *scenarioState) next(input string) Turn {
	if s.turnIdx >= len(s.scenario.Turns) {
		return Turn{Assistant: "[场景已结束]"}
	}

	turn := s.scenario.Turns[s.turnIdx]
	s.turnIdx++

	if rendered, err := renderTemplateWithData(turn.Assistant, createTemplateData(input)); err == nil {
		turn.Assistant = rendered
	}
	return turn
}

// ═══════════════════════════════════════════════════════════════════════════
// 模板渲染
// ═══════════════════════════════════════════════════════════════════════════

// templateFuncs 模板函数映射
var templateFuncs = template.FuncMap{
	"env":      envFunc,
	"default":  defaultFunc,
	"coalesce": coalesceFunc,
}

// envFunc 获取环境变量
func envFunc(key string, defaultVal ...string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return ""
}

// defaultFunc 提供默认值
func defaultFunc(defaultVal, value any) any {
	if value == nil {
		return defaultVal
	}
	if str, ok := value.(string); ok && str == "" {
		return defaultVal
	}
	return value
}

// coalesceFunc 返回第一个非空值
func coalesceFunc(values ...any) any {
	for _, v := range values {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok && str == "" {
			continue
		}
		return v
	}
	return nil
}

// renderTemplateWithData 使用指定数据渲染模板
func renderTemplateWithData(text string, data map[string]string) (string, error) {
	tmpl, err := template.New("response").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return text, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return text, err
	}

	return buf.String(), nil
}

// createTemplateData 创建模板数据：环境变量 + LAST_USER_MESSAGE
func createTemplateData(input string) map[string]string {
	vars := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			vars[parts[0]] = parts[1]
		}
	}
	vars["LAST_USER_MESSAGE"] = input
	return vars
}
