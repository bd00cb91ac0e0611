package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// File 目录文件结构
type File struct {
	Agents []llm.AgentConfig `yaml:"agents" json:"agents"`
}

// LoadFile 从文件加载目录，格式由扩展名决定
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	return LoadBytes(data, ext)
}

// LoadBytes 从字节数据加载目录
//
// format 支持 "yaml"、"yml"、"json"，可带前导点。
func LoadBytes(data []byte, format string) (*Static, error) {
	var f File

	format = strings.TrimPrefix(strings.ToLower(format), ".")

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s (expected yaml, yml, or json)", format)
	}

	for i := range f.Agents {
		if err := expand(&f.Agents[i]); err != nil {
			return nil, fmt.Errorf("agent %q: %w", f.Agents[i].ID, err)
		}
	}

	return NewStatic(f.Agents...)
}

// ═══════════════════════════════════════════════════════════════════════════
// 模板渲染
// ═══════════════════════════════════════════════════════════════════════════

var templateFuncs = template.FuncMap{
	"env":      envFunc,
	"default":  defaultFunc,
	"coalesce": coalesceFunc,
}

// expand 渲染 Agent 中允许使用模板的字段
func expand(a *llm.AgentConfig) error {
	fields := []*string{
		&a.Endpoint,
		&a.APIKey,
		&a.AppID,
		&a.Features.StreamingConfig.Endpoint,
	}
	for _, f := range fields {
		rendered, err := render(*f)
		if err != nil {
			return err
		}
		*f = rendered
	}
	return nil
}

func render(text string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("field").Funcs(templateFuncs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
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
