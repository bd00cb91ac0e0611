package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 类型转换辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// GetInt64 将 any 类型安全转换为 int64
//
// 支持的输入类型：
//   - float64: JSON 数字的默认类型
//   - int: Go 原生整数
//   - int64: Go 64位整数
//   - json.Number
//
// 其他类型返回 0（零值）。
//
// 示例：
//
//	usage := GetMap(apiResp["usage"])
//	inputTokens := GetInt64(usage["input_tokens"])  // 处理 float64
func GetInt64(val any) int64 {
	switch v := val.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// GetString 将 any 类型安全转换为 string，非字符串返回空串
func GetString(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// GetMap 将 any 转换为 JSON 对象，非对象返回 nil
func GetMap(val any) map[string]any {
	m, _ := val.(map[string]any)
	return m
}

// GetSlice 将 any 转换为 JSON 数组，非数组返回 nil
func GetSlice(val any) []any {
	s, _ := val.([]any)
	return s
}

// GetPath 按键路径逐层读取嵌套对象
//
// 示例：
//
//	GetPath(payload, "choices", 0, "delta", "content")
//
// 路径上任一层类型不符都返回 nil。
func GetPath(val any, path ...any) any {
	cur := val
	for _, p := range path {
		switch key := p.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[key]
		case int:
			s, ok := cur.([]any)
			if !ok || key < 0 || key >= len(s) {
				return nil
			}
			cur = s[key]
		default:
			return nil
		}
	}
	return cur
}

// ═══════════════════════════════════════════════════════════════════════════
// 响应解码
// ═══════════════════════════════════════════════════════════════════════════

// DecodeObject 将响应体解码为 JSON 对象
//
// 只有两种情况返回 *llm.DecodeError：
//   - 响应体不是合法 JSON
//   - 顶层不是对象（裸字符串、数组、数字、null）
//
// 对象内字段缺失不视为错误，由各适配器补齐默认值。
func DecodeObject(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, llm.NewDecodeError("", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, llm.NewDecodeError("", fmt.Errorf("expected JSON object, got %s", jsonKind(v)))
	}
	return obj, nil
}

// ErrorMessage 从上游错误负载中提取可读消息
//
// 依次尝试 message、error.message、error（字符串）、msg。
func ErrorMessage(payload any) string {
	for _, path := range [][]any{{"message"}, {"error", "message"}, {"error"}, {"msg"}} {
		if s := GetString(GetPath(payload, path...)); s != "" {
			return s
		}
	}
	if payload == nil {
		return "unknown upstream error"
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// TextContent 提取消息内容
//
// content 可能是字符串，也可能是 [{"type":"text","text":"..."}] 形式的数组，
// 数组中所有文本按顺序拼接。
func TextContent(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []any:
		var sb strings.Builder
		for _, item := range v {
			part := GetMap(item)
			switch text := part["text"].(type) {
			case string:
				sb.WriteString(text)
			case map[string]any:
				// FastGPT: {"type":"text","text":{"content":"..."}}
				sb.WriteString(GetString(text["content"]))
			}
		}
		return sb.String()
	default:
		return ""
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []any:
		return "array"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
