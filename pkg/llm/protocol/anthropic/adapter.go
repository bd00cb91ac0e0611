package anthropic

import (
	"strings"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Anthropic 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter Anthropic Messages 协议适配器
//
// 实现 core.Adapter 接口。
//
// 关键协议差异：
//  1. 认证：x-api-key 头 + 固定的 anthropic-version 头
//  2. 系统消息：独立的 system 参数，其余消息保持顺序
//  3. max_tokens 必填，使用固定默认值
//  4. 响应：content 数组，stop_reason 原样作为 finish_reason
//  5. Token 字段名：input_tokens, output_tokens（无 total_tokens）
type Adapter struct {
	core.Base
}

// NewAdapter 创建 Anthropic 协议适配器
func NewAdapter(opts ...core.Option) *Adapter {
	return &Adapter{Base: core.NewBase(opts...)}
}

// Provider 实现 core.Adapter 接口
func (a *Adapter) Provider() llm.ProviderType {
	return llm.ProviderTypeAnthropic
}

// ValidateConfig 要求 endpoint 与 apiKey 均非空
func (a *Adapter) ValidateConfig(cfg *llm.AgentConfig) error {
	return core.ValidateCommon(cfg, false)
}

// BuildHeaders 构建 Anthropic 请求头
//
//	Content-Type: application/json
//	x-api-key: <apiKey>
//	anthropic-version: 2023-06-01
func (a *Adapter) BuildHeaders(cfg *llm.AgentConfig) map[string]string {
	return map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         cfg.APIKey,
		"anthropic-version": a.APIVersion(),
	}
}

// BuildURL 返回 {endpoint}/messages
func (a *Adapter) BuildURL(cfg *llm.AgentConfig, stream bool) string {
	return core.ResolveURL(cfg, stream)
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformRequest - 构建 Anthropic 请求体
// ═══════════════════════════════════════════════════════════════════════════

// TransformRequest 构建 Anthropic 请求体
//
//	{
//	  "model": "...",
//	  "system": "...",
//	  "messages": [{"role": "user", "content": "..."}],
//	  "max_tokens": 4096,
//	  "stream": false
//	}
//
// Messages API 不接受 role=system 的消息，system 消息按顺序以空行拼接后
// 放入 system 参数。
func (a *Adapter) TransformRequest(messages []llm.ChatMessage, cfg *llm.AgentConfig, stream bool, _ *llm.ChatOptions) (map[string]any, error) {
	system, rest := llm.SplitSystem(messages)

	req := map[string]any{
		"model":      cfg.Model,
		"messages":   core.MapMessages(rest),
		"max_tokens": a.MaxTokens(),
		"stream":     stream,
	}
	if len(system) > 0 {
		req["system"] = strings.Join(system, "\n\n")
	}
	return req, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformResponse - 解析 Anthropic 响应
// ═══════════════════════════════════════════════════════════════════════════

// TransformResponse 解析 Anthropic 响应为统一响应
//
// Anthropic 响应格式：
//
//	{
//	  "id": "msg_...",
//	  "model": "claude-...",
//	  "content": [{"type": "text", "text": "..."}],
//	  "stop_reason": "end_turn",
//	  "usage": {"input_tokens": 10, "output_tokens": 20}
//	}
//
// 所有 text 块按顺序拼接为 choices[0].message.content。
func (a *Adapter) TransformResponse(raw []byte) (*llm.ChatResponse, error) {
	resp, err := core.DecodeObject(raw)
	if err != nil {
		return nil, err
	}

	out := &llm.ChatResponse{
		ID:      core.GetString(resp["id"]),
		Object:  llm.DefaultObject,
		Created: a.Now(),
		Model:   core.GetString(resp["model"]),
		Usage:   ConvertUsage(resp),
	}
	if out.ID == "" {
		out.ID = "msg_" + a.NewID()
	}

	var text strings.Builder
	for _, item := range core.GetSlice(resp["content"]) {
		block := core.GetMap(item)
		if block == nil {
			continue
		}
		if t := core.GetString(block["type"]); t != "" && t != "text" {
			continue
		}
		text.WriteString(core.GetString(block["text"]))
	}

	out.Choices = []llm.Choice{{
		Index: 0,
		Message: llm.ChoiceMessage{
			Role:    llm.RoleAssistant,
			Content: text.String(),
		},
		FinishReason: core.GetString(resp["stop_reason"]),
	}}
	return out, nil
}

// ConvertUsage 解析 Anthropic 的 Token 使用量
//
// total_tokens 由 input_tokens + output_tokens 计算。
func ConvertUsage(resp map[string]any) *llm.Usage {
	usage := core.GetMap(resp["usage"])
	if usage == nil {
		return nil
	}
	out := &llm.Usage{
		PromptTokens:     core.GetInt64(usage["input_tokens"]),
		CompletionTokens: core.GetInt64(usage["output_tokens"]),
	}
	out.TotalTokens = out.PromptTokens + out.CompletionTokens
	return out
}

// 确保 Adapter 实现了 core.Adapter 接口
var _ core.Adapter = (*Adapter)(nil)
