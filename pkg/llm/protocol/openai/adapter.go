package openai

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// OpenAI 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter OpenAI Chat Completions 协议适配器
//
// 实现 core.Adapter 接口。
//
// 协议要点：
//  1. 认证：Authorization: Bearer <apiKey>
//  2. 请求：{model, messages, stream}，消息 1:1 映射
//  3. 响应：choices[].message.content
//  4. 流式：choices[0].delta.content，finish_reason 或 [DONE] 结束
type Adapter struct {
	core.Base
}

// NewAdapter 创建 OpenAI 协议适配器
func NewAdapter(opts ...core.Option) *Adapter {
	return &Adapter{Base: core.NewBase(opts...)}
}

// Provider 实现 core.Adapter 接口
func (a *Adapter) Provider() llm.ProviderType {
	return llm.ProviderTypeOpenAI
}

// ValidateConfig 要求 endpoint 与 apiKey 均非空
func (a *Adapter) ValidateConfig(cfg *llm.AgentConfig) error {
	return core.ValidateCommon(cfg, false)
}

// BuildHeaders 构建 Bearer 认证请求头
func (a *Adapter) BuildHeaders(cfg *llm.AgentConfig) map[string]string {
	return core.BearerHeaders(cfg.APIKey)
}

// BuildURL 返回 {endpoint}/chat/completions
func (a *Adapter) BuildURL(cfg *llm.AgentConfig, stream bool) string {
	return core.ResolveURL(cfg, stream)
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformRequest - 构建 OpenAI 请求体
// ═══════════════════════════════════════════════════════════════════════════

// TransformRequest 构建 OpenAI 请求体
//
//	{"model": "...", "messages": [{"role": "user", "content": "..."}], "stream": false}
func (a *Adapter) TransformRequest(messages []llm.ChatMessage, cfg *llm.AgentConfig, stream bool, _ *llm.ChatOptions) (map[string]any, error) {
	return map[string]any{
		"model":    cfg.Model,
		"messages": core.MapMessages(messages),
		"stream":   stream,
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformResponse - 解析 OpenAI 响应
// ═══════════════════════════════════════════════════════════════════════════

// TransformResponse 解析 OpenAI 响应为统一响应
//
// OpenAI 响应格式：
//
//	{
//	  "id": "chatcmpl-...",
//	  "choices": [{
//	    "index": 0,
//	    "message": {"role": "assistant", "content": "..."},
//	    "finish_reason": "stop"
//	  }],
//	  "usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
//	}
//
// choices 缺失或为空时补一个内容为空的候选。
func (a *Adapter) TransformResponse(raw []byte) (*llm.ChatResponse, error) {
	resp, err := core.DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	return ConvertResponse(resp, a.Base), nil
}

// ConvertResponse 将 choices 结构的响应对象转换为统一响应
//
// FastGPT 与 OpenAI 共用此逻辑。
func ConvertResponse(resp map[string]any, base core.Base) *llm.ChatResponse {
	out := &llm.ChatResponse{
		ID:      core.GetString(resp["id"]),
		Object:  core.GetString(resp["object"]),
		Created: core.GetInt64(resp["created"]),
		Model:   core.GetString(resp["model"]),
		Usage:   ConvertUsage(resp),
	}
	if out.ID == "" {
		out.ID = "chatcmpl-" + base.NewID()
	}
	if out.Object == "" {
		out.Object = llm.DefaultObject
	}
	if out.Created == 0 {
		out.Created = base.Now()
	}

	for i, item := range core.GetSlice(resp["choices"]) {
		choice := core.GetMap(item)
		if choice == nil {
			continue
		}
		message := core.GetMap(choice["message"])

		role := llm.Role(core.GetString(message["role"]))
		if role == "" {
			role = llm.RoleAssistant
		}
		index := i
		if _, ok := choice["index"]; ok {
			index = int(core.GetInt64(choice["index"]))
		}

		out.Choices = append(out.Choices, llm.Choice{
			Index: index,
			Message: llm.ChoiceMessage{
				Role:    role,
				Content: core.TextContent(message["content"]),
			},
			FinishReason: core.GetString(choice["finish_reason"]),
		})
	}

	if len(out.Choices) == 0 {
		out.Choices = []llm.Choice{llm.EmptyChoice()}
	}
	return out
}

// ConvertUsage 解析 prompt_tokens/completion_tokens/total_tokens
//
// 无 usage 字段时返回 nil；total_tokens 缺失时按两者之和计算。
func ConvertUsage(resp map[string]any) *llm.Usage {
	usage := core.GetMap(resp["usage"])
	if usage == nil {
		return nil
	}
	out := &llm.Usage{
		PromptTokens:     core.GetInt64(usage["prompt_tokens"]),
		CompletionTokens: core.GetInt64(usage["completion_tokens"]),
		TotalTokens:      core.GetInt64(usage["total_tokens"]),
	}
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out
}

// 确保 Adapter 实现了 core.Adapter 接口
var _ core.Adapter = (*Adapter)(nil)
