package dify

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Dify 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter Dify 应用 API 协议适配器
//
// 实现 core.Adapter 接口。
//
// 关键协议差异：
//  1. 请求只携带最近一条 user 消息（query），历史由 conversation_id 关联
//  2. response_mode: blocking / streaming
//  3. 响应：answer、message_id、conversation_id、metadata.usage
//  4. 流式：data 中的 event 字段区分 message / message_end / node_* / error
//  5. Agent 显式标记 allowAnonymous 时允许空 apiKey
type Adapter struct {
	core.Base
}

// NewAdapter 创建 Dify 协议适配器
func NewAdapter(opts ...core.Option) *Adapter {
	return &Adapter{Base: core.NewBase(opts...)}
}

// Provider 实现 core.Adapter 接口
func (a *Adapter) Provider() llm.ProviderType {
	return llm.ProviderTypeDify
}

// ValidateConfig 要求 endpoint 非空；apiKey 仅在 allowAnonymous 时可为空
func (a *Adapter) ValidateConfig(cfg *llm.AgentConfig) error {
	if cfg == nil {
		return llm.NewMissingFieldError("config")
	}
	return core.ValidateCommon(cfg, cfg.AllowAnonymous)
}

// BuildHeaders 构建 Bearer 认证请求头（匿名访问时不带 Authorization）
func (a *Adapter) BuildHeaders(cfg *llm.AgentConfig) map[string]string {
	return core.BearerHeaders(cfg.APIKey)
}

// BuildURL 返回 {endpoint}/chat-messages
func (a *Adapter) BuildURL(cfg *llm.AgentConfig, stream bool) string {
	return core.ResolveURL(cfg, stream)
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformRequest - 构建 Dify 请求体
// ═══════════════════════════════════════════════════════════════════════════

// TransformRequest 构建 Dify 请求体
//
//	{
//	  "query": "最近一条 user 消息",
//	  "inputs": {},
//	  "response_mode": "streaming",
//	  "user": "agent-<id>",
//	  "conversation_id": "...",
//	  "files": [{"type": "image", "transfer_method": "remote_url", "url": "..."}]
//	}
//
// 消息中没有 user 角色时返回 *llm.ValidationError，不会发起任何网络请求。
func (a *Adapter) TransformRequest(messages []llm.ChatMessage, cfg *llm.AgentConfig, stream bool, opts *llm.ChatOptions) (map[string]any, error) {
	last, ok := llm.LastUserMessage(messages)
	if !ok {
		return nil, llm.NewValidationError("messages", "dify request requires at least one user message")
	}
	if opts == nil {
		opts = &llm.ChatOptions{}
	}

	mode := "blocking"
	if stream {
		mode = "streaming"
	}

	inputs := opts.Variables
	if inputs == nil {
		inputs = map[string]any{}
	}

	req := map[string]any{
		"query":         last.Content,
		"inputs":        inputs,
		"response_mode": mode,
		"user":          userID(cfg, opts),
	}
	if opts.ChatID != "" {
		req["conversation_id"] = opts.ChatID
	}
	if len(opts.Files) > 0 {
		files := make([]map[string]any, 0, len(opts.Files))
		for _, f := range opts.Files {
			files = append(files, map[string]any{
				"type":            f.Type,
				"transfer_method": "remote_url",
				"url":             f.URL,
			})
		}
		req["files"] = files
	}
	return req, nil
}

// userID 返回稳定的调用方标识
func userID(cfg *llm.AgentConfig, opts *llm.ChatOptions) string {
	if opts.User != "" {
		return opts.User
	}
	return "agent-" + cfg.ID
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformResponse - 解析 Dify 响应
// ═══════════════════════════════════════════════════════════════════════════

// TransformResponse 解析 Dify blocking 响应
//
// Dify 响应格式：
//
//	{
//	  "message_id": "...",
//	  "conversation_id": "...",
//	  "answer": "...",
//	  "created_at": 1705407629,
//	  "metadata": {"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}}
//	}
func (a *Adapter) TransformResponse(raw []byte) (*llm.ChatResponse, error) {
	resp, err := core.DecodeObject(raw)
	if err != nil {
		return nil, err
	}

	out := &llm.ChatResponse{
		ID:      core.GetString(resp["message_id"]),
		Object:  llm.DefaultObject,
		Created: core.GetInt64(resp["created_at"]),
		ChatID:  core.GetString(resp["conversation_id"]),
		Usage:   ConvertUsage(resp),
		Choices: []llm.Choice{{
			Index: 0,
			Message: llm.ChoiceMessage{
				Role:    llm.RoleAssistant,
				Content: core.GetString(resp["answer"]),
			},
			FinishReason: "stop",
		}},
	}
	if out.ID == "" {
		out.ID = core.GetString(resp["id"])
	}
	if out.ID == "" {
		out.ID = a.NewID()
	}
	if out.Created == 0 {
		out.Created = a.Now()
	}
	return out, nil
}

// ConvertUsage 解析 metadata.usage
func ConvertUsage(resp map[string]any) *llm.Usage {
	usage := core.GetMap(core.GetPath(resp, "metadata", "usage"))
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
