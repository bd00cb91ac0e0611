package fastgpt

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protocol/openai"
)

// ═══════════════════════════════════════════════════════════════════════════
// FastGPT 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter FastGPT 应用 API 协议适配器
//
// FastGPT 的响应与 OpenAI choices 结构兼容，因此复用 openai.Adapter 的
// 认证、响应解析与文本增量提取，只覆盖请求体与流式帧分类：
//  1. 请求：{chatId, stream, detail, messages, variables}
//  2. chatId 缺省时由注入的 ID 生成器生成
//  3. 流式：detail 模式下带 event 行（answer、flowNodeStatus、flowResponses ...），
//     以 data: [DONE] 结束
type Adapter struct {
	*openai.Adapter
}

// NewAdapter 创建 FastGPT 协议适配器
func NewAdapter(opts ...core.Option) *Adapter {
	return &Adapter{Adapter: openai.NewAdapter(opts...)}
}

// Provider 实现 core.Adapter 接口
func (a *Adapter) Provider() llm.ProviderType {
	return llm.ProviderTypeFastGPT
}

// ═══════════════════════════════════════════════════════════════════════════
// TransformRequest - 构建 FastGPT 请求体
// ═══════════════════════════════════════════════════════════════════════════

// TransformRequest 构建 FastGPT 请求体
//
//	{
//	  "chatId": "...",
//	  "stream": true,
//	  "detail": false,
//	  "messages": [{"role": "user", "content": "..."}],
//	  "variables": {"uid": "..."}
//	}
//
// detail 取 opts.Detail；未设置且 Agent 开启了 supportsDetail 与
// streamingConfig.flowNodeStatus 时，流式请求自动打开 detail 以获取节点状态。
//
// Agent 支持文件且 opts.Files 非空时，最后一条 user 消息改为内容数组，附带文件链接。
func (a *Adapter) TransformRequest(messages []llm.ChatMessage, cfg *llm.AgentConfig, stream bool, opts *llm.ChatOptions) (map[string]any, error) {
	if opts == nil {
		opts = &llm.ChatOptions{}
	}

	chatID := opts.ChatID
	if chatID == "" {
		chatID = a.NewID()
	}

	apiMessages := core.MapMessages(messages)
	if len(opts.Files) > 0 && (cfg.Features.SupportsFiles || cfg.Features.SupportsImages) {
		attachFiles(apiMessages, messages, opts.Files)
	}

	req := map[string]any{
		"chatId":   chatID,
		"stream":   stream,
		"messages": apiMessages,
	}

	switch {
	case opts.Detail != nil:
		req["detail"] = *opts.Detail
	case stream && cfg.Features.SupportsDetail && cfg.Features.StreamingConfig.FlowNodeStatus:
		req["detail"] = true
	}

	if opts.Variables != nil {
		req["variables"] = opts.Variables
	}

	return req, nil
}

// attachFiles 将文件附加到最后一条 user 消息
//
// FastGPT 内容数组格式：
//
//	[{"type":"text","text":"..."}, {"type":"image_url","image_url":{"url":"..."}}, {"type":"file_url","url":"..."}]
func attachFiles(apiMessages []map[string]any, messages []llm.ChatMessage, files []llm.FileRef) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llm.RoleUser {
			continue
		}
		parts := []map[string]any{{"type": "text", "text": messages[i].Content}}
		for _, f := range files {
			if f.Type == "image" {
				parts = append(parts, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": f.URL},
				})
				continue
			}
			parts = append(parts, map[string]any{
				"type": "file_url",
				"url":  f.URL,
			})
		}
		apiMessages[i]["content"] = parts
		return
	}
}

// 确保 Adapter 实现了 core.Adapter 接口
var _ core.Adapter = (*Adapter)(nil)
