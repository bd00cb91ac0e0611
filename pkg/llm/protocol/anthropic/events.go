package anthropic

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Anthropic 流式帧处理
// ═══════════════════════════════════════════════════════════════════════════
//
// Anthropic 流式格式：
//   - 有显式事件类型（event: message_start, content_block_delta 等）
//   - data 中的 type 字段与 event 行一致
//   - 无终止字符串，以 message_stop 事件结束
//
// 事件类型：
//   - message_start:        消息开始
//   - content_block_start:  内容块开始
//   - content_block_delta:  内容块增量（text_delta、input_json_delta、thinking_delta）
//   - content_block_stop:   内容块结束
//   - message_delta:        消息元数据增量（stop_reason、usage）
//   - message_stop:         消息结束
//   - ping:                 心跳
//   - error:                错误

// ClassifyFrame 根据事件类型判断帧类别
func (a *Adapter) ClassifyFrame(frame core.Frame, payload any) core.FrameKind {
	eventType := frame.Event
	if eventType == "" {
		eventType = core.GetString(core.GetPath(payload, "type"))
	}

	switch eventType {
	case "content_block_delta":
		return core.FrameData
	case "message_stop":
		return core.FrameEnd
	case "error":
		return core.FrameError
	default:
		// message_start、content_block_start、content_block_stop、message_delta、ping
		return core.FrameSkip
	}
}

// TransformStreamChunk 提取 text_delta 中的文本
//
// thinking_delta、input_json_delta 不产生文本。
func (a *Adapter) TransformStreamChunk(payload any) string {
	if core.GetString(core.GetPath(payload, "delta", "type")) != "text_delta" {
		return ""
	}
	return core.GetString(core.GetPath(payload, "delta", "text"))
}

// IsTerminalData Anthropic 不使用数据字符串终止信号
func (a *Adapter) IsTerminalData(string) bool {
	return false
}
