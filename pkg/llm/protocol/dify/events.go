package dify

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Dify 流式帧处理
// ═══════════════════════════════════════════════════════════════════════════
//
// Dify 流式格式（无 event 行，类型在 data.event 中）：
//
//	data: {"event": "workflow_started", ...}
//	data: {"event": "message", "answer": "你", ...}
//	data: {"event": "message_end", "metadata": {...}}

// Dify 事件名
const (
	EventMessage          = "message"
	EventAgentMessage     = "agent_message"
	EventMessageEnd       = "message_end"
	EventError            = "error"
	EventPing             = "ping"
	EventWorkflowStarted  = "workflow_started"
	EventWorkflowFinished = "workflow_finished"
	EventNodeStarted      = "node_started"
	EventNodeFinished     = "node_finished"
	EventAgentThought     = "agent_thought"
	EventMessageFile      = "message_file"
)

// ClassifyFrame 根据 data.event 判断帧类别
func (a *Adapter) ClassifyFrame(_ core.Frame, payload any) core.FrameKind {
	switch core.GetString(core.GetPath(payload, "event")) {
	case EventMessage, EventAgentMessage:
		return core.FrameData
	case EventMessageEnd:
		return core.FrameEnd
	case EventError:
		return core.FrameError
	case EventWorkflowStarted, EventWorkflowFinished, EventNodeStarted,
		EventNodeFinished, EventAgentThought, EventMessageFile:
		return core.FrameStatus
	default:
		// ping、tts_message、tts_message_end 以及未知事件
		return core.FrameSkip
	}
}

// TransformStreamChunk 提取 answer 增量，缺失时返回空字符串
func (a *Adapter) TransformStreamChunk(payload any) string {
	return core.GetString(core.GetPath(payload, "answer"))
}

// IsTerminalData Dify 不使用数据字符串终止信号
func (a *Adapter) IsTerminalData(string) bool {
	return false
}
