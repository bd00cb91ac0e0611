package fastgpt

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protocol/openai"
)

// ═══════════════════════════════════════════════════════════════════════════
// FastGPT 流式帧处理
// ═══════════════════════════════════════════════════════════════════════════
//
// FastGPT detail 模式流式格式：
//
//	event: flowNodeStatus
//	data: {"status":"running","name":"AI 对话"}
//
//	event: answer
//	data: {"choices":[{"delta":{"content":"你好"}}]}
//
//	event: flowResponses
//	data: [{"moduleName":"AI 对话", ...}]
//
//	event: answer
//	data: [DONE]
//
// 非 detail 模式没有 event 行，与 OpenAI 相同。
// finish_reason 之后仍可能有 flowResponses，因此只以 [DONE] 作为结束标记。

// FastGPT 事件名
const (
	EventAnswer         = "answer"
	EventFastAnswer     = "fastAnswer"
	EventFlowNodeStatus = "flowNodeStatus"
	EventFlowResponses  = "flowResponses"
	EventToolCall       = "toolCall"
	EventToolParams     = "toolParams"
	EventToolResponse   = "toolResponse"
	EventInteractive    = "interactive"
	EventUpdateVars     = "updateVariables"
	EventError          = "error"
)

// ClassifyFrame 按 event 名判断帧类别
func (a *Adapter) ClassifyFrame(frame core.Frame, payload any) core.FrameKind {
	switch frame.Event {
	case EventFlowNodeStatus, EventFlowResponses, EventToolCall, EventToolParams,
		EventToolResponse, EventInteractive, EventUpdateVars:
		return core.FrameStatus
	case EventError:
		return core.FrameError
	case "", EventAnswer, EventFastAnswer:
		if frame.Event == "" && core.GetPath(payload, "error") != nil {
			return core.FrameError
		}
		return core.FrameData
	default:
		return core.FrameSkip
	}
}

// IsTerminalData 检查 [DONE] 终止信号
func (a *Adapter) IsTerminalData(data string) bool {
	return data == openai.DoneSentinel
}
