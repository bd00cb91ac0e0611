package openai

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// OpenAI 流式帧处理
// ═══════════════════════════════════════════════════════════════════════════
//
// OpenAI 流式格式：
//   - 无显式事件类型（event 行为空）
//   - 数据结构：choices[0].delta
//   - 终止：finish_reason 非空，或 data: [DONE]
//
//	data: {"choices":[{"delta":{"content":"Hel"}}]}
//	data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
//	data: [DONE]

// DoneSentinel OpenAI 流结束哨兵
const DoneSentinel = "[DONE]"

// TransformStreamChunk 提取 choices[0].delta.content，缺失时返回空字符串
func (a *Adapter) TransformStreamChunk(payload any) string {
	return DeltaContent(payload)
}

// ClassifyFrame 判断帧类别
//
//   - 含 error 字段：错误帧
//   - choices[0].finish_reason 非空：结束帧
//   - 其他：数据帧
func (a *Adapter) ClassifyFrame(_ core.Frame, payload any) core.FrameKind {
	if core.GetPath(payload, "error") != nil {
		return core.FrameError
	}
	if FinishReason(payload) != "" {
		return core.FrameEnd
	}
	return core.FrameData
}

// IsTerminalData 检查 [DONE] 终止信号
func (a *Adapter) IsTerminalData(data string) bool {
	return data == DoneSentinel
}

// DeltaContent 读取 choices[0].delta.content
func DeltaContent(payload any) string {
	return core.GetString(core.GetPath(payload, "choices", 0, "delta", "content"))
}

// FinishReason 读取 choices[0].finish_reason
func FinishReason(payload any) string {
	return core.GetString(core.GetPath(payload, "choices", 0, "finish_reason"))
}
