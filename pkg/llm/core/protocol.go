package core

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 协议适配器接口
// ═══════════════════════════════════════════════════════════════════════════

// Adapter 协议适配器接口
//
// 每个上游 Provider 实现此接口，负责统一模型与该 Provider 线上格式之间的互转。
//
// 职责边界：
//   - ✅ 负责：配置校验、请求头、请求体、响应与流式帧的转换
//   - ❌ 不负责：HTTP 通信、重试熔断、Agent 查找
//
// 实现必须是无状态的：构造后不可变，可被任意数量的 goroutine 并发使用，
// 所有方法都是纯内存计算，不做任何 I/O。
type Adapter interface {
	// Provider 返回适配器对应的 Provider 类型（Registry 的键）
	Provider() llm.ProviderType

	// ValidateConfig 校验 Agent 配置
	//
	// 返回 nil 表示配置可用；否则返回 *llm.ValidationError，Field 指明出错字段。
	ValidateConfig(cfg *llm.AgentConfig) error

	// BuildHeaders 构建请求头，总是包含 Content-Type: application/json
	BuildHeaders(cfg *llm.AgentConfig) map[string]string

	// BuildURL 构建请求地址
	BuildURL(cfg *llm.AgentConfig, stream bool) string

	// TransformRequest 将统一消息转换为上游请求体
	//
	// 相同输入必须得到结构相同的请求体（注入的 ID 生成器除外）。
	TransformRequest(messages []llm.ChatMessage, cfg *llm.AgentConfig, stream bool, opts *llm.ChatOptions) (map[string]any, error)

	// TransformResponse 将上游同步响应转换为统一响应
	//
	// 缺失字段使用默认值补齐；只有非 JSON 或顶层结构错误时返回 *llm.DecodeError。
	TransformResponse(raw []byte) (*llm.ChatResponse, error)

	// TransformStreamChunk 提取单个流式帧中的文本增量，缺失时返回空字符串
	TransformStreamChunk(payload any) string

	// ClassifyFrame 判断流式帧的类别（数据、状态、结束、错误、忽略）
	ClassifyFrame(frame Frame, payload any) FrameKind

	// IsTerminalData 检查未解析的 data 内容是否为结束哨兵（如 OpenAI 的 [DONE]）
	IsTerminalData(data string) bool
}

// ═══════════════════════════════════════════════════════════════════════════
// 流式帧分类
// ═══════════════════════════════════════════════════════════════════════════

// FrameKind 流式帧类别
type FrameKind int

const (
	// FrameData 普通数据帧，可能携带文本增量
	FrameData FrameKind = iota

	// FrameStatus 状态帧（FastGPT flowNodeStatus、Dify node_started 等）
	FrameStatus

	// FrameEnd 结束帧，文本增量（如有）仍会先于 end 事件发出
	FrameEnd

	// FrameError 上游在流中报告的错误
	FrameError

	// FrameSkip 心跳等无需处理的帧
	FrameSkip
)

// String 返回类别名称
func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "data"
	case FrameStatus:
		return "status"
	case FrameEnd:
		return "end"
	case FrameError:
		return "error"
	case FrameSkip:
		return "skip"
	default:
		return "unknown"
	}
}
