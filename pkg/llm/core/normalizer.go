package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 流式归一化
// ═══════════════════════════════════════════════════════════════════════════

// Normalizer 流式归一化器
//
// 读取上游原始 SSE 字节流，借助适配器的帧分类与文本提取规则，
// 产出线性的 llm.StreamEvent 序列：
//
//  1. 每个数据帧提取文本，非空则发出 chunk
//  2. statusEvents 开启且帧为状态帧时发出 status
//  3. 结束哨兵或结束帧：发出唯一的 end 并停止读取
//  4. 读取失败、帧无法解码、上游错误帧或 ctx 取消：发出唯一的 error 并停止
//
// 流在没有结束标记的情况下正常 EOF 视为 end。
//
// 保证：每次交换恰好一个终止事件，终止事件之后不再发出任何事件。
// 事件在调用 Run 的 goroutine 中按帧到达顺序同步发出。
type Normalizer struct {
	adapter      Adapter
	statusEvents bool
	provider     string
}

// NewNormalizer 创建归一化器
func NewNormalizer(adapter Adapter, cfg *llm.AgentConfig) *Normalizer {
	n := &Normalizer{adapter: adapter}
	if cfg != nil {
		n.statusEvents = cfg.Features.StreamingConfig.StatusEvents
	}
	if adapter != nil {
		n.provider = adapter.Provider().String()
	}
	return n
}

// Run 消费 body 直到终止，返回发出的终止事件
//
// emit 不能为 nil。Run 不关闭 body。
func (n *Normalizer) Run(ctx context.Context, body io.Reader, emit func(*llm.StreamEvent)) *llm.StreamEvent {
	reader := NewFrameReader(body)

	for {
		if err := ctx.Err(); err != nil {
			return n.fail(emit, llm.NewExternalServiceError("stream cancelled", err))
		}

		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return finish(emit, llm.EndEvent())
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return n.fail(emit, llm.NewExternalServiceError("read stream", err))
		}

		if terminal := n.handle(ctx, frame, emit); terminal != nil {
			return terminal
		}
	}
}

// handle 处理单个帧，产生终止事件时返回该事件
func (n *Normalizer) handle(ctx context.Context, frame Frame, emit func(*llm.StreamEvent)) *llm.StreamEvent {
	data := strings.TrimSpace(frame.Data)
	if data == "" && frame.Event == "" {
		return nil
	}

	if n.adapter.IsTerminalData(data) {
		return finish(emit, llm.EndEvent())
	}

	var payload any
	if data != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return n.fail(emit, llm.NewDecodeError("stream frame", err))
		}
	}

	kind := n.adapter.ClassifyFrame(frame, payload)
	switch kind {
	case FrameSkip:
		return nil

	case FrameStatus:
		if !n.statusEvents {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return n.fail(emit, llm.NewExternalServiceError("stream cancelled", err))
		}
		emit(llm.StatusEvent(payload))
		return nil

	case FrameError:
		return n.fail(emit, llm.NewExternalServiceError("upstream stream error", errors.New(ErrorMessage(payload))))

	default:
		if text := n.adapter.TransformStreamChunk(payload); text != "" {
			if err := ctx.Err(); err != nil {
				return n.fail(emit, llm.NewExternalServiceError("stream cancelled", err))
			}
			emit(llm.ChunkEvent(text))
		}
		if kind == FrameEnd {
			return finish(emit, llm.EndEvent())
		}
		return nil
	}
}

func (n *Normalizer) fail(emit func(*llm.StreamEvent), err error) *llm.StreamEvent {
	var ext *llm.ExternalServiceError
	if errors.As(err, &ext) && ext.Provider == "" {
		ext.WithProvider(n.provider)
	}
	return finish(emit, llm.ErrorEvent(err))
}

func finish(emit func(*llm.StreamEvent), ev *llm.StreamEvent) *llm.StreamEvent {
	emit(ev)
	return ev
}
