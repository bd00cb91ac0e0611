package gateway

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protect"
)

// maxErrorBody 非 2xx 流式响应最多读取的错误体字节数
const maxErrorBody = 64 << 10

// ═══════════════════════════════════════════════════════════════════════════
// 回调
// ═══════════════════════════════════════════════════════════════════════════

// StreamCallbacks 流式回调
//
// 所有回调在调用 SendStreamMessage 的 goroutine 中按帧顺序同步执行。
// OnEnd 与 OnError 恰好触发其一，且之后不再触发任何回调。
// 未设置的回调会被忽略。
type StreamCallbacks struct {
	OnChunk  func(text string)
	OnStatus func(payload any)
	OnEnd    func()
	OnError  func(err error)
}

func (cb StreamCallbacks) dispatch(ev *llm.StreamEvent) {
	switch ev.Type {
	case llm.EventTypeChunk:
		if cb.OnChunk != nil {
			cb.OnChunk(ev.Text)
		}
	case llm.EventTypeStatus:
		if cb.OnStatus != nil {
			cb.OnStatus(ev.Payload)
		}
	case llm.EventTypeEnd:
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	case llm.EventTypeError:
		if cb.OnError != nil {
			cb.OnError(ev.Err)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 流式调用
// ═══════════════════════════════════════════════════════════════════════════

// SendStreamMessage 发送流式对话请求，阻塞直到交换结束
//
// 只有查找与校验失败会作为返回值同步返回（此时不触发任何回调，也没有网络调用）。
// 之后的所有失败，包括收到第一帧之前的超时或连接错误，都通过 OnError 传递，
// 方法本身返回 nil。
//
// ctx 取消会中断上游请求；取消后不再触发 OnChunk/OnStatus，并以一次 OnError 结束。
func (g *Gateway) SendStreamMessage(ctx context.Context, agentID string, messages []llm.ChatMessage, cb StreamCallbacks, opts *llm.ChatOptions) error {
	ex, err := g.prepareStream(ctx, agentID, messages, opts)
	if err != nil {
		return err
	}

	ex.run(cb.dispatch)
	return nil
}

// Stream 发送流式对话请求，以通道形式返回事件
//
// 查找与校验失败同步返回。通道在终止事件（end 或 error）之后关闭。
// 调用方停止消费时应取消 ctx：上游请求随之中断，通道关闭，
// 此时终止事件可能不会送达。
func (g *Gateway) Stream(ctx context.Context, agentID string, messages []llm.ChatMessage, opts *llm.ChatOptions) (<-chan *llm.StreamEvent, error) {
	ex, err := g.prepareStream(ctx, agentID, messages, opts)
	if err != nil {
		return nil, err
	}

	events := make(chan *llm.StreamEvent, g.bufferSize)
	go func() {
		defer close(events)

		var cancelled bool
		ex.run(func(ev *llm.StreamEvent) {
			if cancelled {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				cancelled = true
			}
		})
	}()

	return events, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 交换
// ═══════════════════════════════════════════════════════════════════════════

// exchange 一次已通过校验的流式交换
type exchange struct {
	g        *Gateway
	ctx      context.Context
	span     trace.Span
	start    time.Time
	cfg      *llm.AgentConfig
	adapter  core.Adapter
	req      *core.Request
	provider string
	logger   *zap.Logger
}

// prepareStream 完成调用前的全部同步步骤
func (g *Gateway) prepareStream(ctx context.Context, agentID string, messages []llm.ChatMessage, opts *llm.ChatOptions) (*exchange, error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "gateway.SendStreamMessage",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("gateway.mode", modeStream),
		),
	)

	fail := func(providerName string, err error) (*exchange, error) {
		g.logger.Debug("stream rejected", zap.String("agent_id", agentID), zap.Error(err))
		g.metrics.observeRequest(providerName, modeStream, err, time.Since(start))
		endSpan(span, err)
		return nil, err
	}

	cfg, adapter, err := g.resolve(ctx, agentID)
	if err != nil {
		return fail("unknown", err)
	}
	providerName := adapter.Provider().String()
	span.SetAttributes(attribute.String("llm.provider", providerName))

	req, err := buildRequest(adapter, cfg, messages, true, opts)
	if err != nil {
		return fail(providerName, err)
	}

	return &exchange{
		g:        g,
		ctx:      ctx,
		span:     span,
		start:    start,
		cfg:      cfg,
		adapter:  adapter,
		req:      req,
		provider: providerName,
		logger: g.logger.With(
			zap.String("agent_id", agentID),
			zap.String("provider", providerName),
			zap.Bool("stream", true),
		),
	}, nil
}

// run 打开上游流并驱动归一化器，恰好发出一个终止事件
func (ex *exchange) run(emit func(*llm.StreamEvent)) {
	var (
		counted = ex.g.metrics.countEvents(ex.provider, emit)
		body    io.ReadCloser
	)

	err := ex.g.protector.Execute(protect.WithKey(ex.ctx, ex.cfg.ID), func(ctx context.Context) error {
		resp, err := ex.g.transport.Stream(ctx, ex.req)
		if err != nil {
			return networkError(ex.provider, err)
		}
		if !isSuccess(resp.StatusCode) {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			return statusError(ex.provider, resp.StatusCode, resp.Header, data)
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		err = asExternal(ex.provider, err)
		ex.logger.Warn("open upstream stream failed", zap.Int("status", llm.GetStatusCode(err)), zap.Error(err))
		counted(llm.ErrorEvent(err))
		ex.finish(err)
		return
	}
	defer func() { _ = body.Close() }()

	terminal := core.NewNormalizer(ex.adapter, ex.cfg).Run(ex.ctx, body, counted)
	if terminal.Type == llm.EventTypeError {
		ex.logger.Warn("upstream stream failed", zap.Error(terminal.Err))
		ex.finish(terminal.Err)
		return
	}

	ex.logger.Debug("stream completed", zap.Duration("latency", time.Since(ex.start)))
	ex.finish(nil)
}

func (ex *exchange) finish(err error) {
	ex.g.metrics.observeRequest(ex.provider, modeStream, err, time.Since(ex.start))
	endSpan(ex.span, err)
}
