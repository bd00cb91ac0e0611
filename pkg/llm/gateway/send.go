package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protect"
)

const (
	modeSync   = "sync"
	modeStream = "stream"
)

// ═══════════════════════════════════════════════════════════════════════════
// 同步调用
// ═══════════════════════════════════════════════════════════════════════════

// SendMessage 发送非流式对话请求
//
// 错误分类：
//   - 查找与校验失败（AGENT_NOT_FOUND、AGENT_INACTIVE、UNSUPPORTED_PROVIDER、
//     VALIDATION_ERROR）在任何网络调用之前返回
//   - 超时、连接失败、非 2xx 状态返回 *llm.ExternalServiceError
//   - 成功响应无法解码返回 *llm.DecodeError
func (g *Gateway) SendMessage(ctx context.Context, agentID string, messages []llm.ChatMessage, opts *llm.ChatOptions) (resp *llm.ChatResponse, err error) {
	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "gateway.SendMessage",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("gateway.mode", modeSync),
		),
	)
	providerName := "unknown"
	defer func() {
		g.metrics.observeRequest(providerName, modeSync, err, time.Since(start))
		endSpan(span, err)
	}()

	cfg, adapter, err := g.resolve(ctx, agentID)
	if err != nil {
		g.logger.Debug("send rejected", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}
	providerName = adapter.Provider().String()
	span.SetAttributes(attribute.String("llm.provider", providerName))

	logger := g.logger.With(
		zap.String("agent_id", agentID),
		zap.String("provider", providerName),
		zap.Bool("stream", false),
	)

	req, err := buildRequest(adapter, cfg, messages, false, opts)
	if err != nil {
		return nil, err
	}

	var raw *core.Response
	err = g.protector.Execute(protect.WithKey(ctx, cfg.ID), func(ctx context.Context) error {
		r, err := g.transport.Do(ctx, req)
		if err != nil {
			return networkError(providerName, err)
		}
		if !isSuccess(r.StatusCode) {
			return statusError(providerName, r.StatusCode, r.Header, r.Body)
		}
		raw = r
		return nil
	})
	if err != nil {
		err = asExternal(providerName, err)
		logger.Warn("upstream call failed", zap.Int("status", llm.GetStatusCode(err)), zap.Error(err))
		return nil, err
	}

	resp, err = adapter.TransformResponse(raw.Body)
	if err != nil {
		logger.Warn("decode upstream response failed", zap.Error(err))
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = cfg.Model
	}

	logger.Debug("send completed",
		zap.String("response_id", resp.ID),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求构建与错误映射
// ═══════════════════════════════════════════════════════════════════════════

// buildRequest 通过适配器构建传输请求
func buildRequest(adapter core.Adapter, cfg *llm.AgentConfig, messages []llm.ChatMessage, stream bool, opts *llm.ChatOptions) (*core.Request, error) {
	if err := llm.ValidateMessages(messages); err != nil {
		return nil, err
	}

	body, err := adapter.TransformRequest(messages, cfg, stream, opts)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewValidationError("request", "request body is not JSON-encodable: "+err.Error())
	}

	return &core.Request{
		Method:  http.MethodPost,
		URL:     adapter.BuildURL(cfg, stream),
		Headers: adapter.BuildHeaders(cfg),
		Body:    payload,
	}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// networkError 没有拿到 HTTP 响应的传输错误
func networkError(providerName string, err error) error {
	if llm.KindOf(err) != "" {
		return err
	}
	return llm.NewExternalServiceError("upstream request failed", err).WithProvider(providerName)
}

// statusError 非 2xx 响应
func statusError(providerName string, status int, header http.Header, body []byte) error {
	e := llm.NewStatusError(status, string(body)).WithProvider(providerName)
	if header != nil {
		if id := requestID(header); id != "" {
			e.WithRequestID(id)
		}
	}
	return e
}

func requestID(header http.Header) string {
	for _, key := range []string{"X-Request-Id", "Request-Id", "X-Amzn-Requestid"} {
		if v := header.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// asExternal 保证保护层返回的错误属于错误分类（如重试等待期间 ctx 取消）
func asExternal(providerName string, err error) error {
	if llm.KindOf(err) != "" {
		return err
	}
	return llm.NewExternalServiceError("upstream call aborted", err).WithProvider(providerName)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := llm.KindOf(err); kind != "" {
			span.SetAttributes(attribute.String("error.kind", string(kind)))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
