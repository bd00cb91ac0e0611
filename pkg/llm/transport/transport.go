// Package transport 提供基于 resty 的 core.Transport 实现
//
// 同步请求与流式请求使用两个独立的 resty 客户端：
// 同步客户端带整体超时；流式客户端不设整体超时（否则会截断长流），
// 生命周期完全由调用方的 ctx 控制。
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 传输层配置
type Config struct {
	// Timeout 同步请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 附加到每个请求的额外请求头（请求自身的同名头优先）
	Headers map[string]string

	// HTTPClient 自定义底层 http.Client（可选，测试或自定义 TLS 时使用）
	HTTPClient *http.Client
}

// Client resty 传输客户端
//
// 线程安全，可被多个网关共享。
type Client struct {
	buffered  *resty.Client
	streaming *resty.Client
}

// New 创建传输客户端
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	buffered := newResty(cfg)
	buffered.SetTimeout(timeout)

	return &Client{
		buffered:  buffered,
		streaming: newResty(cfg),
	}
}

func newResty(cfg *Config) *resty.Client {
	var r *resty.Client
	if cfg.HTTPClient != nil {
		r = resty.NewWithClient(cfg.HTTPClient)
	} else {
		r = resty.New()
	}
	for k, v := range cfg.Headers {
		r.SetHeader(k, v)
	}
	return r
}

// ═══════════════════════════════════════════════════════════════════════════
// Transport 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Do 发送请求并缓冲完整响应体
//
// 非 2xx 状态正常返回，由调用方判定。
func (c *Client) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	resp, err := c.buffered.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetBody(req.Body).
		Execute(method(req), req.URL)
	if err != nil {
		return nil, err
	}

	return &core.Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// Stream 发送请求并返回未读取的响应体
//
// 调用方负责关闭 Body；ctx 取消会中断读取。
func (c *Client) Stream(ctx context.Context, req *core.Request) (*core.StreamResponse, error) {
	resp, err := c.streaming.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetHeader("Accept", "text/event-stream").
		SetBody(req.Body).
		SetDoNotParseResponse(true).
		Execute(method(req), req.URL)
	if err != nil {
		return nil, err
	}

	return &core.StreamResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.RawBody(),
	}, nil
}

func method(req *core.Request) string {
	if req.Method == "" {
		return http.MethodPost
	}
	return req.Method
}

// 确保 Client 实现了 core.Transport 接口
var _ core.Transport = (*Client)(nil)
