package core

import (
	"context"
	"io"
	"net/http"
)

// ═══════════════════════════════════════════════════════════════════════════
// 传输层与保护层接口
// ═══════════════════════════════════════════════════════════════════════════

// Request 传输请求
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response 缓冲响应
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StreamResponse 流式响应，调用方负责关闭 Body
type StreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Transport HTTP 传输接口
//
// 只负责发送请求和返回原始响应；非 2xx 状态不视为错误，由调用方判定。
// 返回 error 仅表示没有拿到 HTTP 响应（超时、连接失败、DNS 等）。
type Transport interface {
	// Do 发送请求并缓冲完整响应体
	Do(ctx context.Context, req *Request) (*Response, error)

	// Stream 发送请求并返回未读取的响应体
	//
	// ctx 取消时必须中断响应体读取。
	Stream(ctx context.Context, req *Request) (*StreamResponse, error)
}

// Protector 保护层接口（超时、重试、熔断）
//
// 网关把单次上游调用包装为 op 交给 Protector 执行，不关心其内部策略。
// op 可能被执行多次；Execute 返回最后一次执行的错误或保护层自身的错误。
type Protector interface {
	Execute(ctx context.Context, op func(ctx context.Context) error) error
}

// ProtectorFunc 函数形式的 Protector
type ProtectorFunc func(ctx context.Context, op func(ctx context.Context) error) error

// Execute 实现 Protector 接口
func (f ProtectorFunc) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	return f(ctx, op)
}
