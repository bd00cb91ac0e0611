package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/directory"
)

// ═══════════════════════════════════════════════════════════════════════════
// 测试替身
// ═══════════════════════════════════════════════════════════════════════════

// fakeTransport 记录调用次数的传输层
type fakeTransport struct {
	mu       sync.Mutex
	calls    int
	requests []*core.Request

	do     func(ctx context.Context, req *core.Request) (*core.Response, error)
	stream func(ctx context.Context, req *core.Request) (*core.StreamResponse, error)
}

func (f *fakeTransport) record(req *core.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTransport) LastRequest() *core.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeTransport) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	f.record(req)
	if f.do == nil {
		return jsonResponse(http.StatusOK, `{}`), nil
	}
	return f.do(ctx, req)
}

func (f *fakeTransport) Stream(ctx context.Context, req *core.Request) (*core.StreamResponse, error) {
	f.record(req)
	if f.stream == nil {
		return sseResponse(""), nil
	}
	return f.stream(ctx, req)
}

var _ core.Transport = (*fakeTransport)(nil)

func jsonResponse(status int, body string) *core.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &core.Response{StatusCode: status, Header: h, Body: []byte(body)}
}

func sseResponse(body string) *core.StreamResponse {
	return &core.StreamResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// faultReader 读完 data 后返回 err
type faultReader struct {
	r   io.Reader
	err error
}

func (f *faultReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

// ═══════════════════════════════════════════════════════════════════════════
// 测试夹具
// ═══════════════════════════════════════════════════════════════════════════

func fastgptAgent() llm.AgentConfig {
	return llm.AgentConfig{
		ID:       "a1",
		Provider: llm.ProviderTypeFastGPT,
		Endpoint: "http://x",
		APIKey:   "k",
		IsActive: true,
	}
}

func openaiAgent() llm.AgentConfig {
	return llm.AgentConfig{
		ID:       "gpt",
		Provider: llm.ProviderTypeOpenAI,
		Endpoint: "https://api.openai.com/v1",
		APIKey:   "sk-test",
		Model:    "gpt-4o",
		IsActive: true,
	}
}

func anthropicAgent() llm.AgentConfig {
	return llm.AgentConfig{
		ID:       "claude",
		Provider: llm.ProviderTypeAnthropic,
		Endpoint: "https://api.anthropic.com/v1",
		APIKey:   "sk-ant",
		Model:    "claude-3-5-sonnet",
		IsActive: true,
	}
}

func difyAgent() llm.AgentConfig {
	return llm.AgentConfig{
		ID:       "dify",
		Provider: llm.ProviderTypeDify,
		Endpoint: "https://api.dify.ai/v1",
		APIKey:   "app-key",
		IsActive: true,
	}
}

func userMessages(text string) []llm.ChatMessage {
	return []llm.ChatMessage{{Role: llm.RoleUser, Content: text}}
}

// newTestGateway 创建使用 fakeTransport 的网关
func newTestGateway(t *testing.T, ft *fakeTransport, agents ...llm.AgentConfig) *Gateway {
	t.Helper()

	dir, err := directory.NewStatic(agents...)
	require.NoError(t, err)

	return New(dir,
		WithTransport(ft),
		WithLogger(zaptest.NewLogger(t)),
	)
}

// recorder 记录流式回调
type recorder struct {
	mu     sync.Mutex
	events []string
	chunks []string
	status []any
	ends   int
	errs   []error
}

func (r *recorder) callbacks() StreamCallbacks {
	return StreamCallbacks{
		OnChunk: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "chunk")
			r.chunks = append(r.chunks, text)
		},
		OnStatus: func(payload any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "status")
			r.status = append(r.status, payload)
		},
		OnEnd: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "end")
			r.ends++
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "error")
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) terminals() int {
	return r.ends + len(r.errs)
}

// lastIsOnlyTerminal 终止事件恰好一个且位于最后
func (r *recorder) lastIsOnlyTerminal() bool {
	if r.terminals() != 1 || len(r.events) == 0 {
		return false
	}
	last := r.events[len(r.events)-1]
	return last == "end" || last == "error"
}
