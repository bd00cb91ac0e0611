package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Upstream
// ═══════════════════════════════════════════════════════════════════════════

// Call 一次调用记录
type Call struct {
	URL     string
	Headers map[string]string
	Body    map[string]any
	Stream  bool
	Input   string // 请求中最后一条用户消息
}

// Upstream 脚本化的 Mock 上游
//
// 实现 core.Transport，按请求 URL 判断 wire 格式并返回对应 Provider 形状的响应：
//   - .../messages      Anthropic
//   - .../chat-messages Dify
//   - 其他              OpenAI 兼容（请求体带 chatId 时按 FastGPT 处理）
//
// 线程安全。
type Upstream struct {
	mu sync.Mutex

	response  string
	responses []string
	respIdx   int

	scenarios map[string]*scenarioState
	active    string

	delay  time.Duration
	err    error
	status int

	calls []Call
	seq   int
	now   func() time.Time
}

// Option Upstream 配置选项
type Option func(*Upstream)

// WithResponse 设置固定响应
func WithResponse(text string) Option {
	return func(u *Upstream) {
		u.response = text
	}
}

// WithResponses 设置循环响应列表
func WithResponses(texts ...string) Option {
	return func(u *Upstream) {
		u.responses = texts
	}
}

// WithDelay 设置响应延迟
func WithDelay(d time.Duration) Option {
	return func(u *Upstream) {
		u.delay = d
	}
}

// WithError 模拟网络层错误
func WithError(err error) Option {
	return func(u *Upstream) {
		u.err = err
	}
}

// WithStatus 模拟非 2xx 响应
func WithStatus(code int) Option {
	return func(u *Upstream) {
		u.status = code
	}
}

// WithClock 设置时钟（用于固定 created 字段）
func WithClock(now func() time.Time) Option {
	return func(u *Upstream) {
		if now != nil {
			u.now = now
		}
	}
}

// New 创建 Mock 上游
//
// 不传任何选项时加载内嵌的示例配置。
func New(opts ...Option) *Upstream {
	u := &Upstream{
		response: "This is a mock response.",
		now:      time.Now,
	}

	if len(opts) == 0 {
		if cfg, err := LoadExampleConfig(); err == nil {
			applyConfig(u, cfg)
		}
	}

	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UseScenario 指定后续调用使用的场景，空字符串表示回到默认响应
func (u *Upstream) UseScenario(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.active = name
}

// ResetScenario 将场景重置到第一轮
func (u *Upstream) ResetScenario(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if s, ok := u.scenarios[name]; ok {
		s.turnIdx = 0
	}
}

// GetScenarioNames 返回全部场景名称（已排序）
func (u *Upstream) GetScenarioNames() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	names := make([]string, 0, len(u.scenarios))
	for name := range u.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetScenarioTurnIndex 返回场景当前轮次，场景不存在返回 -1
func (u *Upstream) GetScenarioTurnIndex(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if s, ok := u.scenarios[name]; ok {
		return s.turnIdx
	}
	return -1
}

// ═══════════════════════════════════════════════════════════════════════════
// 调用记录
// ═══════════════════════════════════════════════════════════════════════════

// Calls 返回全部调用记录
func (u *Upstream) Calls() []Call {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Call(nil), u.calls...)
}

// CallCount 返回调用次数
func (u *Upstream) CallCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

// LastCall 返回最后一次调用，没有调用时返回 nil
func (u *Upstream) LastCall() *Call {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.calls) == 0 {
		return nil
	}
	c := u.calls[len(u.calls)-1]
	return &c
}

// GetLastInput 返回最后一次调用的用户输入
func (u *Upstream) GetLastInput() string {
	if c := u.LastCall(); c != nil {
		return c.Input
	}
	return ""
}

// GetAllInputs 返回全部调用的用户输入
func (u *Upstream) GetAllInputs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	inputs := make([]string, 0, len(u.calls))
	for _, c := range u.calls {
		inputs = append(inputs, c.Input)
	}
	return inputs
}

// Reset 清空调用记录
func (u *Upstream) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = nil
}

// ═══════════════════════════════════════════════════════════════════════════
// core.Transport 实现
// ═══════════════════════════════════════════════════════════════════════════

// Do 返回缓冲响应
func (u *Upstream) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	ex, err := u.begin(ctx, req, false)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Request-Id", ex.requestID)

	if ex.status != 0 {
		return &core.Response{StatusCode: ex.status, Header: header, Body: errorBody(ex.status)}, nil
	}

	body, err := json.Marshal(ex.wire.response(ex))
	if err != nil {
		return nil, err
	}
	return &core.Response{StatusCode: http.StatusOK, Header: header, Body: body}, nil
}

// Stream 返回 SSE 响应体
func (u *Upstream) Stream(ctx context.Context, req *core.Request) (*core.StreamResponse, error) {
	ex, err := u.begin(ctx, req, true)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-Request-Id", ex.requestID)

	if ex.status != 0 {
		header.Set("Content-Type", "application/json")
		return &core.StreamResponse{
			StatusCode: ex.status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(string(errorBody(ex.status)))),
		}, nil
	}

	header.Set("Content-Type", "text/event-stream")
	return &core.StreamResponse{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(ex.wire.stream(ex))),
	}, nil
}

// exchange 单次调用的渲染结果
type exchange struct {
	wire      wireFormat
	body      map[string]any
	text      string
	nodes     []string
	requestID string
	seq       int
	created   int64
	status    int
}

// begin 记录调用、等待延迟并选定本次响应
func (u *Upstream) begin(ctx context.Context, req *core.Request, stream bool) (*exchange, error) {
	var body map[string]any
	if len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return nil, &jsonBodyError{err: err}
		}
	}

	wire := detectWire(req.URL, body)
	input := wire.input(body)

	u.mu.Lock()
	u.calls = append(u.calls, Call{
		URL:     req.URL,
		Headers: req.Headers,
		Body:    body,
		Stream:  stream,
		Input:   input,
	})
	u.seq++
	delay, simErr, status := u.delay, u.err, u.status
	ex := &exchange{
		wire:      wire,
		body:      body,
		requestID: fmt.Sprintf("mock-req-%d", u.seq),
		seq:       u.seq,
		created:   u.now().Unix(),
		status:    status,
	}
	ex.text, ex.nodes = u.nextTurn(input)
	u.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if simErr != nil {
		return nil, simErr
	}
	return ex, nil
}

// nextTurn 选出本次响应文本（持锁调用）
func (u *Upstream) nextTurn(input string) (string, []string) {
	if u.active != "" {
		if s, ok := u.scenarios[u.active]; ok {
			turn := s.next(input)
			return turn.Assistant, turn.Nodes
		}
	}

	if len(u.responses) > 0 {
		text := u.responses[u.respIdx%len(u.responses)]
		u.respIdx++
		return text, nil
	}
	return u.response, nil
}

// jsonBodyError 请求体不是 JSON 对象
type jsonBodyError struct {
	err error
}

func (e *jsonBodyError) Error() string {
	return "mock upstream: request body is not a JSON object: " + e.err.Error()
}

func (e *jsonBodyError) Unwrap() error {
	return e.err
}

func errorBody(status int) []byte {
	b, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf("mock upstream status %d", status),
			"type":    http.StatusText(status),
		},
	})
	return b
}

// 确保 Upstream 实现了 core.Transport 接口
var _ core.Transport = (*Upstream)(nil)
