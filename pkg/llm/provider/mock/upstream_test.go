package mock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

func chatRequest(t *testing.T, url string, body map[string]any) *core.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return &core.Request{Method: http.MethodPost, URL: url, Body: b}
}

func openAIBody(text string) map[string]any {
	return map[string]any{
		"model":    "gpt-4o",
		"messages": []any{map[string]any{"role": "user", "content": text}},
	}
}

func readAll(t *testing.T, resp *core.StreamResponse) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// ═══════════════════════════════════════════════════════════════════════════
// 构造与配置
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_LoadsExampleConfig(t *testing.T) {
	up := New()

	assert.Equal(t, []string{"booking", "echo", "greeting", "workflow"}, up.GetScenarioNames())
	assert.Equal(t, 0, up.GetScenarioTurnIndex("booking"))
	assert.Equal(t, -1, up.GetScenarioTurnIndex("missing"))
}

func TestWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mock.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"default_response":"来自文件"}`), 0o600))

	up := New(WithConfigFile(path))
	resp, err := up.Do(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "来自文件")
}

func TestWithConfigFile_Missing(t *testing.T) {
	up := New(WithConfigFile(filepath.Join(t.TempDir(), "none.yaml")))

	_, err := up.Do(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoadConfigFromBytes_UnsupportedFormat(t *testing.T) {
	_, err := LoadConfigFromBytes([]byte("x"), "toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestWithConfig_SimulatedFaults(t *testing.T) {
	up := New(WithConfig(&Config{Delay: "1ms", SimulateStatus: http.StatusBadGateway}))

	resp, err := up.Do(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "mock upstream status 502")
}

// ═══════════════════════════════════════════════════════════════════════════
// 场景
// ═══════════════════════════════════════════════════════════════════════════

func TestScenario_AdvancesPerCall(t *testing.T) {
	up := New()
	up.UseScenario("booking")
	ctx := context.Background()

	want := []string{"几位？", "什么时间？", "预订完成！", "[场景已结束]"}
	for i, w := range want {
		resp, err := up.Do(ctx, chatRequest(t, "http://x/v1/chat/completions", openAIBody("turn")))
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(resp.Body, &out))
		assert.Equal(t, w, core.GetString(core.GetPath(out, "choices", 0, "message", "content")), "turn %d", i)
	}

	up.ResetScenario("booking")
	assert.Equal(t, 0, up.GetScenarioTurnIndex("booking"))
}

func TestScenario_Template(t *testing.T) {
	up := New()
	up.UseScenario("echo")

	resp, err := up.Do(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("天气如何")))
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "你说的是：天气如何")
}

func TestWithResponses_Cycle(t *testing.T) {
	up := New(WithResponses("a", "b"))
	ctx := context.Background()

	var got []string
	for range 3 {
		resp, err := up.Do(ctx, chatRequest(t, "http://x/v1/chat/completions", openAIBody("x")))
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(resp.Body, &out))
		got = append(got, core.GetString(core.GetPath(out, "choices", 0, "message", "content")))
	}
	assert.Equal(t, []string{"a", "b", "a"}, got)
}

// ═══════════════════════════════════════════════════════════════════════════
// Wire 格式
// ═══════════════════════════════════════════════════════════════════════════

func TestDo_WireFormats(t *testing.T) {
	fixed := time.Unix(1700000000, 0)

	tests := []struct {
		name  string
		url   string
		body  map[string]any
		paths map[string][]any
	}{
		{
			name: "openai",
			url:  "https://api.openai.com/v1/chat/completions",
			body: openAIBody("hi"),
			paths: map[string][]any{
				"ok":              {"choices", 0, "message", "content"},
				"gpt-4o":          {"model"},
				"stop":            {"choices", 0, "finish_reason"},
				"chat.completion": {"object"},
			},
		},
		{
			name: "anthropic",
			url:  "https://api.anthropic.com/v1/messages",
			body: map[string]any{"model": "claude", "messages": []any{map[string]any{"role": "user", "content": "hi"}}},
			paths: map[string][]any{
				"ok":       {"content", 0, "text"},
				"end_turn": {"stop_reason"},
				"claude":   {"model"},
			},
		},
		{
			name: "dify",
			url:  "https://api.dify.ai/v1/chat-messages",
			body: map[string]any{"query": "hi", "conversation_id": "c-1"},
			paths: map[string][]any{
				"ok":  {"answer"},
				"c-1": {"conversation_id"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := New(WithResponse("ok"), WithClock(func() time.Time { return fixed }))

			resp, err := up.Do(context.Background(), chatRequest(t, tt.url, tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "mock-req-1", resp.Header.Get("X-Request-Id"))

			var out map[string]any
			require.NoError(t, json.Unmarshal(resp.Body, &out))
			for want, path := range tt.paths {
				assert.Equal(t, want, core.GetString(core.GetPath(out, path...)), "path %v", path)
			}
			assert.Equal(t, "hi", up.GetLastInput())
		})
	}
}

func TestStream_OpenAI(t *testing.T) {
	up := New(WithResponse("你好世界，欢迎"))

	resp, err := up.Stream(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := readAll(t, resp)
	assert.Contains(t, body, `"content":"你好世界"`)
	assert.Contains(t, body, `"content":"，欢迎"`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.NotContains(t, body, "event:")
}

func TestStream_FastGPTDetail(t *testing.T) {
	up := New()
	up.UseScenario("workflow")

	body := openAIBody("查订单")
	body["chatId"] = "c1"
	body["detail"] = true

	resp, err := up.Stream(context.Background(), chatRequest(t, "http://x/api/v1/chat/completions", body))
	require.NoError(t, err)

	sse := readAll(t, resp)
	assert.Contains(t, sse, "event: flowNodeStatus\ndata: {\"name\":\"知识库搜索\",\"status\":\"running\"}")
	assert.Contains(t, sse, "event: flowResponses")
	assert.True(t, strings.HasSuffix(sse, "event: answer\ndata: [DONE]\n\n"))
	assert.Less(t, strings.Index(sse, "flowNodeStatus"), strings.Index(sse, "event: answer"))
}

func TestStream_Anthropic(t *testing.T) {
	up := New(WithResponse("hello"))

	resp, err := up.Stream(context.Background(), chatRequest(t, "http://x/v1/messages", openAIBody("hi")))
	require.NoError(t, err)

	sse := readAll(t, resp)
	assert.Contains(t, sse, "event: message_start")
	assert.Contains(t, sse, `"text":"hell"`)
	assert.True(t, strings.HasSuffix(sse, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"))
}

func TestStream_Dify(t *testing.T) {
	up := New(WithResponse("hi"))

	resp, err := up.Stream(context.Background(), chatRequest(t, "http://x/v1/chat-messages", map[string]any{"query": "q"}))
	require.NoError(t, err)

	sse := readAll(t, resp)
	assert.Contains(t, sse, `"event":"workflow_started"`)
	assert.Contains(t, sse, `"answer":"hi"`)
	assert.Contains(t, sse, `"event":"message_end"`)
}

// ═══════════════════════════════════════════════════════════════════════════
// 故障与记录
// ═══════════════════════════════════════════════════════════════════════════

func TestWithError(t *testing.T) {
	boom := errors.New("connection refused")
	up := New(WithError(boom))

	_, err := up.Do(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	assert.ErrorIs(t, err, boom)

	_, err = up.Stream(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, up.CallCount())
}

func TestWithStatus_Stream(t *testing.T) {
	up := New(WithStatus(http.StatusTooManyRequests))

	resp, err := up.Stream(context.Background(), chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "Too Many Requests")
}

func TestWithDelay_ContextCancel(t *testing.T) {
	up := New(WithDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := up.Do(ctx, chatRequest(t, "http://x/v1/chat/completions", openAIBody("hi")))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_InvalidBody(t *testing.T) {
	up := New()

	_, err := up.Do(context.Background(), &core.Request{URL: "http://x/v1/chat/completions", Body: []byte("[1,2]")})
	require.Error(t, err)
	assert.Equal(t, 0, up.CallCount())
}

func TestCallRecording(t *testing.T) {
	up := New(WithResponse("ok"))
	ctx := context.Background()
	assert.Nil(t, up.LastCall())

	req := chatRequest(t, "http://x/v1/chat/completions", openAIBody("first"))
	req.Headers = map[string]string{"Authorization": "Bearer k"}
	_, err := up.Do(ctx, req)
	require.NoError(t, err)

	_, err = up.Stream(ctx, chatRequest(t, "http://x/v1/chat/completions", map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": []any{
				map[string]any{"type": "text", "text": "second"},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "http://img"}},
			}},
			map[string]any{"role": "assistant", "content": "ignored"},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, up.GetAllInputs())
	calls := up.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer k", calls[0].Headers["Authorization"])
	assert.False(t, calls[0].Stream)
	assert.True(t, calls[1].Stream)

	up.Reset()
	assert.Equal(t, 0, up.CallCount())
}

func TestDetectWire(t *testing.T) {
	assert.Equal(t, wireDify, detectWire("http://x/v1/chat-messages?x=1", nil))
	assert.Equal(t, wireAnthropic, detectWire("http://x/v1/messages/", nil))
	assert.Equal(t, wireFastGPT, detectWire("http://x/api/v1/chat/completions", map[string]any{"chatId": "c"}))
	assert.Equal(t, wireOpenAI, detectWire("http://x/v1/chat/completions", map[string]any{}))
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, splitText(""))
	assert.Equal(t, []string{"abcd", "ef"}, splitText("abcdef"))
	assert.Equal(t, []string{"你好世界", "！"}, splitText("你好世界！"))
}
