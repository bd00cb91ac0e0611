package anthropic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

func testAgent() *llm.AgentConfig {
	return &llm.AgentConfig{
		ID:       "claude",
		Provider: llm.ProviderTypeAnthropic,
		Endpoint: "https://api.anthropic.com/v1",
		APIKey:   "sk-ant",
		Model:    "claude-3-5-sonnet",
		IsActive: true,
	}
}

func TestAdapter_Headers(t *testing.T) {
	cfg := testAgent()

	assert.Equal(t, map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         "sk-ant",
		"anthropic-version": llm.DefaultAnthropicVersion,
	}, NewAdapter().BuildHeaders(cfg))

	a := NewAdapter(core.WithAPIVersion("2024-10-22"))
	assert.Equal(t, "2024-10-22", a.BuildHeaders(cfg)["anthropic-version"])
	assert.Equal(t, "https://api.anthropic.com/v1/messages", a.BuildURL(cfg, true))
	assert.Equal(t, llm.ProviderTypeAnthropic, a.Provider())
}

func TestAdapter_ValidateConfig(t *testing.T) {
	a := NewAdapter()
	assert.NoError(t, a.ValidateConfig(testAgent()))

	cfg := testAgent()
	cfg.APIKey = ""
	assert.True(t, llm.IsValidationError(a.ValidateConfig(cfg)))
}

func TestAdapter_TransformRequest(t *testing.T) {
	t.Run("system 消息提升到 system 参数", func(t *testing.T) {
		req, err := NewAdapter().TransformRequest([]llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "be brief"},
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleSystem, Content: "use Chinese"},
			{Role: llm.RoleAssistant, Content: "hello"},
		}, testAgent(), false, nil)
		require.NoError(t, err)

		assert.Equal(t, map[string]any{
			"model": "claude-3-5-sonnet",
			"messages": []map[string]any{
				{"role": "user", "content": "hi"},
				{"role": "assistant", "content": "hello"},
			},
			"max_tokens": llm.DefaultAnthropicMaxTokens,
			"stream":     false,
			"system":     "be brief\n\nuse Chinese",
		}, req)
	})

	t.Run("没有 system 消息", func(t *testing.T) {
		req, err := NewAdapter(core.WithMaxTokens(1024)).TransformRequest(
			[]llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}, testAgent(), true, nil)
		require.NoError(t, err)

		assert.NotContains(t, req, "system")
		assert.Equal(t, 1024, req["max_tokens"])
		assert.Equal(t, true, req["stream"])
	})
}

func TestAdapter_TransformResponse(t *testing.T) {
	raw := `{
		"id": "msg_01",
		"type": "message",
		"model": "claude-3-5-sonnet-20241022",
		"content": [
			{"type": "text", "text": "Hello"},
			{"type": "tool_use", "id": "t1", "name": "x", "input": {}},
			{"type": "text", "text": " world"}
		],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`

	a := NewAdapter(core.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	resp, err := a.TransformResponse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "msg_01", resp.ID)
	assert.Equal(t, llm.DefaultObject, resp.Object)
	assert.Equal(t, int64(1700000000), resp.Created)
	assert.Equal(t, "claude-3-5-sonnet-20241022", resp.Model)
	assert.Equal(t, "Hello world", resp.Content())
	assert.Equal(t, "end_turn", resp.Choices[0].FinishReason)
	assert.Equal(t, &llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}, resp.Usage)
}

func TestAdapter_TransformResponse_Defaults(t *testing.T) {
	a := NewAdapter(core.WithIDGenerator(func() string { return "gen" }))

	resp, err := a.TransformResponse([]byte(`{"content": "not a list"}`))
	require.NoError(t, err)

	assert.Equal(t, "msg_gen", resp.ID)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "", resp.Content())
	assert.Equal(t, llm.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Nil(t, resp.Usage)

	_, err = a.TransformResponse([]byte(`[{"type":"text"}]`))
	assert.True(t, llm.IsDecodeError(err))
}

func TestAdapter_Stream(t *testing.T) {
	a := NewAdapter()

	tests := []struct {
		event string
		want  core.FrameKind
	}{
		{"message_start", core.FrameSkip},
		{"content_block_start", core.FrameSkip},
		{"content_block_delta", core.FrameData},
		{"content_block_stop", core.FrameSkip},
		{"message_delta", core.FrameSkip},
		{"message_stop", core.FrameEnd},
		{"ping", core.FrameSkip},
		{"error", core.FrameError},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ClassifyFrame(core.Frame{Event: tt.event}, nil))
			assert.Equal(t, tt.want, a.ClassifyFrame(core.Frame{}, map[string]any{"type": tt.event}))
		})
	}

	assert.Equal(t, "Hi", a.TransformStreamChunk(map[string]any{
		"delta": map[string]any{"type": "text_delta", "text": "Hi"},
	}))
	assert.Equal(t, "", a.TransformStreamChunk(map[string]any{
		"delta": map[string]any{"type": "thinking_delta", "thinking": "hmm"},
	}))
	assert.False(t, a.IsTerminalData("[DONE]"))
}
