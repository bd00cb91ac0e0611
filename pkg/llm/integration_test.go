package llm_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/directory"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/gateway"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/provider/mock"
)

// ═══════════════════════════════════════════════════════════════════════════
// 端到端：gateway → resty 传输层 → HTTP → mock.Upstream
// ═══════════════════════════════════════════════════════════════════════════

func integrationAgents(base string) []llm.AgentConfig {
	streaming := llm.Features{
		SupportsStream:  true,
		StreamingConfig: llm.StreamingConfig{Enabled: true},
	}
	return []llm.AgentConfig{
		{ID: "fastgpt", Provider: llm.ProviderTypeFastGPT, Endpoint: base + "/api/v1", APIKey: "fastgpt-key", IsActive: true, Features: streaming},
		{ID: "openai", Provider: llm.ProviderTypeOpenAI, Endpoint: base + "/v1", APIKey: "sk-test", Model: "gpt-4o", IsActive: true, Features: streaming},
		{ID: "anthropic", Provider: llm.ProviderTypeAnthropic, Endpoint: base + "/v1", APIKey: "sk-ant", Model: "claude-3-5-sonnet", IsActive: true, Features: streaming},
		{ID: "dify", Provider: llm.ProviderTypeDify, Endpoint: base + "/v1", APIKey: "app-key", IsActive: true, Features: streaming},
	}
}

func newIntegrationGateway(t *testing.T, up *mock.Upstream) *gateway.Gateway {
	t.Helper()

	server := httptest.NewServer(up)
	t.Cleanup(server.Close)

	dir, err := directory.NewStatic(integrationAgents(server.URL)...)
	require.NoError(t, err)

	cfg := llm.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 1
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond

	return gateway.NewFromConfig(cfg, dir, gateway.WithLogger(zaptest.NewLogger(t)))
}

func TestIntegration_SendMessage_AllProviders(t *testing.T) {
	tests := []struct {
		agent  string
		path   string
		header string
		value  string
	}{
		{"fastgpt", "/api/v1/chat/completions", "Authorization", "Bearer fastgpt-key"},
		{"openai", "/v1/chat/completions", "Authorization", "Bearer sk-test"},
		{"anthropic", "/v1/messages", "X-Api-Key", "sk-ant"},
		{"dify", "/v1/chat-messages", "Authorization", "Bearer app-key"},
	}

	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			up := mock.New(mock.WithResponse("hello from " + tt.agent))
			gw := newIntegrationGateway(t, up)

			resp, err := gw.SendMessage(context.Background(), tt.agent, []llm.ChatMessage{
				{Role: llm.RoleSystem, Content: "be brief"},
				{Role: llm.RoleUser, Content: "hi"},
			}, nil)
			require.NoError(t, err)

			assert.Equal(t, "hello from "+tt.agent, resp.Content())
			assert.NotEmpty(t, resp.ID)
			assert.Equal(t, llm.DefaultObject, resp.Object)

			call := up.LastCall()
			require.NotNil(t, call)
			assert.True(t, strings.HasSuffix(call.URL, tt.path), call.URL)
			assert.Equal(t, tt.value, call.Headers[tt.header])
			assert.Equal(t, "hi", call.Input)
			assert.False(t, call.Stream)
		})
	}
}

func TestIntegration_Stream_AllProviders(t *testing.T) {
	for _, agent := range []string{"fastgpt", "openai", "anthropic", "dify"} {
		t.Run(agent, func(t *testing.T) {
			up := mock.New(mock.WithResponse("流式响应内容，共十二个字符"))
			gw := newIntegrationGateway(t, up)

			events, err := gw.Stream(context.Background(), agent, []llm.ChatMessage{
				{Role: llm.RoleUser, Content: "hi"},
			}, nil)
			require.NoError(t, err)

			var text strings.Builder
			var terminals []*llm.StreamEvent
			for ev := range events {
				if ev.Type == llm.EventTypeChunk {
					text.WriteString(ev.Text)
				}
				if ev.IsTerminal() {
					terminals = append(terminals, ev)
				}
			}

			require.Len(t, terminals, 1)
			assert.Equal(t, llm.EventTypeEnd, terminals[0].Type)
			assert.Equal(t, "流式响应内容，共十二个字符", text.String())
			assert.True(t, up.LastCall().Stream)
		})
	}
}

func TestIntegration_DifyConversation(t *testing.T) {
	up := mock.New(mock.WithResponse("ok"))
	gw := newIntegrationGateway(t, up)
	ctx := context.Background()

	first, err := gw.SendMessage(ctx, "dify", []llm.ChatMessage{{Role: llm.RoleUser, Content: "one"}}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.ChatID)

	_, err = gw.SendMessage(ctx, "dify", []llm.ChatMessage{{Role: llm.RoleUser, Content: "two"}},
		&llm.ChatOptions{ChatID: first.ChatID})
	require.NoError(t, err)

	assert.Equal(t, first.ChatID, up.LastCall().Body["conversation_id"])
	assert.Equal(t, "agent-dify", up.LastCall().Body["user"])
}

func TestIntegration_UpstreamStatus(t *testing.T) {
	up := mock.New(mock.WithStatus(http.StatusUnauthorized))
	gw := newIntegrationGateway(t, up)

	_, err := gw.SendMessage(context.Background(), "openai", []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)

	assert.Equal(t, llm.ErrKindExternalService, llm.KindOf(err))
	assert.Equal(t, http.StatusUnauthorized, llm.GetStatusCode(err))
	assert.Equal(t, 1, up.CallCount(), "401 is not retried")

	ext, ok := llm.GetExternalServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "openai", ext.Provider)
	assert.NotEmpty(t, ext.RequestID)
}

func TestIntegration_ConnectionAborted(t *testing.T) {
	up := mock.New(mock.WithError(errors.New("simulated reset")))
	gw := newIntegrationGateway(t, up)

	_, err := gw.SendMessage(context.Background(), "anthropic", []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)

	assert.True(t, llm.IsExternalServiceError(err))
	assert.Equal(t, 0, llm.GetStatusCode(err))
	assert.Equal(t, 2, up.CallCount(), "network errors are retried once")
}

func TestIntegration_StreamStatusError(t *testing.T) {
	up := mock.New(mock.WithStatus(http.StatusBadGateway))
	gw := newIntegrationGateway(t, up)

	var got error
	var ends int
	err := gw.SendStreamMessage(context.Background(), "fastgpt", []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}},
		gateway.StreamCallbacks{
			OnEnd:   func() { ends++ },
			OnError: func(err error) { got = err },
		}, nil)
	require.NoError(t, err)

	assert.Zero(t, ends)
	require.Error(t, got)
	assert.Equal(t, http.StatusBadGateway, llm.GetStatusCode(got))
}
