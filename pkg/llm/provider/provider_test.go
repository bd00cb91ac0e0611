package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// New 函数测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_Builtin(t *testing.T) {
	for _, p := range Builtin {
		t.Run(string(p), func(t *testing.T) {
			a, err := New(p)

			require.NoError(t, err)
			require.NotNil(t, a)
			assert.Equal(t, p, a.Provider())
		})
	}
}

func TestNew_Custom(t *testing.T) {
	a, err := New(llm.ProviderTypeCustom)

	assert.Nil(t, a)
	require.Error(t, err)
	assert.True(t, llm.IsUnsupportedProvider(err))
}

func TestNew_Unknown(t *testing.T) {
	a, err := New(llm.ProviderType("gemini"))

	assert.Nil(t, a)
	require.Error(t, err)
	assert.Equal(t, llm.ErrKindUnsupportedProvider, llm.KindOf(err))
}

// ═══════════════════════════════════════════════════════════════════════════
// 注册表测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	assert.ElementsMatch(t, Builtin, r.Providers())

	_, err := r.Lookup(llm.ProviderTypeCustom)
	assert.True(t, llm.IsUnsupportedProvider(err))
}

func TestFromConfig(t *testing.T) {
	cfg := llm.DefaultConfig()
	cfg.Anthropic.MaxTokens = 1024

	r := FromConfig(cfg, core.WithIDGenerator(func() string { return "fixed" }))

	a, err := r.Lookup(llm.ProviderTypeAnthropic)
	require.NoError(t, err)

	agent := &llm.AgentConfig{
		ID:       "claude",
		Provider: llm.ProviderTypeAnthropic,
		Endpoint: "https://api.anthropic.com/v1",
		APIKey:   "sk-ant",
		Model:    "claude-3-5-sonnet",
	}
	body, err := a.TransformRequest([]llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}, agent, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1024, body["max_tokens"])

	headers := a.BuildHeaders(agent)
	assert.Equal(t, llm.DefaultAnthropicVersion, headers["anthropic-version"])
}
