package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAgent() AgentConfig {
	return AgentConfig{
		ID:       "a1",
		Provider: ProviderTypeFastGPT,
		Endpoint: "https://fastgpt.example.com/api/v1",
		APIKey:   "k",
		IsActive: true,
	}
}

func TestAgentConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AgentConfig)
		field  string
	}{
		{"合法配置", func(*AgentConfig) {}, ""},
		{"缺少 endpoint", func(c *AgentConfig) { c.Endpoint = "" }, "endpoint"},
		{"相对 endpoint", func(c *AgentConfig) { c.Endpoint = "/api/v1" }, "endpoint"},
		{"没有 host", func(c *AgentConfig) { c.Endpoint = "http://" }, "endpoint"},
		{"流式端点不合法", func(c *AgentConfig) { c.Features.StreamingConfig.Endpoint = "stream" }, "features.streamingConfig.endpoint"},
		{"流式端点合法", func(c *AgentConfig) { c.Features.StreamingConfig.Endpoint = "https://s.example.com" }, ""},
		{"合法 appId", func(c *AgentConfig) { c.AppID = "0123456789abcdef01234567" }, ""},
		{"appId 长度错误", func(c *AgentConfig) { c.AppID = "0123" }, "appId"},
		{"appId 含大写", func(c *AgentConfig) { c.AppID = "0123456789ABCDEF01234567" }, "appId"},
		{"非 FastGPT 不校验 appId", func(c *AgentConfig) {
			c.Provider = ProviderTypeDify
			c.AppID = "app-1"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAgent()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAgentConfig_HasCapability(t *testing.T) {
	cfg := validAgent()
	assert.False(t, cfg.HasCapability("vision"))

	cfg.Capabilities = []string{"chat", "vision"}
	assert.True(t, cfg.HasCapability("vision"))
	assert.False(t, cfg.HasCapability("Vision"))
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("http://localhost:3000"))
	assert.True(t, IsAbsoluteURL("https://api.openai.com/v1"))
	assert.False(t, IsAbsoluteURL(""))
	assert.False(t, IsAbsoluteURL("api.openai.com"))
	assert.False(t, IsAbsoluteURL("://bad"))
}
