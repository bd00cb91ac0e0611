// Package provider 提供协议适配器的统一工厂
//
// 使用方式：
//
//	// 全部内置适配器
//	registry := provider.NewRegistry()
//
//	// 单个适配器
//	a, err := provider.New(llm.ProviderTypeDify)
//
//	// 按网关配置构建
//	registry := provider.FromConfig(llm.DefaultConfig())
package provider

import (
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protocol/anthropic"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protocol/dify"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protocol/fastgpt"
	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/protocol/openai"
)

// ═══════════════════════════════════════════════════════════════════════════
// 工厂函数
// ═══════════════════════════════════════════════════════════════════════════

// Builtin 内置适配器对应的 Provider 列表
var Builtin = []llm.ProviderType{
	llm.ProviderTypeFastGPT,
	llm.ProviderTypeOpenAI,
	llm.ProviderTypeAnthropic,
	llm.ProviderTypeDify,
}

// New 创建单个协议适配器
//
// 没有内置适配器的 Provider（包括 custom）返回 *llm.UnsupportedProviderError。
func New(t llm.ProviderType, opts ...core.Option) (core.Adapter, error) {
	switch t {
	case llm.ProviderTypeFastGPT:
		return fastgpt.NewAdapter(opts...), nil
	case llm.ProviderTypeOpenAI:
		return openai.NewAdapter(opts...), nil
	case llm.ProviderTypeAnthropic:
		return anthropic.NewAdapter(opts...), nil
	case llm.ProviderTypeDify:
		return dify.NewAdapter(opts...), nil
	default:
		return nil, llm.NewUnsupportedProviderError(t)
	}
}

// NewRegistry 创建包含全部内置适配器的注册表
func NewRegistry(opts ...core.Option) *core.Registry {
	adapters := make([]core.Adapter, 0, len(Builtin))
	for _, t := range Builtin {
		a, err := New(t, opts...)
		if err != nil {
			panic(err)
		}
		adapters = append(adapters, a)
	}
	return core.MustRegistry(adapters...)
}

// FromConfig 按网关配置创建注册表
//
// extra 中的选项在配置派生的选项之后应用，可覆盖配置值。
func FromConfig(cfg llm.Config, extra ...core.Option) *core.Registry {
	opts := []core.Option{
		core.WithMaxTokens(cfg.Anthropic.MaxTokens),
		core.WithAPIVersion(cfg.Anthropic.Version),
	}
	return NewRegistry(append(opts, extra...)...)
}
