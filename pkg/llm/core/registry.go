package core

import (
	"fmt"
	"sort"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// Registry Provider 适配器注册表
//
// 启动时构建一次，之后只读，无需加锁。
type Registry struct {
	adapters map[llm.ProviderType]Adapter
}

// NewRegistry 创建注册表
//
// 同一 Provider 注册两次返回错误。
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	m := make(map[llm.ProviderType]Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("nil adapter")
		}
		p := a.Provider()
		if _, dup := m[p]; dup {
			return nil, fmt.Errorf("duplicate adapter for provider %q", p)
		}
		m[p] = a
	}
	return &Registry{adapters: m}, nil
}

// MustRegistry 创建注册表，失败时 panic
func MustRegistry(adapters ...Adapter) *Registry {
	r, err := NewRegistry(adapters...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup 查找 Provider 对应的适配器
//
// 未注册时返回 *llm.UnsupportedProviderError。
func (r *Registry) Lookup(provider llm.ProviderType) (Adapter, error) {
	if r != nil {
		if a, ok := r.adapters[provider]; ok {
			return a, nil
		}
	}
	return nil, llm.NewUnsupportedProviderError(provider)
}

// Providers 返回已注册的 Provider 列表（按名称排序）
func (r *Registry) Providers() []llm.ProviderType {
	out := make([]llm.ProviderType, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
