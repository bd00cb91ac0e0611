// Package directory 提供静态 Agent 目录实现
//
// Agent 目录在网关看来是外部协作方；本包提供一个只读的内存实现，
// 可以从 YAML/JSON 文件加载，适用于单机部署和测试：
//
//	dir, err := directory.LoadFile("agents.yaml")
//	gw := gateway.New(dir)
//
// 文件格式：
//
//	agents:
//	  - id: support-bot
//	    provider: fastgpt
//	    endpoint: https://fastgpt.example.com/api/v1
//	    api_key: '{{ env "FASTGPT_KEY" }}'
//	    is_active: true
//
// endpoint、api_key、app_id 与 features.streaming_config.endpoint 支持模板语法，
// 可用 env、default、coalesce 三个函数。
package directory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 静态目录
// ═══════════════════════════════════════════════════════════════════════════

// Static 只读内存 Agent 目录
//
// 构建后不可变，可被多个 goroutine 并发读取。
type Static struct {
	agents map[string]llm.AgentConfig
}

// NewStatic 从 Agent 配置列表创建目录
//
// ID 为空、重复或 provider 不在已知枚举内时返回 *llm.ValidationError。
// custom 属于已知枚举，调用时由网关报告 UNSUPPORTED_PROVIDER。
func NewStatic(agents ...llm.AgentConfig) (*Static, error) {
	s := &Static{agents: make(map[string]llm.AgentConfig, len(agents))}
	for i, a := range agents {
		if a.ID == "" {
			return nil, llm.NewValidationError(fmt.Sprintf("agents[%d].id", i), "agent id is required")
		}
		if _, dup := s.agents[a.ID]; dup {
			return nil, llm.NewValidationError(fmt.Sprintf("agents[%d].id", i), fmt.Sprintf("duplicate agent id %q", a.ID))
		}
		if !a.Provider.IsKnown() {
			return nil, llm.NewValidationError(fmt.Sprintf("agents[%d].provider", i), fmt.Sprintf("unknown provider %q", a.Provider))
		}
		s.agents[a.ID] = a
	}
	return s, nil
}

// GetAgent 按 ID 查找 Agent
//
// 返回配置副本；不存在时返回 *llm.AgentNotFoundError。
func (s *Static) GetAgent(ctx context.Context, id string) (*llm.AgentConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a, ok := s.agents[id]
	if !ok {
		return nil, llm.NewAgentNotFoundError(id)
	}
	a.Capabilities = slices.Clone(a.Capabilities)
	return &a, nil
}

// IDs 返回全部 Agent ID（已排序）
func (s *Static) IDs() []string {
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 返回 Agent 数量
func (s *Static) Len() int {
	return len(s.agents)
}
