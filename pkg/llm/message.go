package llm

import "fmt"

// ═══════════════════════════════════════════════════════════════════════════
// 角色定义
// ═══════════════════════════════════════════════════════════════════════════

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid 判断角色是否为已知角色
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 消息结构
// ═══════════════════════════════════════════════════════════════════════════

// ChatMessage 对话消息
//
// 消息顺序即对话顺序，所有协议转换都必须原样保留。
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidateMessages 校验消息角色
//
// 角色不在 user、assistant、system 之内时返回 *ValidationError，字段为 messages[i].role。
func ValidateMessages(messages []ChatMessage) error {
	for i, msg := range messages {
		if !msg.Role.IsValid() {
			return NewValidationError(fmt.Sprintf("messages[%d].role", i), fmt.Sprintf("unsupported role %q", msg.Role))
		}
	}
	return nil
}

// HasUserMessage 检查消息列表中是否存在 user 角色的消息
func HasUserMessage(messages []ChatMessage) bool {
	for _, msg := range messages {
		if msg.Role == RoleUser {
			return true
		}
	}
	return false
}

// LastUserMessage 返回最近一条 user 消息
//
// 不存在时 ok 为 false。
func LastUserMessage(messages []ChatMessage) (msg ChatMessage, ok bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return ChatMessage{}, false
}

// SplitSystem 将 system 消息与其他消息分离
//
// 返回的 system 内容按出现顺序拼接，其余消息保持原有顺序。
func SplitSystem(messages []ChatMessage) (system []string, rest []ChatMessage) {
	rest = make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
