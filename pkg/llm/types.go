package llm

// ═══════════════════════════════════════════════════════════════════════════
// 请求选项
// ═══════════════════════════════════════════════════════════════════════════

// FileRef 附件引用
type FileRef struct {
	Type string `json:"type" yaml:"type"` // image, document, audio ...
	URL  string `json:"url" yaml:"url"`
}

// ChatOptions 单次对话选项
type ChatOptions struct {
	// ChatID 会话续接标识（可选）
	ChatID string `json:"chatId,omitempty"`

	// Variables 变量表，键顺序无意义
	Variables map[string]any `json:"variables,omitempty"`

	// Files 附件列表，保持调用方顺序
	Files []FileRef `json:"files,omitempty"`

	Stream bool  `json:"stream"`
	Detail *bool `json:"detail,omitempty"`

	// User 调用方用户标识，Dify 等需要 user 字段的协议使用
	User string `json:"user,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════
// 统一响应
// ═══════════════════════════════════════════════════════════════════════════

// DefaultObject 响应默认的 object 字段
const DefaultObject = "chat.completion"

// ChatResponse 统一的对话响应
//
// 所有 Provider 的响应都会被转换为该结构，Choices 至少包含一项。
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`

	// ChatID 上游返回的会话标识（Dify conversation_id）
	ChatID string `json:"chat_id,omitempty"`
}

// Choice 响应候选
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage 候选中的消息
type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage Token 使用量
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Content 返回第一个候选的文本内容
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// EmptyChoice 构造一个内容为空的候选
//
// 上游缺失 choices 等内容字段时使用，保证 Choices 非空。
func EmptyChoice() Choice {
	return Choice{
		Index:   0,
		Message: ChoiceMessage{Role: RoleAssistant},
	}
}
