package llm

// ProviderType 上游 Provider 类型
type ProviderType string

const (
	// ProviderTypeFastGPT FastGPT 应用 API
	ProviderTypeFastGPT ProviderType = "fastgpt"

	// ProviderTypeOpenAI OpenAI Chat Completions API
	ProviderTypeOpenAI ProviderType = "openai"

	// ProviderTypeAnthropic Anthropic Messages API
	ProviderTypeAnthropic ProviderType = "anthropic"

	// ProviderTypeDify Dify 应用 API
	ProviderTypeDify ProviderType = "dify"

	// ProviderTypeCustom 自定义 Provider（无内置适配器）
	ProviderTypeCustom ProviderType = "custom"
)

// String 返回字符串表示
func (t ProviderType) String() string {
	return string(t)
}

// IsKnown 判断是否属于已知枚举
func (t ProviderType) IsKnown() bool {
	switch t {
	case ProviderTypeFastGPT, ProviderTypeOpenAI, ProviderTypeAnthropic,
		ProviderTypeDify, ProviderTypeCustom:
		return true
	default:
		return false
	}
}

// DefaultPath 返回 Provider 对话接口的路径后缀
func (t ProviderType) DefaultPath() string {
	switch t {
	case ProviderTypeFastGPT, ProviderTypeOpenAI:
		return "/chat/completions"
	case ProviderTypeAnthropic:
		return "/messages"
	case ProviderTypeDify:
		return "/chat-messages"
	default:
		return ""
	}
}
