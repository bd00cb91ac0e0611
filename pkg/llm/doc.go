// Package llm 提供多 Provider 对话网关的公共类型
//
// 本包定义网关各层共享的数据结构，不包含任何网络调用：
//   - [AgentConfig]: Agent 配置（Provider、端点、凭证、能力开关）
//   - [ChatMessage]: 对话消息
//   - [ChatResponse]: 统一的同步响应
//   - [StreamEvent]: 统一的流式事件
//   - [Config]: 网关运行配置（超时、重试、熔断）
//
// 完整使用示例请参考 example_test.go 与 gateway 包。
//
// # Provider 类型
//
// [ProviderType] 枚举支持的上游：
//   - ProviderTypeFastGPT: FastGPT 应用 API（OpenAI 兼容，带 chatId / detail）
//   - ProviderTypeOpenAI: OpenAI Chat Completions API
//   - ProviderTypeAnthropic: Anthropic Messages API
//   - ProviderTypeDify: Dify 应用 API
//   - ProviderTypeCustom: 自定义 Provider，需要调用方注册适配器
//
// # 错误分类
//
// 所有错误都可以通过 [KindOf] 取得分类：
//
//	AGENT_NOT_FOUND         Agent 不存在
//	AGENT_INACTIVE          Agent 未启用
//	UNSUPPORTED_PROVIDER    Provider 没有注册适配器
//	VALIDATION_ERROR        配置或请求校验失败，不会发起网络请求
//	EXTERNAL_SERVICE_ERROR  超时、连接失败或非 2xx 响应
//	DECODE_ERROR            响应无法解析
//
// [IsRetryableError] 判断错误是否值得重试（429、5xx、网络错误）。
//
// # 流式事件
//
// 每次流式交换以且仅以一个终止事件（[EventTypeEnd] 或 [EventTypeError]）结束。
//
// # 子包
//
//   - core: 协议适配器接口、适配器注册表、SSE 帧读取与流式归一化
//   - protocol/{fastgpt,openai,anthropic,dify}: 各 Provider 协议适配器
//   - provider: 内置适配器注册与按配置构建注册表
//   - provider/mock: 脚本化的 Mock 上游
//   - transport: 基于 resty 的 HTTP 传输层
//   - protect: 重试与熔断
//   - directory: 静态 Agent 目录（YAML / JSON）
//   - gateway: 对话编排（SendMessage / SendStreamMessage / Stream）
//
// # 包文件组织
//
//   - agent.go: AgentConfig、Features、StreamingConfig
//   - message.go: Role、ChatMessage
//   - types.go: ChatOptions、ChatResponse、Usage
//   - event.go: StreamEvent、EventType
//   - errors.go: 错误分类与类型
//   - config.go: 网关运行配置
//   - provider_type.go: ProviderType 枚举
package llm
