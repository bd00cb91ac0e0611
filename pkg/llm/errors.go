package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ═══════════════════════════════════════════════════════════════════════════
// 错误类型
// ═══════════════════════════════════════════════════════════════════════════

// ErrorKind 错误分类
type ErrorKind string

const (
	// ErrKindAgentNotFound Agent 目录中不存在该 Agent
	ErrKindAgentNotFound ErrorKind = "AGENT_NOT_FOUND"

	// ErrKindAgentInactive Agent 存在但未启用
	ErrKindAgentInactive ErrorKind = "AGENT_INACTIVE"

	// ErrKindUnsupportedProvider Provider 没有注册适配器
	ErrKindUnsupportedProvider ErrorKind = "UNSUPPORTED_PROVIDER"

	// ErrKindValidation 配置或请求校验失败（在任何网络调用之前）
	ErrKindValidation ErrorKind = "VALIDATION_ERROR"

	// ErrKindExternalService 传输层错误（超时、连接失败、非 2xx）
	ErrKindExternalService ErrorKind = "EXTERNAL_SERVICE_ERROR"

	// ErrKindDecode 响应无法解析
	ErrKindDecode ErrorKind = "DECODE_ERROR"
)

// ═══════════════════════════════════════════════════════════════════════════
// 基础错误
// ═══════════════════════════════════════════════════════════════════════════

// BaseError 基础错误实现
type BaseError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorKind 返回错误分类
func (e *BaseError) ErrorKind() ErrorKind {
	return e.Kind
}

// ═══════════════════════════════════════════════════════════════════════════
// Agent 查找错误
// ═══════════════════════════════════════════════════════════════════════════

// AgentNotFoundError Agent 不存在
type AgentNotFoundError struct {
	*BaseError

	AgentID string
}

// NewAgentNotFoundError 创建 Agent 不存在错误
func NewAgentNotFoundError(agentID string) *AgentNotFoundError {
	return &AgentNotFoundError{
		BaseError: &BaseError{
			Kind:    ErrKindAgentNotFound,
			Message: fmt.Sprintf("agent %q not found", agentID),
		},
		AgentID: agentID,
	}
}

// AgentInactiveError Agent 未启用
type AgentInactiveError struct {
	*BaseError

	AgentID string
}

// NewAgentInactiveError 创建 Agent 未启用错误
func NewAgentInactiveError(agentID string) *AgentInactiveError {
	return &AgentInactiveError{
		BaseError: &BaseError{
			Kind:    ErrKindAgentInactive,
			Message: fmt.Sprintf("agent %q is inactive", agentID),
		},
		AgentID: agentID,
	}
}

// UnsupportedProviderError Provider 不受支持
type UnsupportedProviderError struct {
	*BaseError

	Provider ProviderType
}

// NewUnsupportedProviderError 创建 Provider 不受支持错误
func NewUnsupportedProviderError(provider ProviderType) *UnsupportedProviderError {
	return &UnsupportedProviderError{
		BaseError: &BaseError{
			Kind:    ErrKindUnsupportedProvider,
			Message: fmt.Sprintf("unsupported provider: %q", provider),
		},
		Provider: provider,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 校验错误
// ═══════════════════════════════════════════════════════════════════════════

// ValidationError 配置或请求校验错误
type ValidationError struct {
	*BaseError

	Field string // 出错的字段
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			Kind:    ErrKindValidation,
			Message: message,
		},
		Field: field,
	}
}

// NewMissingFieldError 创建缺少必填字段错误
func NewMissingFieldError(field string) *ValidationError {
	return NewValidationError(field, field+" is required")
}

// ═══════════════════════════════════════════════════════════════════════════
// 外部服务错误
// ═══════════════════════════════════════════════════════════════════════════

// ExternalServiceError 上游调用错误
//
// StatusCode 为 0 表示请求没有拿到 HTTP 响应（超时、连接被拒绝、DNS 失败等）。
type ExternalServiceError struct {
	*BaseError

	StatusCode int
	Response   string
	Provider   string
	RequestID  string
}

// NewExternalServiceError 创建网络层错误
func NewExternalServiceError(message string, err error) *ExternalServiceError {
	return &ExternalServiceError{
		BaseError: &BaseError{
			Kind:    ErrKindExternalService,
			Message: message,
			Err:     err,
		},
	}
}

// NewStatusError 创建非 2xx 状态错误
func NewStatusError(statusCode int, response string) *ExternalServiceError {
	return &ExternalServiceError{
		BaseError: &BaseError{
			Kind:    ErrKindExternalService,
			Message: fmt.Sprintf("upstream returned status %d", statusCode),
		},
		StatusCode: statusCode,
		Response:   response,
	}
}

// WithProvider 设置 Provider 名称
func (e *ExternalServiceError) WithProvider(provider string) *ExternalServiceError {
	e.Provider = provider
	return e
}

// WithRequestID 设置请求 ID
func (e *ExternalServiceError) WithRequestID(requestID string) *ExternalServiceError {
	e.RequestID = requestID
	return e
}

func (e *ExternalServiceError) Error() string {
	base := e.BaseError.Error()
	if e.Response != "" {
		base = fmt.Sprintf("%s: %s", base, truncate(e.Response, 512))
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request_id: %s)", base, e.RequestID)
	}
	return base
}

// IsRetryable 检查错误是否可重试
//
// 429、5xx 以及未拿到响应的网络错误可重试。
func (e *ExternalServiceError) IsRetryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500 && e.StatusCode <= 504
}

// ═══════════════════════════════════════════════════════════════════════════
// 解析错误
// ═══════════════════════════════════════════════════════════════════════════

// DecodeError 响应解析错误
type DecodeError struct {
	*BaseError

	Field string
}

// NewDecodeError 创建解析错误
func NewDecodeError(field string, err error) *DecodeError {
	msg := "failed to decode response"
	if field != "" {
		msg = fmt.Sprintf("failed to decode response field '%s'", field)
	}
	return &DecodeError{
		BaseError: &BaseError{
			Kind:    ErrKindDecode,
			Message: msg,
			Err:     err,
		},
		Field: field,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误匹配函数（支持 errors.Is/As）
// ═══════════════════════════════════════════════════════════════════════════

type kinded interface {
	ErrorKind() ErrorKind
}

// KindOf 返回错误分类，非本包错误返回空字符串
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return ""
}

// IsKind 检查错误是否属于指定分类
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsAgentNotFound 检查是否为 Agent 不存在错误
func IsAgentNotFound(err error) bool {
	var e *AgentNotFoundError
	return errors.As(err, &e)
}

// IsAgentInactive 检查是否为 Agent 未启用错误
func IsAgentInactive(err error) bool {
	var e *AgentInactiveError
	return errors.As(err, &e)
}

// IsUnsupportedProvider 检查是否为 Provider 不受支持错误
func IsUnsupportedProvider(err error) bool {
	var e *UnsupportedProviderError
	return errors.As(err, &e)
}

// IsValidationError 检查是否为校验错误
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsExternalServiceError 检查是否为上游调用错误
func IsExternalServiceError(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}

// IsDecodeError 检查是否为解析错误
func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}

// IsRetryableError 检查错误是否可重试
func IsRetryableError(err error) bool {
	var e *ExternalServiceError
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// GetExternalServiceError 提取 ExternalServiceError（如果存在）
func GetExternalServiceError(err error) (*ExternalServiceError, bool) {
	var e *ExternalServiceError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetStatusCode 提取上游 HTTP 状态码
func GetStatusCode(err error) int {
	if e, ok := GetExternalServiceError(err); ok {
		return e.StatusCode
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
