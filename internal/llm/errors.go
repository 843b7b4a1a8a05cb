package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// LLMError 大模型调用错误类型
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e LLMError) Error() string {
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyPrompt    = 1007 // 提示词为空
	ErrCodeContentFilter  = 1008 // 内容安全过滤
	ErrCodeModelOverload  = 1009 // 模型过载
	ErrCodeContextTooLong = 1010 // 上下文过长
	ErrCodeEmptyResponse  = 1011 // 模型返回空内容
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey  = "invalid API key"
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgRateLimited    = "too many requests, rate limit exceeded"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyPrompt    = "prompt cannot be empty"
	ErrMsgNetworkError   = "network connection error"
	ErrMsgContentFilter  = "content filtered due to safety concerns"
	ErrMsgModelOverload  = "model is currently overloaded"
	ErrMsgContextTooLong = "context length exceeds model's maximum"
	ErrMsgEmptyResponse  = "empty response from API"
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// WrapError 包装普通错误为LLM错误
func WrapError(err error, code int) LLMError {
	if err == nil {
		return LLMError{Code: code, Message: "unknown error"}
	}

	var llmErr LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	return LLMError{
		Code:    code,
		Message: err.Error(),
	}
}

// ErrorCode 返回错误对应的错误码，非LLMError返回0
func ErrorCode(err error) int {
	var llmErr LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Code
	}
	return 0
}

// IsPermanent 判断错误是否重试也无法恢复
// 密钥错误、请求非法、内容过滤、上下文超长属于此类
func IsPermanent(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeInvalidAPIKey, ErrCodeInvalidRequest, ErrCodeEmptyPrompt,
		ErrCodeContentFilter, ErrCodeContextTooLong:
		return true
	}
	return false
}

// transportError 将HTTP层错误转换为LLMError
func transportError(err error) LLMError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewLLMError(ErrCodeTimeout, fmt.Sprintf("%s: %v", ErrMsgTimeout, err))
	}
	return NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", err))
}

// statusError 根据HTTP状态码构造LLMError
func statusError(status int, detail string) LLMError {
	msg := fmt.Sprintf("API error (status %d): %s", status, detail)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewLLMError(ErrCodeInvalidAPIKey, msg)
	case status == http.StatusTooManyRequests:
		return NewLLMError(ErrCodeRateLimited, msg)
	case status == http.StatusRequestEntityTooLarge:
		return NewLLMError(ErrCodeContextTooLong, msg)
	case status == http.StatusServiceUnavailable:
		return NewLLMError(ErrCodeModelOverload, msg)
	case status >= 500:
		return NewLLMError(ErrCodeServerError, msg)
	default:
		return NewLLMError(ErrCodeInvalidRequest, msg)
	}
}
