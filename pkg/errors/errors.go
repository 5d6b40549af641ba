// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess              ErrorCode = "0"
	CodeUnknown              ErrorCode = "1000"
	CodeInvalidParam         ErrorCode = "1001"
	CodeNotFound             ErrorCode = "1004"
	CodeConflict             ErrorCode = "1005"
	CodeTooManyRequests      ErrorCode = "1006"
	CodeInternalError        ErrorCode = "1007"
	CodeServiceUnavailable   ErrorCode = "1008"
	CodeConfirmationRequired ErrorCode = "1009"

	// 资源错误 (3xxx)
	CodeSessionNotFound ErrorCode = "3001"
	CodeMessageNotFound ErrorCode = "3002"

	// 业务错误 (4xxx)
	CodeGenerationInFlight  ErrorCode = "4001"
	CodeBlankInput          ErrorCode = "4002"
	CodeNothingToRegenerate ErrorCode = "4003"
	CodeLastMessage         ErrorCode = "4004"
	CodeLLMCallFailed       ErrorCode = "4005"
	CodeUnknownModel        ErrorCode = "4006"

	// 外部服务错误 (5xxx)
	CodeStorageError     ErrorCode = "5004"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 Wrap 出来的错误可以与预定义错误匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeBlankInput, CodeUnknownModel:
		return http.StatusBadRequest
	case CodeNotFound, CodeSessionNotFound, CodeMessageNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeGenerationInFlight, CodeNothingToRegenerate, CodeLastMessage:
		return http.StatusConflict
	case CodeConfirmationRequired:
		return http.StatusPreconditionRequired
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam         = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound             = New(CodeNotFound, "resource not found")
	ErrInternalError        = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable   = New(CodeServiceUnavailable, "service unavailable")
	ErrConfirmationRequired = New(CodeConfirmationRequired, "confirmation required")

	ErrSessionNotFound = New(CodeSessionNotFound, "session not found")
	ErrMessageNotFound = New(CodeMessageNotFound, "message not found")

	ErrGenerationInFlight  = New(CodeGenerationInFlight, "generation already in flight")
	ErrBlankInput          = New(CodeBlankInput, "message text is blank")
	ErrNothingToRegenerate = New(CodeNothingToRegenerate, "no model answer to regenerate")
	ErrLastMessage         = New(CodeLastMessage, "cannot delete the only message of a session")
	ErrLLMCallFailed       = New(CodeLLMCallFailed, "LLM call failed")
	ErrUnknownModel        = New(CodeUnknownModel, "unknown model")

	ErrStorage = New(CodeStorageError, "storage error")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// Is 透传标准库 errors.Is，避免调用方同时引入两个 errors 包
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
