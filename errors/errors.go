// Package errors 定义组合内核使用的错误码体系与应用错误类型
package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	// 通用错误代码
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// 注册表结构错误：对注册或依赖解析调用致命
	ErrCodeDuplicateID       ErrorCode = "DUPLICATE_ID"
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	ErrCodeCyclicDependency  ErrorCode = "CYCLIC_DEPENDENCY"
	ErrCodeInvalidDescriptor ErrorCode = "INVALID_DESCRIPTOR"

	// 生命周期错误
	ErrCodeInitialization ErrorCode = "INITIALIZATION_FAILURE"
	ErrCodeDestruction    ErrorCode = "DESTRUCTION_FAILURE"

	// 事件总线错误：始终被隔离并记录
	ErrCodeListener ErrorCode = "LISTENER_FAILURE"
)

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// WrapError 包装错误，err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
	}
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.code, e.message)
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Code 获取错误代码
func (e *AppError) Code() ErrorCode {
	return e.code
}

// Message 获取错误消息
func (e *AppError) Message() string {
	return e.message
}

// Cause 获取原始错误
func (e *AppError) Cause() error {
	return e.cause
}

// Details 获取错误详情（返回副本）
func (e *AppError) Details() map[string]any {
	return copyMap(e.details)
}

// Detail 读取单个详情字段
func (e *AppError) Detail(key string) (any, bool) {
	v, ok := e.details[key]
	return v, ok
}

// Is 同错误码的 AppError 视为相同错误，其余交给 cause 链
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}
	var appErr *AppError
	if stdErrors.As(target, &appErr) {
		return e.code == appErr.code
	}
	return false
}

// Unwrap 解包错误（支持 errors.Unwrap / errors.Is 遍历 cause）
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithContext 添加上下文字段，返回新错误
func (e *AppError) WithContext(key string, value any) *AppError {
	details := copyMap(e.details)
	details[key] = value
	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: details,
	}
}

// DetailKeys 返回排序后的详情键，便于稳定输出
func (e *AppError) DetailKeys() []string {
	keys := make([]string, 0, len(e.details))
	for k := range e.details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsErrorCode 检查错误链（包括 errors.Join 的多错误）中是否存在指定错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *AppError:
		if e.code == code {
			return true
		}
		return IsErrorCode(e.cause, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsErrorCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsErrorCode(e.Unwrap(), code)
	default:
		return false
	}
}

// GetErrorCode 获取最外层错误代码，非 AppError 返回 ErrCodeInternal
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}

// AsAppError 提取错误链中的第一个 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// copyMap 复制映射
func copyMap(original map[string]any) map[string]any {
	copied := make(map[string]any, len(original))
	for k, v := range original {
		copied[k] = v
	}
	return copied
}
