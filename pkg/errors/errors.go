package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode 表示错误码类型
type ErrorCode int

// 定义应用程序的错误码
const (
	// 通用错误
	ErrUnknown ErrorCode = iota + 1000
	ErrInvalidParameter
	ErrNotImplemented

	// 协议相关错误
	ErrInvalidFraming
	ErrUnknownCommand
	ErrBufferOverflow
	ErrMalformedPayload
	ErrDecompressionFailure

	// 配置存储相关错误
	ErrStorageCorrupt
	ErrStorageFull
	ErrStorageWriteFailed
	ErrStorageReadFailed

	// 网络链路相关错误
	ErrLinkFailure
	ErrTransportFailed

	// Redis缓存相关错误
	ErrRedisConnectionFailed
	ErrRedisOperationFailed
)

var codeNames = map[ErrorCode]string{
	ErrUnknown:               "Unknown",
	ErrInvalidParameter:      "InvalidParameter",
	ErrNotImplemented:        "NotImplemented",
	ErrInvalidFraming:        "InvalidFraming",
	ErrUnknownCommand:        "UnknownCommand",
	ErrBufferOverflow:        "BufferOverflow",
	ErrMalformedPayload:      "MalformedPayload",
	ErrDecompressionFailure:  "DecompressionFailure",
	ErrStorageCorrupt:        "StorageCorrupt",
	ErrStorageFull:           "StorageFull",
	ErrStorageWriteFailed:    "StorageWriteFailed",
	ErrStorageReadFailed:     "StorageReadFailed",
	ErrLinkFailure:           "LinkFailure",
	ErrTransportFailed:       "TransportFailed",
	ErrRedisConnectionFailed: "RedisConnectionFailed",
	ErrRedisOperationFailed:  "RedisOperationFailed",
}

// String 返回错误码名称
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Retryable 写入失败类错误允许调用方重试
func (c ErrorCode) Retryable() bool {
	return c == ErrStorageWriteFailed || c == ErrRedisOperationFailed
}

// AppError 应用程序自定义错误类型
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持Go 1.13+的错误包装
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is 错误码相同即视为同一类错误，便于 errors.Is(err, errors.New(code, ""))
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建一个新的AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 使用格式化消息创建AppError
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装一个已有的错误
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsErrCode 检查错误链中是否存在指定的错误码
func IsErrCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// CodeOf 提取错误码，非AppError返回ErrUnknown
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrUnknown
}
