package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别枚举。调用方（UI/网关）根据类别决定是重新输入、
// 刷新当前状态，还是直接报错。
type Kind int

const (
	KindUnknown     Kind = iota
	KindValidation       // 入参非法/不完整，尚未发生任何写入
	KindNotFound         // 引用的请求/资产/分配不存在
	KindForbidden        // 调用者不具备该环节要求的角色/身份
	KindConflict         // 当前生命周期阶段不允许该操作（含重复签字）
	KindPersistence      // 底层事务提交失败
)

// code 对外暴露的稳定错误码（写入响应体，勿随意改动）。
func (k Kind) code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "state_conflict"
	case KindPersistence:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// Error 带类别的业务错误，支持 errors.Is/As 链。
type Error struct {
	Kind    Kind
	Message string
	Err     error // 可选：底层错误
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 返回对外错误码。
func (e *Error) Code() string { return e.Kind.code() }

func newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// Persistence 包装一次无法提交的存储错误。底层细节只进日志，
// 对外统一表现为服务端失败。
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "storage operation failed", Err: err}
}

// KindOf 提取错误类别；非 *Error 一律视为 Persistence 级别的未知错误。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind 判断 err 是否属于指定类别。
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// HTTPStatus 错误类别到 HTTP 状态码的映射。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf 返回对外错误码；未知错误归入 persistence_failure，
// 避免把内部错误串泄露给调用方。
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.code()
	}
	return KindPersistence.code()
}
