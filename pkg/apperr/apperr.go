// Package apperr 定义带错误码与 HTTP 状态的业务错误.
//
// 服务层只返回 *Error（或包装了 *Error 的 error），传输层通过 From 统一映射为响应.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类，决定客户端是否可以重试.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindConflict        Kind = "conflict"
	KindExpired         Kind = "expired"
	KindRateLimited     Kind = "rate_limited"
	KindIntegrity       Kind = "integrity"
	KindInternal        Kind = "internal"
	KindUnavailable     Kind = "unavailable"
)

var kindStatus = map[Kind]int{
	KindUnauthenticated: http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindNotFound:        http.StatusNotFound,
	KindInvalidInput:    http.StatusBadRequest,
	KindConflict:        http.StatusConflict,
	KindExpired:         http.StatusGone,
	KindRateLimited:     http.StatusTooManyRequests,
	KindIntegrity:       http.StatusInternalServerError,
	KindInternal:        http.StatusInternalServerError,
	KindUnavailable:     http.StatusServiceUnavailable,
}

// Error 业务错误.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Cause   error
}

// New 创建错误，状态码由 Kind 推导.
func New(kind Kind, code, message string) *Error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	return &Error{Kind: kind, Code: code, Message: message, Status: status}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回底层原因.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较，使 WithCause/WithMessage 得到的副本仍能匹配哨兵错误.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Code == t.Code
}

// WithCause 返回附带原因的副本.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause

	return &cp
}

// WithMessage 返回替换了提示信息的副本.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)

	return &cp
}

// Retryable 客户端在不修改请求的情况下是否可以重试.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindInternal || e.Kind == KindUnavailable
}

var (
	ErrUnauthenticated = New(KindUnauthenticated, "UNAUTHENTICATED", "authentication required")
	ErrForbidden       = New(KindForbidden, "FORBIDDEN", "insufficient role for this resource")
	ErrNotFound        = New(KindNotFound, "NOT_FOUND", "resource not found")
	ErrInvalidInput    = New(KindInvalidInput, "INVALID_INPUT", "invalid input")
	ErrInternal        = New(KindInternal, "INTERNAL", "internal error")

	// 层级.
	ErrCannotMoveIntoSelf = New(KindInvalidInput, "CANNOT_MOVE_INTO_SELF", "cannot move a folder into itself")
	ErrWouldCreateCycle   = New(KindInvalidInput, "WOULD_CREATE_CYCLE", "move would create a cycle")
	ErrIntegrity          = New(KindIntegrity, "INTEGRITY_CORRUPTION", "folder hierarchy is corrupted")

	// 文件.
	ErrFileTooLarge = New(KindInvalidInput, "FILE_TOO_LARGE", "file exceeds the upload size limit")

	// 回收站.
	ErrNotInTrash     = New(KindInvalidInput, "NOT_IN_TRASH", "resource is not in trash")
	ErrAlreadyInTrash = New(KindInvalidInput, "ALREADY_IN_TRASH", "resource is already in trash")

	// 协作者授权.
	ErrShareExists = New(KindConflict, "SHARE_EXISTS", "share already exists for this user")
	ErrShareSelf   = New(KindInvalidInput, "SHARE_SELF", "owner cannot be a share grantee")

	// 公开链接.
	ErrLinkNotFound     = New(KindNotFound, "LINK_NOT_FOUND", "link not found")
	ErrLinkExpired      = New(KindExpired, "LINK_EXPIRED", "link has expired")
	ErrPasswordRequired = New(KindUnauthenticated, "PASSWORD_REQUIRED", "link password required")
	ErrInvalidPassword  = New(KindUnauthenticated, "INVALID_PASSWORD", "invalid link password")

	// 限流.
	ErrRateLimited = New(KindRateLimited, "RATE_LIMITED", "too many requests")
	ErrUnavailable = New(KindUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable")
)

// From 将任意错误映射为 *Error，未知错误视为 Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return ErrInternal.WithCause(err)
}

// StatusOf 返回错误对应的 HTTP 状态码.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	return From(err).Status
}

// IsKind 判断错误是否属于某个分类.
func IsKind(err error, kind Kind) bool {
	var e *Error

	return errors.As(err, &e) && e.Kind == kind
}
