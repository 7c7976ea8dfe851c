package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 业务错误分类
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindConflict         ErrorKind = "conflict"
	KindUnsupportedMedia ErrorKind = "unsupported_media"
)

// AppError 面向调用方的错误，Kind 决定 HTTP 状态码
type AppError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) error {
	return &AppError{Kind: KindValidation, Msg: msg}
}

func NewNotFoundError(msg string) error {
	return &AppError{Kind: KindNotFound, Msg: msg}
}

func NewForbiddenError(msg string) error {
	return &AppError{Kind: KindForbidden, Msg: msg}
}

func NewConflictError(msg string) error {
	return &AppError{Kind: KindConflict, Msg: msg}
}

func NewUnsupportedMediaError(msg string) error {
	return &AppError{Kind: KindUnsupportedMedia, Msg: msg}
}

// IsKind 判断错误链上是否存在指定分类的 AppError
func IsKind(err error, kind ErrorKind) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// HTTPStatus 错误到状态码的映射，未知错误一律 500
func HTTPStatus(err error) int {
	var ae *AppError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
