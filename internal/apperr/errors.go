// Package apperr defines the error taxonomy shared by the managers and the
// HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindAuthRequired
	KindValidation
	KindQuery
	KindWrite
	KindStorage
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindAuthRequired:
		return "auth_required"
	case KindValidation:
		return "validation"
	case KindQuery:
		return "query"
	case KindWrite:
		return "write"
	case KindStorage:
		return "storage"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ErrNotFound 记录不存在，通常包装在 QueryError / WriteError 中
var ErrNotFound = errors.New("record not found")

// Error 带分类的错误
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.message(), e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.message())
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.message(), e.Err)
	default:
		return e.message()
	}
}

func (e *Error) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message 返回可以直接展示给用户的文本
func (e *Error) Message() string {
	return e.message()
}

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Auth bad credentials, unconfirmed account, invalid session
func Auth(op, msg string, err error) *Error { return newError(KindAuth, op, msg, err) }

// AuthRequired action attempted while anonymous
func AuthRequired(op string) *Error {
	return newError(KindAuthRequired, op, "you must be signed in to do that", nil)
}

// Validation malformed local input
func Validation(op, msg string) *Error { return newError(KindValidation, op, msg, nil) }

// Query remote read failed
func Query(op string, err error) *Error { return newError(KindQuery, op, "could not load data", err) }

// Write remote mutation failed
func Write(op string, err error) *Error { return newError(KindWrite, op, "could not save changes", err) }

// Storage object upload/delete failed
func Storage(op string, err error) *Error { return newError(KindStorage, op, "file storage failed", err) }

// Decode unreadable image
func Decode(op string, err error) *Error {
	return newError(KindDecode, op, "the file is not a readable image", err)
}

// KindOf 返回错误链上第一个 *Error 的分类
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind 判断错误分类
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage 返回面向用户的提示文本
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if errors.Is(e, ErrNotFound) {
			return "not found"
		}
		return e.Message()
	}
	return "something went wrong, please try again"
}
