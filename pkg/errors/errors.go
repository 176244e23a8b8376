package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 业务错误分类
type Kind string

const (
	KindInvalidTransition  Kind = "invalid_transition"
	KindUnauthorized       Kind = "unauthorized"
	KindConflict           Kind = "conflict"
	KindValidationFailed   Kind = "validation_failed"
	KindNotFound           Kind = "not_found"
	KindReadOnlyState      Kind = "read_only_state"
	KindStorageUnavailable Kind = "storage_unavailable"
)

// Retryable 调用方重新读取状态后可重试的错误分类
func (k Kind) Retryable() bool {
	return k == KindConflict || k == KindStorageUnavailable
}

// Error 携带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 以指定分类包装底层错误
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is 同分类同消息视为同一错误，便于 errors.Is 匹配哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf 提取错误分类；非业务错误返回空字符串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrOptimisticLock) {
		return KindConflict
	}
	return ""
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// Storage 将存储层错误包装为 StorageUnavailable
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return Wrap(KindStorageUnavailable, op, err)
}
