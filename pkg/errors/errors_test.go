package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	sentinel := New(KindValidationFailed, "驳回必须填写意见")
	wrapped := fmt.Errorf("reject: %w", sentinel)

	if KindOf(wrapped) != KindValidationFailed {
		t.Errorf("期望 validation_failed，实际=%s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, sentinel) {
		t.Error("包装后仍应匹配哨兵错误")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("普通错误不应带分类")
	}
	if KindOf(ErrOptimisticLock) != KindConflict {
		t.Error("乐观锁冲突应归类为 conflict")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := map[Kind]bool{
		KindConflict:           true,
		KindStorageUnavailable: true,
		KindUnauthorized:       false,
		KindInvalidTransition:  false,
		KindValidationFailed:   false,
		KindNotFound:           false,
		KindReadOnlyState:      false,
	}
	for kind, want := range cases {
		if got := IsRetryable(New(kind, "x")); got != want {
			t.Errorf("%s: 期望 retryable=%v，实际=%v", kind, want, got)
		}
	}
}

func TestStorage(t *testing.T) {
	if Storage("op", nil) != nil {
		t.Error("nil 错误不应被包装")
	}

	cause := errors.New("connection refused")
	err := Storage("写入审批记录失败", cause)
	if !IsKind(err, KindStorageUnavailable) {
		t.Errorf("期望 storage_unavailable，实际=%s", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("应保留底层错误")
	}

	conflict := New(KindConflict, "冲突")
	if Storage("op", conflict) != conflict {
		t.Error("已分类的错误不应被重复包装")
	}
}
