// Package testutil 提供测试辅助工具
package testutil

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// AssertHelper 断言辅助，失败时立即终止当前测试
type AssertHelper struct {
	t *testing.T
}

// NewAssertHelper 创建断言辅助器
func NewAssertHelper(t *testing.T) *AssertHelper {
	return &AssertHelper{t: t}
}

func (h *AssertHelper) fail(format string, args []interface{}, msgAndArgs []interface{}) {
	h.t.Helper()
	msg := fmt.Sprintf(format, args...)
	if len(msgAndArgs) > 0 {
		msg += " " + fmt.Sprint(msgAndArgs...)
	}
	h.t.Fatal(msg)
}

// NoError 断言没有错误
func (h *AssertHelper) NoError(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err != nil {
		h.fail("unexpected error: %v", []interface{}{err}, msgAndArgs)
	}
}

// Error 断言有错误
func (h *AssertHelper) Error(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err == nil {
		h.fail("expected error, got nil", nil, msgAndArgs)
	}
}

// ErrorIs 断言错误链包含 target
func (h *AssertHelper) ErrorIs(err, target error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !errors.Is(err, target) {
		h.fail("expected error %v, got %v", []interface{}{target, err}, msgAndArgs)
	}
}

// Len 断言长度
func (h *AssertHelper) Len(n, want int, msgAndArgs ...interface{}) {
	h.t.Helper()
	if n != want {
		h.fail("expected length %d, got %d", []interface{}{want, n}, msgAndArgs)
	}
}

// Equal 断言相等，仅用于可比较类型
func (h *AssertHelper) Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	h.t.Helper()
	if expected != actual {
		h.fail("expected %v, got %v", []interface{}{expected, actual}, msgAndArgs)
	}
}

// NotEmpty 断言字符串非空
func (h *AssertHelper) NotEmpty(v string, msgAndArgs ...interface{}) {
	h.t.Helper()
	if v == "" {
		h.fail("expected non-empty string", nil, msgAndArgs)
	}
}

// NotNil 断言非 nil
func (h *AssertHelper) NotNil(v interface{}, msgAndArgs ...interface{}) {
	h.t.Helper()
	if v == nil {
		h.fail("expected non-nil", nil, msgAndArgs)
		return
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		h.fail("expected non-nil %T", []interface{}{v}, msgAndArgs)
	}
}

// True 断言为真
func (h *AssertHelper) True(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !condition {
		h.fail("expected true", nil, msgAndArgs)
	}
}

// False 断言为假
func (h *AssertHelper) False(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if condition {
		h.fail("expected false", nil, msgAndArgs)
	}
}
