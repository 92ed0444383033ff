package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	sentinel := New(CodeDirtyData, "存在异常打卡数据")
	derived := sentinel.WithDetails([]string{"worker-1"})

	if !errors.Is(derived, sentinel) {
		t.Error("WithDetails 派生错误应与哨兵错误匹配")
	}
	wrapped := fmt.Errorf("approve: %w", derived)
	if !errors.Is(wrapped, sentinel) {
		t.Error("包装后的错误应与哨兵错误匹配")
	}
	if errors.Is(derived, New(CodeRaceCondition, "")) {
		t.Error("不同错误码不应匹配")
	}
}

func TestAs_ExtractsDetails(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(CodeDirtyData, "x").WithDetails([]string{"w-1", "w-2"}))

	appErr, ok := As(err)
	if !ok {
		t.Fatal("应能提取 AppError")
	}
	ids, ok := appErr.Details.([]string)
	if !ok || len(ids) != 2 {
		t.Errorf("期望 2 个 worker id，实际=%v", appErr.Details)
	}
}

func TestCode_HTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:       http.StatusBadRequest,
		CodeForbidden:        http.StatusForbidden,
		CodeShiftNotFound:    http.StatusNotFound,
		CodeRaceCondition:    http.StatusConflict,
		CodeDirtyData:        http.StatusUnprocessableEntity,
		CodeAlreadyClockedIn: http.StatusConflict,
		Code("UNKNOWN"):      http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: 期望 %d，实际 %d", code, want, got)
		}
	}
}

func TestCodeOf_NonAppError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Errorf("期望 INTERNAL，实际 %s", got)
	}
	if got := CodeOf(ErrOptimisticLock); got != CodeInternal {
		t.Errorf("乐观锁哨兵不是业务错误，期望 INTERNAL，实际 %s", got)
	}
}
