package service

import (
	"go.uber.org/zap"

	"shiftclock/backend/internal/repository"
	pkgerrors "shiftclock/backend/pkg/errors"
)

// ── 业务错误（按错误码匹配，errors.Is 对附带详情的派生错误同样成立） ──

var (
	ErrValidation        = pkgerrors.New(pkgerrors.CodeValidation, "请求参数不合法")
	ErrForbidden         = pkgerrors.New(pkgerrors.CodeForbidden, "无权执行该操作")
	ErrNotFound          = pkgerrors.New(pkgerrors.CodeNotFound, "记录不存在")
	ErrShiftNotFound     = pkgerrors.New(pkgerrors.CodeShiftNotFound, "班次不存在")
	ErrInvalidTransition = pkgerrors.New(pkgerrors.CodeInvalidTransition, "班次状态不允许该变更")
	ErrInvalidState      = pkgerrors.New(pkgerrors.CodeInvalidState, "当前状态不允许该操作")
	ErrCapacityConflict  = pkgerrors.New(pkgerrors.CodeCapacityConflict, "班次人数与容量冲突")
	ErrDirtyData         = pkgerrors.New(pkgerrors.CodeDirtyData, "存在打卡数据异常的员工，无法审批")
	ErrRaceCondition     = pkgerrors.New(pkgerrors.CodeRaceCondition, "数据已被其他请求修改，请刷新后重试")
	ErrDuplicateRequest  = pkgerrors.New(pkgerrors.CodeDuplicateRequest, "该排班已有待审批的补卡申请")
	ErrAlreadyClockedIn  = pkgerrors.New(pkgerrors.CodeAlreadyClockedIn, "员工已上班打卡，不能取消排班")
)

func validationError(msg string) error {
	return ErrValidation.WithMessage(msg)
}

func invalidState(msg string) error {
	return ErrInvalidState.WithMessage(msg)
}

// isAppError 是否为已分类的业务错误（无需再记录为系统错误）
func isAppError(err error) bool {
	_, ok := pkgerrors.As(err)
	return ok
}

// mapTxError 事务错误出口：并发冲突统一映射为 RACE_CONDITION，业务错误原样返回，其余记录日志
func mapTxError(logger *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if repository.IsConcurrencyConflict(err) {
		logger.Warn(msg, append(fields, zap.Error(err))...)
		return ErrRaceCondition
	}
	if !isAppError(err) {
		logger.Error(msg, append(fields, zap.Error(err))...)
	}
	return err
}
