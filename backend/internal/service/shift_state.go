package service

import (
	"fmt"

	"shiftclock/backend/internal/model"
)

// shiftTransitions 班次状态迁移表（有向）
// 允许 completed → in-progress 与 approved → completed 两条回退路径，用于重开核对与撤销审批
// 没有任何状态可以回到 draft
var shiftTransitions = map[string][]string{
	model.ShiftStatusDraft:      {model.ShiftStatusPublished, model.ShiftStatusCancelled},
	model.ShiftStatusPublished:  {model.ShiftStatusAssigned, model.ShiftStatusCancelled},
	model.ShiftStatusAssigned:   {model.ShiftStatusPublished, model.ShiftStatusInProgress, model.ShiftStatusCancelled},
	model.ShiftStatusInProgress: {model.ShiftStatusCompleted, model.ShiftStatusCancelled},
	model.ShiftStatusCompleted:  {model.ShiftStatusApproved, model.ShiftStatusInProgress},
	model.ShiftStatusApproved:   {model.ShiftStatusCompleted},
	model.ShiftStatusCancelled:  {model.ShiftStatusPublished},
}

// ValidateShiftTransition 校验 current → next 是否合法，同状态迁移同样非法
func ValidateShiftTransition(current, next string) error {
	for _, allowed := range shiftTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return ErrInvalidTransition.WithMessage(fmt.Sprintf("班次状态不能从 %s 变更为 %s", current, next))
}

// IsShiftStatus 是否为已定义的班次状态
func IsShiftStatus(status string) bool {
	_, ok := shiftTransitions[status]
	return ok
}
