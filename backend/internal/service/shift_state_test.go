package service

import (
	"errors"
	"testing"

	"shiftclock/backend/internal/model"
)

var allShiftStatuses = []string{
	model.ShiftStatusDraft,
	model.ShiftStatusPublished,
	model.ShiftStatusAssigned,
	model.ShiftStatusInProgress,
	model.ShiftStatusCompleted,
	model.ShiftStatusApproved,
	model.ShiftStatusCancelled,
}

func TestValidateShiftTransition_Legal(t *testing.T) {
	legal := [][2]string{
		{model.ShiftStatusDraft, model.ShiftStatusPublished},
		{model.ShiftStatusDraft, model.ShiftStatusCancelled},
		{model.ShiftStatusPublished, model.ShiftStatusAssigned},
		{model.ShiftStatusPublished, model.ShiftStatusCancelled},
		{model.ShiftStatusAssigned, model.ShiftStatusPublished},
		{model.ShiftStatusAssigned, model.ShiftStatusInProgress},
		{model.ShiftStatusAssigned, model.ShiftStatusCancelled},
		{model.ShiftStatusInProgress, model.ShiftStatusCompleted},
		{model.ShiftStatusInProgress, model.ShiftStatusCancelled},
		{model.ShiftStatusCompleted, model.ShiftStatusApproved},
		{model.ShiftStatusCompleted, model.ShiftStatusInProgress},
		{model.ShiftStatusApproved, model.ShiftStatusCompleted},
		{model.ShiftStatusCancelled, model.ShiftStatusPublished},
	}
	for _, tc := range legal {
		if err := ValidateShiftTransition(tc[0], tc[1]); err != nil {
			t.Errorf("%s → %s 应合法，实际: %v", tc[0], tc[1], err)
		}
	}
}

func TestValidateShiftTransition_SelfTransitionRejected(t *testing.T) {
	for _, st := range allShiftStatuses {
		err := ValidateShiftTransition(st, st)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s → %s 应返回 INVALID_TRANSITION，实际: %v", st, st, err)
		}
	}
}

func TestValidateShiftTransition_Illegal(t *testing.T) {
	illegal := [][2]string{
		{model.ShiftStatusPublished, model.ShiftStatusCompleted},
		{model.ShiftStatusAssigned, model.ShiftStatusApproved},
		{model.ShiftStatusInProgress, model.ShiftStatusApproved},
		{model.ShiftStatusApproved, model.ShiftStatusCancelled},
		{model.ShiftStatusCancelled, model.ShiftStatusAssigned},
		{model.ShiftStatusCompleted, model.ShiftStatusCancelled},
		{"unknown", model.ShiftStatusPublished},
	}
	for _, tc := range illegal {
		if err := ValidateShiftTransition(tc[0], tc[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s → %s 应非法，实际: %v", tc[0], tc[1], err)
		}
	}
}

func TestValidateShiftTransition_NothingEntersDraft(t *testing.T) {
	for _, st := range allShiftStatuses {
		if err := ValidateShiftTransition(st, model.ShiftStatusDraft); err == nil {
			t.Errorf("%s → draft 不应合法", st)
		}
	}
}
