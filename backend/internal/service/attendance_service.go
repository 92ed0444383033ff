package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
)

// AttendanceService 打卡业务接口
// 只记录设备上报的原始时间；核算（吸附、计薪分钟）在审批时进行
type AttendanceService interface {
	ClockIn(ctx context.Context, orgID, assignmentID, workerID string, req *dto.ClockRequest) (*dto.AssignmentResponse, error)
	ClockOut(ctx context.Context, orgID, assignmentID, workerID string, req *dto.ClockRequest) (*dto.AssignmentResponse, error)
}

type attendanceService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// loadOwnAssignment 读取员工本人的在排记录及所属班次
func loadOwnAssignment(ctx context.Context, tx *repository.Repository, orgID, assignmentID, workerID string) (*model.ShiftAssignment, *model.Shift, error) {
	if _, err := requirePermission(ctx, tx, orgID, workerID, PermClock); err != nil {
		return nil, nil, err
	}
	a, err := tx.Assignment.GetByID(ctx, orgID, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound.WithMessage("排班记录不存在")
		}
		return nil, nil, err
	}
	if a.WorkerID != workerID {
		return nil, nil, ErrForbidden.WithMessage("只能为自己的排班打卡")
	}
	if a.Status == model.AssignmentStatusRemoved {
		return nil, nil, invalidState("排班已取消")
	}

	shift := a.Shift
	if shift == nil {
		shift, err = tx.Shift.GetByID(ctx, orgID, a.ShiftID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrShiftNotFound
			}
			return nil, nil, err
		}
	}
	return a, shift, nil
}

func (s *attendanceService) ClockIn(ctx context.Context, orgID, assignmentID, workerID string, req *dto.ClockRequest) (*dto.AssignmentResponse, error) {
	var result *model.ShiftAssignment

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, shift, err := loadOwnAssignment(ctx, tx, orgID, assignmentID, workerID)
		if err != nil {
			return err
		}
		if a.ActualClockIn != nil {
			return ErrAlreadyClockedIn.WithMessage("已上班打卡")
		}
		if shift.Status != model.ShiftStatusInProgress {
			return invalidState("班次未开始，不能上班打卡")
		}

		now := s.now()
		method := model.ClockMethodDevice
		previous := a.Status
		a.ActualClockIn = &now
		a.ClockInMethod = &method
		a.ClockInUnverified = !req.LocationVerified
		a.UpdatedBy = &workerID
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		result = a

		if err := recordAssignmentEvent(ctx, tx, a, workerID, auditAssignmentClockIn, previous, map[string]interface{}{
			"unverified": a.ClockInUnverified,
		}); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditAssignmentClockIn,
			EntityType: entityAssignment,
			EntityID:   a.AssignmentID,
			ActorID:    workerID,
			OrgID:      orgID,
			Metadata:   map[string]interface{}{"shift_id": a.ShiftID},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "上班打卡失败", err, zap.String("assignment_id", assignmentID))
	}
	return toAssignmentResponse(result), nil
}

func (s *attendanceService) ClockOut(ctx context.Context, orgID, assignmentID, workerID string, req *dto.ClockRequest) (*dto.AssignmentResponse, error) {
	var result *model.ShiftAssignment

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, shift, err := loadOwnAssignment(ctx, tx, orgID, assignmentID, workerID)
		if err != nil {
			return err
		}
		if a.ActualClockIn == nil {
			return invalidState("尚未上班打卡")
		}
		if a.ActualClockOut != nil {
			return invalidState("已下班打卡")
		}
		if shift.Status != model.ShiftStatusInProgress && shift.Status != model.ShiftStatusCompleted {
			return invalidState("当前班次状态不允许下班打卡")
		}
		if req.BreakMinutes != nil && *req.BreakMinutes < 0 {
			return validationError("休息时长不能为负")
		}

		now := s.now()
		if now.Before(*a.ActualClockIn) {
			now = *a.ActualClockIn
		}
		method := model.ClockMethodDevice
		previous := a.Status
		a.ActualClockOut = &now
		a.ClockOutMethod = &method
		a.ClockOutUnverified = !req.LocationVerified
		if req.BreakMinutes != nil {
			a.BreakMinutes = *req.BreakMinutes
		}
		a.UpdatedBy = &workerID
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		result = a

		if err := recordAssignmentEvent(ctx, tx, a, workerID, auditAssignmentClockOut, previous, map[string]interface{}{
			"unverified":    a.ClockOutUnverified,
			"break_minutes": a.BreakMinutes,
		}); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditAssignmentClockOut,
			EntityType: entityAssignment,
			EntityID:   a.AssignmentID,
			ActorID:    workerID,
			OrgID:      orgID,
			Metadata:   map[string]interface{}{"shift_id": a.ShiftID},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "下班打卡失败", err, zap.String("assignment_id", assignmentID))
	}

	// 已下班打卡，下班提醒不再需要
	if s.notifier != nil {
		if err := s.notifier.CancelByType(ctx, result.ShiftID, workerID, model.NotificationClockOutReminder); err != nil {
			s.logger.Warn("撤销下班提醒失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
	}
	return toAssignmentResponse(result), nil
}
