package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
	pkgerrors "shiftclock/backend/pkg/errors"
)

// ShiftService 班次与排班业务接口
type ShiftService interface {
	CreateShift(ctx context.Context, orgID, actorID string, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error)
	GetShift(ctx context.Context, orgID, shiftID, actorID string) (*dto.ShiftResponse, error)
	UpdateShift(ctx context.Context, orgID, shiftID, actorID string, req *dto.UpdateShiftRequest) (*dto.ShiftResponse, error)
	// TransitionShift 按状态机迁移班次状态（approved 只能经由审批接口进入）
	TransitionShift(ctx context.Context, orgID, shiftID, actorID string, req *dto.TransitionShiftRequest) (*dto.ShiftResponse, error)
	AssignWorker(ctx context.Context, orgID, shiftID, actorID string, req *dto.AssignWorkerRequest) (*dto.AssignmentResponse, error)
	// UnassignWorker 取消排班（软删除），已上班打卡的员工不可取消
	UnassignWorker(ctx context.Context, orgID, shiftID, workerID, managerID string) (*dto.UnassignResponse, error)
}

type shiftService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) ShiftService {
	return &shiftService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func (s *shiftService) getShift(ctx context.Context, tx *repository.Repository, orgID, shiftID string) (*model.Shift, error) {
	shift, err := tx.Shift.GetByID(ctx, orgID, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	return shift, nil
}

// validateShiftFields 班次字段通用校验
func validateShiftFields(ctx context.Context, tx *repository.Repository, orgID string, shift *model.Shift) error {
	if strings.TrimSpace(shift.Title) == "" {
		return validationError("班次名称不能为空")
	}
	if !shift.ScheduledEnd.After(shift.ScheduledStart) {
		return validationError("计划结束时间必须晚于开始时间")
	}
	if shift.Capacity < 1 {
		return validationError("班次容量至少为 1")
	}
	if shift.LocationID != nil {
		if _, err := tx.Location.GetByID(ctx, orgID, *shift.LocationID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationError("地点不存在或已停用")
			}
			return err
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// CreateShift / GetShift / UpdateShift
// ═══════════════════════════════════════════════════════════

func (s *shiftService) CreateShift(ctx context.Context, orgID, actorID string, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error) {
	shift := &model.Shift{
		OrganizationID: orgID,
		LocationID:     req.LocationID,
		Title:          strings.TrimSpace(req.Title),
		ScheduledStart: req.ScheduledStart.UTC(),
		ScheduledEnd:   req.ScheduledEnd.UTC(),
		Capacity:       req.Capacity,
		Status:         model.ShiftStatusDraft,
	}
	if shift.Capacity == 0 {
		shift.Capacity = 1
	}
	if req.Publish {
		shift.Status = model.ShiftStatusPublished
	}
	shift.CreatedBy = &actorID

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, actorID, PermManageShift); err != nil {
			return err
		}
		if err := validateShiftFields(ctx, tx, orgID, shift); err != nil {
			return err
		}
		if err := tx.Shift.Create(ctx, shift); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditShiftCreated,
			EntityType: entityShift,
			EntityID:   shift.ShiftID,
			ActorID:    actorID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"title":  shift.Title,
				"status": shift.Status,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "创建班次失败", err)
	}
	return toShiftResponse(shift, nil), nil
}

func (s *shiftService) GetShift(ctx context.Context, orgID, shiftID, actorID string) (*dto.ShiftResponse, error) {
	if _, err := requirePermission(ctx, s.repo, orgID, actorID, PermViewShift); err != nil {
		return nil, err
	}
	shift, err := s.getShift(ctx, s.repo, orgID, shiftID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListByShift(ctx, shift.ShiftID)
	if err != nil {
		s.logger.Error("查询班次排班失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}
	return toShiftResponse(shift, assignments), nil
}

func (s *shiftService) UpdateShift(ctx context.Context, orgID, shiftID, actorID string, req *dto.UpdateShiftRequest) (*dto.ShiftResponse, error) {
	var shift *model.Shift

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, actorID, PermManageShift); err != nil {
			return err
		}
		var err error
		shift, err = s.getShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if req.Version != nil && *req.Version != shift.Version {
			return pkgerrors.ErrOptimisticLock
		}
		if !shift.IsEditable() {
			return invalidState("班次已开始或已结束，不能修改")
		}

		changed := map[string]interface{}{}
		if req.Title != nil {
			changed["previous_title"] = shift.Title
			shift.Title = strings.TrimSpace(*req.Title)
		}
		if req.LocationID != nil {
			changed["previous_location_id"] = shift.LocationID
			shift.LocationID = req.LocationID
			shift.Location = nil
		}
		if req.ScheduledStart != nil {
			changed["previous_scheduled_start"] = shift.ScheduledStart
			shift.ScheduledStart = req.ScheduledStart.UTC()
		}
		if req.ScheduledEnd != nil {
			changed["previous_scheduled_end"] = shift.ScheduledEnd
			shift.ScheduledEnd = req.ScheduledEnd.UTC()
		}
		if req.Capacity != nil {
			changed["previous_capacity"] = shift.Capacity
			shift.Capacity = *req.Capacity
		}
		if len(changed) == 0 {
			return validationError("没有需要更新的字段")
		}
		if err := validateShiftFields(ctx, tx, orgID, shift); err != nil {
			return err
		}

		if req.Capacity != nil {
			count, err := tx.Assignment.CountByShift(ctx, shift.ShiftID)
			if err != nil {
				return err
			}
			if int64(shift.Capacity) < count {
				return ErrCapacityConflict.WithMessage("容量不能小于已排班人数")
			}
		}

		shift.UpdatedBy = &actorID
		if err := tx.Shift.Update(ctx, shift); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditShiftUpdated,
			EntityType: entityShift,
			EntityID:   shift.ShiftID,
			ActorID:    actorID,
			OrgID:      orgID,
			Metadata:   changed,
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "更新班次失败", err, zap.String("shift_id", shiftID))
	}
	return toShiftResponse(shift, nil), nil
}

// ═══════════════════════════════════════════════════════════
// TransitionShift 班次状态迁移
// ═══════════════════════════════════════════════════════════
//
// 撤销审批（approved → completed）与审批同级，需要组织最高角色
// 取消班次提交后尽力撤销所有在排员工的提醒

func (s *shiftService) TransitionShift(ctx context.Context, orgID, shiftID, actorID string, req *dto.TransitionShiftRequest) (*dto.ShiftResponse, error) {
	target := strings.TrimSpace(req.Status)
	if !IsShiftStatus(target) {
		return nil, validationError("未知的班次状态: " + target)
	}
	if target == model.ShiftStatusApproved {
		return nil, validationError("审批请使用审批接口")
	}

	var shift *model.Shift
	var workers []string

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, actorID, PermManageShift); err != nil {
			return err
		}
		var err error
		shift, err = s.getShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if shift.Status == model.ShiftStatusApproved {
			if _, err := requirePermission(ctx, tx, orgID, actorID, PermApproveTimesheet); err != nil {
				return err
			}
		}
		if err := ValidateShiftTransition(shift.Status, target); err != nil {
			return err
		}

		from := shift.Status
		if err := tx.Shift.TransitionStatus(ctx, shift.ShiftID, from, target, actorID, s.now()); err != nil {
			return err
		}
		shift.Status = target
		shift.Version++
		if from == model.ShiftStatusApproved {
			shift.ApprovedAt = nil
			shift.ApprovedBy = nil
		}

		if target == model.ShiftStatusCancelled {
			assignments, err := tx.Assignment.ListByShift(ctx, shift.ShiftID)
			if err != nil {
				return err
			}
			for _, a := range assignments {
				workers = append(workers, a.WorkerID)
			}
		}

		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditShiftTransitioned,
			EntityType: entityShift,
			EntityID:   shift.ShiftID,
			ActorID:    actorID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"from": from,
				"to":   target,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "班次状态变更失败", err, zap.String("shift_id", shiftID))
	}

	for _, workerID := range workers {
		s.cancelReminders(ctx, shiftID, workerID)
	}
	return toShiftResponse(shift, nil), nil
}

// ═══════════════════════════════════════════════════════════
// AssignWorker 排班
// ═══════════════════════════════════════════════════════════

func (s *shiftService) AssignWorker(ctx context.Context, orgID, shiftID, actorID string, req *dto.AssignWorkerRequest) (*dto.AssignmentResponse, error) {
	var created *model.ShiftAssignment

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, actorID, PermManageShift); err != nil {
			return err
		}
		shift, err := s.getShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if shift.Status != model.ShiftStatusPublished && shift.Status != model.ShiftStatusAssigned {
			return invalidState("只有已发布的班次可以排班")
		}

		role, err := resolveRole(ctx, tx, orgID, req.WorkerID)
		if err != nil {
			return err
		}
		if role == RoleUnknown {
			return validationError("该员工不属于本组织")
		}

		if _, err := tx.Assignment.GetActiveByShiftAndWorker(ctx, shift.ShiftID, req.WorkerID); err == nil {
			return invalidState("该员工已在此班次中")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		count, err := tx.Assignment.CountByShift(ctx, shift.ShiftID)
		if err != nil {
			return err
		}
		if count >= int64(shift.Capacity) {
			return ErrCapacityConflict.WithMessage("班次人数已满")
		}

		created = &model.ShiftAssignment{
			ShiftID:        shift.ShiftID,
			WorkerID:       req.WorkerID,
			OrganizationID: orgID,
			Status:         model.AssignmentStatusActive,
		}
		created.CreatedBy = &actorID
		if err := tx.Assignment.Create(ctx, created); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return invalidState("该员工已在此班次中")
			}
			return err
		}

		if shift.Status == model.ShiftStatusPublished {
			if err := tx.Shift.TransitionStatus(ctx, shift.ShiftID, model.ShiftStatusPublished, model.ShiftStatusAssigned, actorID, s.now()); err != nil {
				return err
			}
		}

		if reminders := buildReminders(shift, req.WorkerID, s.now()); len(reminders) > 0 {
			if err := tx.Notification.CreateBatch(ctx, reminders); err != nil {
				return err
			}
		}

		if err := recordAssignmentEvent(ctx, tx, created, actorID, auditAssignmentCreated, "", map[string]interface{}{
			"shift_id": shift.ShiftID,
		}); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditAssignmentCreated,
			EntityType: entityAssignment,
			EntityID:   created.AssignmentID,
			ActorID:    actorID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"shift_id":  shift.ShiftID,
				"worker_id": req.WorkerID,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "排班失败", err, zap.String("shift_id", shiftID))
	}
	return toAssignmentResponse(created), nil
}

// ═══════════════════════════════════════════════════════════
// UnassignWorker 取消排班
// ═══════════════════════════════════════════════════════════
//
// 校验顺序：权限 → 班次存在 → 在排记录存在 → 未上班打卡（与班次状态无关）→ 班次未关闭
// 提醒撤销在事务提交后进行，失败只记录日志

func (s *shiftService) UnassignWorker(ctx context.Context, orgID, shiftID, workerID, managerID string) (*dto.UnassignResponse, error) {
	var assignmentID string

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, managerID, PermManageShift); err != nil {
			return err
		}
		shift, err := s.getShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}

		a, err := tx.Assignment.GetActiveByShiftAndWorker(ctx, shift.ShiftID, workerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("该员工不在此班次中")
			}
			return err
		}
		if a.ActualClockIn != nil {
			return ErrAlreadyClockedIn
		}
		if shift.IsClosed() {
			return invalidState("班次已结束或已取消，不能调整人员")
		}

		previous := a.Status
		a.Status = model.AssignmentStatusRemoved
		a.UpdatedBy = &managerID
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		assignmentID = a.AssignmentID

		// 最后一人移出后班次回到 published
		if shift.Status == model.ShiftStatusAssigned {
			remaining, err := tx.Assignment.CountByShift(ctx, shift.ShiftID)
			if err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.Shift.TransitionStatus(ctx, shift.ShiftID, model.ShiftStatusAssigned, model.ShiftStatusPublished, managerID, s.now()); err != nil {
					return err
				}
			}
		}

		if err := recordAssignmentEvent(ctx, tx, a, managerID, auditAssignmentRemoved, previous, map[string]interface{}{
			"shift_id":  shift.ShiftID,
			"worker_id": workerID,
		}); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditAssignmentRemoved,
			EntityType: entityAssignment,
			EntityID:   a.AssignmentID,
			ActorID:    managerID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"shift_id":  shift.ShiftID,
				"worker_id": workerID,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "取消排班失败", err, zap.String("shift_id", shiftID), zap.String("worker_id", workerID))
	}

	s.cancelReminders(ctx, shiftID, workerID)
	return &dto.UnassignResponse{Success: true, AssignmentID: assignmentID}, nil
}

// cancelReminders 尽力撤销某员工在该班次上的全部提醒
func (s *shiftService) cancelReminders(ctx context.Context, shiftID, workerID string) {
	if s.notifier == nil {
		return
	}
	for _, kind := range model.ReminderTypes {
		if err := s.notifier.CancelByType(ctx, shiftID, workerID, kind); err != nil {
			s.logger.Warn("撤销提醒失败",
				zap.String("shift_id", shiftID),
				zap.String("worker_id", workerID),
				zap.String("type", kind),
				zap.Error(err),
			)
		}
	}
}
