package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftclock/backend/config"
	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
)

// 补卡审批动作
const (
	CorrectionActionApprove = "approve"
	CorrectionActionReject  = "reject"
)

// CorrectionService 补卡与人工修正业务接口
type CorrectionService interface {
	// RequestCorrection 员工对自己的排班提交补卡申请
	RequestCorrection(ctx context.Context, orgID, assignmentID, workerID string, req *dto.CreateCorrectionRequest) (*dto.CorrectionCreatedResponse, error)
	// ReviewCorrection 经理审批补卡申请
	ReviewCorrection(ctx context.Context, orgID, requestID, reviewerID string, req *dto.ReviewCorrectionRequest) (*dto.ReviewCorrectionResponse, error)
	// OverrideTimes 经理直接改写打卡时间，原样写入，不做宽限吸附
	OverrideTimes(ctx context.Context, orgID, assignmentID, managerID string, req *dto.OverrideTimesRequest) (*dto.OverrideTimesResponse, error)
	// ListCorrections 分页查询补卡申请
	ListCorrections(ctx context.Context, orgID, actorID string, req *dto.CorrectionListRequest) ([]dto.CorrectionResponse, int64, error)
	// AuditTrail 查询分配的审计事件（经理或分配本人）
	AuditTrail(ctx context.Context, orgID, assignmentID, actorID string) ([]dto.AuditEventResponse, error)
}

type correctionService struct {
	repo   *repository.Repository
	cfg    config.TimesheetConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewCorrectionService 创建 CorrectionService 实例
func NewCorrectionService(repo *repository.Repository, cfg config.TimesheetConfig, logger *zap.Logger) CorrectionService {
	return &correctionService{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// RequestCorrection 提交补卡申请
// ═══════════════════════════════════════════════════════════

func (s *correctionService) RequestCorrection(ctx context.Context, orgID, assignmentID, workerID string, req *dto.CreateCorrectionRequest) (*dto.CorrectionCreatedResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	var created *model.TimeCorrectionRequest

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, workerID, PermRequestCorrection); err != nil {
			return err
		}

		if utf8.RuneCountInString(reason) < s.cfg.CorrectionReasonMinLength {
			return validationError(fmt.Sprintf("补卡原因不能少于 %d 个字符", s.cfg.CorrectionReasonMinLength))
		}
		if req.ClockIn == nil && req.ClockOut == nil && req.BreakMinutes == nil {
			return validationError("至少需要提供一项修正内容")
		}
		if req.ClockIn != nil && req.ClockOut != nil && req.ClockOut.Before(*req.ClockIn) {
			return validationError("下班时间不能早于上班时间")
		}
		if req.BreakMinutes != nil && *req.BreakMinutes < 0 {
			return validationError("休息时长不能为负")
		}

		a, err := tx.Assignment.GetByID(ctx, orgID, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("排班记录不存在")
			}
			return err
		}
		if a.WorkerID != workerID {
			return ErrForbidden.WithMessage("只能为自己的排班申请补卡")
		}
		if a.Status == model.AssignmentStatusRemoved {
			return invalidState("排班已取消，不能申请补卡")
		}
		shift := a.Shift
		if shift == nil {
			if shift, err = tx.Shift.GetByID(ctx, orgID, a.ShiftID); err != nil {
				return err
			}
		}
		if shift.Status != model.ShiftStatusCompleted && shift.Status != model.ShiftStatusApproved {
			return invalidState("班次尚未结束，不能申请补卡")
		}

		if _, err := tx.Correction.GetPendingByAssignment(ctx, a.AssignmentID); err == nil {
			return ErrDuplicateRequest
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		created = &model.TimeCorrectionRequest{
			AssignmentID:          a.AssignmentID,
			WorkerID:              workerID,
			OrganizationID:        orgID,
			RequestedClockIn:      req.ClockIn,
			RequestedClockOut:     req.ClockOut,
			RequestedBreakMinutes: req.BreakMinutes,
			OriginalClockIn:       a.CurrentClockIn(),
			OriginalClockOut:      a.CurrentClockOut(),
			OriginalBreakMinutes:  a.BreakMinutes,
			Reason:                reason,
			Status:                model.CorrectionStatusPending,
		}
		created.CreatedBy = &workerID
		// 保留提交前的复核原因，审批后恢复
		metadata := map[string]interface{}{}
		if a.ReviewReason != nil && *a.ReviewReason != model.ReviewReasonCorrectionPending {
			prior := *a.ReviewReason
			created.PriorReviewReason = &prior
			metadata["previous_review_reason"] = prior
		}
		if err := tx.Correction.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrDuplicatePending) {
				return ErrDuplicateRequest
			}
			return err
		}

		pending := model.ReviewReasonCorrectionPending
		a.NeedsReview = true
		a.ReviewReason = &pending
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}

		metadata["request_id"] = created.RequestID
		if err := recordAssignmentEvent(ctx, tx, a, workerID, auditCorrectionRequested, a.Status, metadata); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditCorrectionRequested,
			EntityType: entityCorrection,
			EntityID:   created.RequestID,
			ActorID:    workerID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"assignment_id": a.AssignmentID,
				"reason":        reason,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "提交补卡申请失败", err)
	}

	return &dto.CorrectionCreatedResponse{RequestID: created.RequestID, Status: created.Status}, nil
}

// ═══════════════════════════════════════════════════════════
// ReviewCorrection 审批补卡
// ═══════════════════════════════════════════════════════════
//
// approve：逐项把申请值写入 actual 与 effective，打卡方式改为 manual_override，
// 两端 effective 时间齐全时重算计薪分钟；reject：仅清除复核标记

func (s *correctionService) ReviewCorrection(ctx context.Context, orgID, requestID, reviewerID string, req *dto.ReviewCorrectionRequest) (*dto.ReviewCorrectionResponse, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, reviewerID, PermReviewCorrection); err != nil {
			return err
		}
		if action != CorrectionActionApprove && action != CorrectionActionReject {
			return validationError("action 只能为 approve 或 reject")
		}

		cr, err := tx.Correction.GetByID(ctx, orgID, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("补卡申请不存在")
			}
			return err
		}
		if cr.Status != model.CorrectionStatusPending {
			return invalidState("补卡申请已处理")
		}

		a, err := tx.Assignment.GetByID(ctx, orgID, cr.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("排班记录不存在")
			}
			return err
		}

		now := s.now()
		previousStatus := a.Status
		metadata := map[string]interface{}{"request_id": cr.RequestID}

		if action == CorrectionActionApprove {
			if a.Status == model.AssignmentStatusRemoved {
				return invalidState("排班已取消，不能应用补卡")
			}
			changed := applyCorrection(a, cr)
			for k, v := range changed {
				metadata[k] = v
			}
			if err := recomputeAfterCorrection(a); err != nil {
				return err
			}
			a.AdjustedBy = &reviewerID
			a.AdjustedAt = &now
			a.AdjustmentNotes = req.Notes
			cr.Status = model.CorrectionStatusApproved
		} else {
			cr.Status = model.CorrectionStatusRejected
		}
		// 恢复提交前的复核原因；补卡改写了下班时间时，原有的下班类复核原因随之失效
		restored := cr.PriorReviewReason
		if action == CorrectionActionApprove && cr.RequestedClockOut != nil {
			restored = nil
		}
		a.NeedsReview = restored != nil
		a.ReviewReason = restored

		cr.ReviewedBy = &reviewerID
		cr.ReviewedAt = &now
		cr.ReviewNotes = req.Notes
		if err := tx.Correction.Resolve(ctx, cr); err != nil {
			if errors.Is(err, repository.ErrStatusChanged) {
				return invalidState("补卡申请已处理")
			}
			return err
		}
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}

		auditAction := auditCorrectionApproved
		if action == CorrectionActionReject {
			auditAction = auditCorrectionRejected
		}
		if err := recordAssignmentEvent(ctx, tx, a, reviewerID, auditAction, previousStatus, metadata); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditAction,
			EntityType: entityCorrection,
			EntityID:   cr.RequestID,
			ActorID:    reviewerID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"assignment_id": a.AssignmentID,
				"worker_id":     cr.WorkerID,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "审批补卡申请失败", err)
	}

	return &dto.ReviewCorrectionResponse{RequestID: requestID, Action: action}, nil
}

// applyCorrection 将申请中提供的字段写入分配，返回变更字段的原值
func applyCorrection(a *model.ShiftAssignment, cr *model.TimeCorrectionRequest) map[string]interface{} {
	changed := map[string]interface{}{}
	manual := model.ClockMethodManualOverride

	if cr.RequestedClockIn != nil {
		changed["previous_clock_in"] = a.CurrentClockIn()
		in := *cr.RequestedClockIn
		a.ActualClockIn = &in
		a.EffectiveClockIn = &in
		a.ClockInMethod = &manual
		a.ClockInUnverified = false
	}
	if cr.RequestedClockOut != nil {
		changed["previous_clock_out"] = a.CurrentClockOut()
		out := *cr.RequestedClockOut
		a.ActualClockOut = &out
		a.EffectiveClockOut = &out
		a.ClockOutMethod = &manual
		a.ClockOutUnverified = false
	}
	if cr.RequestedBreakMinutes != nil {
		changed["previous_break_minutes"] = a.BreakMinutes
		a.BreakMinutes = *cr.RequestedBreakMinutes
	}
	return changed
}

// recomputeAfterCorrection 补卡生效后重算状态与计薪分钟
func recomputeAfterCorrection(a *model.ShiftAssignment) error {
	if a.EffectiveClockIn != nil && a.EffectiveClockOut != nil {
		if a.EffectiveClockOut.Before(*a.EffectiveClockIn) {
			return validationError("补卡后下班时间早于上班时间")
		}
		minutes := wholeMinutes(a.EffectiveClockOut.Sub(*a.EffectiveClockIn)) - a.BreakMinutes
		if minutes < 0 {
			return validationError("补卡后计薪时长为负")
		}
		a.TotalDurationMinutes = &minutes
	}

	switch {
	case a.ActualClockIn != nil && a.ActualClockOut != nil:
		a.Status = model.AssignmentStatusCompleted
	case a.ActualClockIn != nil && a.Status == model.AssignmentStatusNoShow:
		a.Status = model.AssignmentStatusActive
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// OverrideTimes 经理修改工时
// ═══════════════════════════════════════════════════════════

func (s *correctionService) OverrideTimes(ctx context.Context, orgID, assignmentID, managerID string, req *dto.OverrideTimesRequest) (*dto.OverrideTimesResponse, error) {
	var newStatus string

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, managerID, PermOverrideTime); err != nil {
			return err
		}
		if req.ClockIn == nil && req.ClockOut == nil && req.BreakMinutes == nil {
			return validationError("至少需要提供一项修改内容")
		}
		if req.BreakMinutes != nil && *req.BreakMinutes < 0 {
			return validationError("休息时长不能为负")
		}

		a, err := tx.Assignment.GetByID(ctx, orgID, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("排班记录不存在")
			}
			return err
		}
		if a.Status == model.AssignmentStatusRemoved {
			return invalidState("排班已取消，不能修改工时")
		}

		previousStatus := a.Status
		metadata := map[string]interface{}{}
		manual := model.ClockMethodManualOverride

		if req.ClockIn != nil {
			metadata["previous_clock_in"] = a.CurrentClockIn()
			in := *req.ClockIn
			a.ActualClockIn = &in
			a.ClockInMethod = &manual
			a.ClockInUnverified = false
		}
		if req.ClockOut != nil {
			metadata["previous_clock_out"] = a.CurrentClockOut()
			out := *req.ClockOut
			a.ActualClockOut = &out
			a.ClockOutMethod = &manual
			a.ClockOutUnverified = false
		}
		if req.BreakMinutes != nil {
			metadata["previous_break_minutes"] = a.BreakMinutes
			a.BreakMinutes = *req.BreakMinutes
		}

		// 原样写入 effective，不做吸附
		in := a.ActualClockIn
		if req.ClockIn == nil {
			in = a.CurrentClockIn()
		}
		out := a.ActualClockOut
		if req.ClockOut == nil {
			out = a.CurrentClockOut()
		}

		switch {
		case in == nil && out != nil:
			return validationError("缺少上班时间，不能只设置下班时间")
		case in != nil && out != nil:
			if out.Before(*in) {
				return validationError("下班时间不能早于上班时间")
			}
			minutes := wholeMinutes(out.Sub(*in)) - a.BreakMinutes
			if minutes < 0 {
				return validationError("计薪时长不能为负")
			}
			effIn, effOut := *in, *out
			a.EffectiveClockIn = &effIn
			a.EffectiveClockOut = &effOut
			a.TotalDurationMinutes = &minutes
			a.Status = model.AssignmentStatusCompleted
		case in != nil:
			effIn := *in
			a.EffectiveClockIn = &effIn
			a.EffectiveClockOut = nil
			a.TotalDurationMinutes = nil
			a.Status = model.AssignmentStatusActive
		}

		now := s.now()
		a.AdjustedBy = &managerID
		a.AdjustedAt = &now
		a.AdjustmentNotes = req.Notes
		if err := tx.Assignment.Update(ctx, a); err != nil {
			return err
		}
		newStatus = a.Status

		if err := recordAssignmentEvent(ctx, tx, a, managerID, auditAssignmentOverride, previousStatus, metadata); err != nil {
			return err
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditAssignmentOverride,
			EntityType: entityAssignment,
			EntityID:   a.AssignmentID,
			ActorID:    managerID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"worker_id":  a.WorkerID,
				"new_status": a.Status,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "修改工时失败", err)
	}

	return &dto.OverrideTimesResponse{Success: true, NewStatus: newStatus}, nil
}

// ── 查询 ──

func (s *correctionService) ListCorrections(ctx context.Context, orgID, actorID string, req *dto.CorrectionListRequest) ([]dto.CorrectionResponse, int64, error) {
	if _, err := requirePermission(ctx, s.repo, orgID, actorID, PermReviewCorrection); err != nil {
		return nil, 0, err
	}

	list, total, err := s.repo.Correction.List(ctx, orgID, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询补卡申请列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CorrectionResponse, 0, len(list))
	for i := range list {
		result = append(result, toCorrectionResponse(&list[i]))
	}
	return result, total, nil
}

func (s *correctionService) AuditTrail(ctx context.Context, orgID, assignmentID, actorID string) ([]dto.AuditEventResponse, error) {
	role, err := resolveRole(ctx, s.repo, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if role == RoleUnknown {
		return nil, ErrForbidden
	}

	a, err := s.repo.Assignment.GetByID(ctx, orgID, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.WithMessage("排班记录不存在")
		}
		return nil, err
	}
	if !Authorize(role, PermOverrideTime) && a.WorkerID != actorID {
		return nil, ErrForbidden
	}

	events, err := s.repo.Audit.ListAssignmentEvents(ctx, a.AssignmentID)
	if err != nil {
		s.logger.Error("查询审计事件失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.AuditEventResponse, 0, len(events))
	for i := range events {
		result = append(result, toAuditEventResponse(&events[i]))
	}
	return result, nil
}
