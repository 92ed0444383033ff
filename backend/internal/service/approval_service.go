package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shiftclock/backend/config"
	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
)

// approvalWriteConcurrency 单次审批内并行写入分配记录的上限
const approvalWriteConcurrency = 4

// ApprovalService 工时审批业务接口
type ApprovalService interface {
	// ApproveShift 将已结束的班次核算并锁定为 approved
	ApproveShift(ctx context.Context, orgID, shiftID, actorID string) (*dto.ApproveShiftResponse, error)
}

type approvalService struct {
	repo   *repository.Repository
	cfg    config.TimesheetConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewApprovalService 创建 ApprovalService 实例
func NewApprovalService(repo *repository.Repository, cfg config.TimesheetConfig, logger *zap.Logger) ApprovalService {
	return &approvalService{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// ── 单条分配核算 ──

// assignmentOutcome 分配核算结果（纯计算，不触库）
type assignmentOutcome struct {
	Status       string
	EffectiveIn  *time.Time
	EffectiveOut *time.Time
	Minutes      int
	Dirty        bool
	ReviewReason string // 非阻断复核原因，空表示无需复核
}

// classifyAssignment 根据计划时段与打卡记录核算单条分配
//
// 规则：
//   - 无上下班打卡 → no_show，0 分钟
//   - 仅下班打卡，或下班早于上班 → 脏数据
//   - 仅上班打卡 → 自动结算至计划结束（不早于上班时间），标记 auto_finalized
//   - 上下班齐全 → 宽限吸附后计算，毛时长为负、休息为负或休息不小于毛时长均视为脏数据
//   - 下班晚于计划结束超过阈值 → 附加 late_clock_out 复核
//
// 经理改写或补卡审批写入的一侧（method = manual_override）沿用其核算值，不参与吸附与超时判定；
// 另一侧照常吸附。
func classifyAssignment(shift *model.Shift, a *model.ShiftAssignment, grace, lateThreshold time.Duration) assignmentOutcome {
	manualIn := isManualClock(a.ClockInMethod)
	manualOut := isManualClock(a.ClockOutMethod)

	in, out := a.ActualClockIn, a.ActualClockOut
	if manualIn {
		in = a.CurrentClockIn()
	}
	if manualOut {
		out = a.CurrentClockOut()
	}
	start, end := shift.ScheduledStart, shift.ScheduledEnd

	switch {
	case in == nil && out == nil:
		return assignmentOutcome{Status: model.AssignmentStatusNoShow}
	case in == nil:
		return assignmentOutcome{Dirty: true}
	case out != nil && out.Before(*in):
		return assignmentOutcome{Dirty: true}
	}
	if a.BreakMinutes < 0 {
		return assignmentOutcome{Dirty: true}
	}

	if out == nil {
		effIn := *in
		effOut := end
		if effOut.Before(effIn) {
			effOut = effIn
		}
		minutes := wholeMinutes(effOut.Sub(effIn)) - a.BreakMinutes
		if minutes < 0 {
			minutes = 0
		}
		return assignmentOutcome{
			Status:       model.AssignmentStatusCompleted,
			EffectiveIn:  &effIn,
			EffectiveOut: &effOut,
			Minutes:      minutes,
			ReviewReason: model.ReviewReasonAutoFinalized,
		}
	}

	effIn := *in
	if !manualIn && !in.After(start.Add(grace)) {
		effIn = start
	}
	effOut := *out
	if !manualOut && !out.Before(end.Add(-grace)) && out.Before(end) {
		effOut = end
	}

	gross := wholeMinutes(effOut.Sub(effIn))
	if effOut.Before(effIn) || (a.BreakMinutes > 0 && a.BreakMinutes >= gross) {
		return assignmentOutcome{Dirty: true}
	}

	result := assignmentOutcome{
		Status:       model.AssignmentStatusCompleted,
		EffectiveIn:  &effIn,
		EffectiveOut: &effOut,
		Minutes:      gross - a.BreakMinutes,
	}
	if !manualOut && out.After(end.Add(lateThreshold)) {
		result.ReviewReason = model.ReviewReasonLateClockOut
	}
	return result
}

// isManualClock 打卡方式是否为人工改写
func isManualClock(method *string) bool {
	return method != nil && *method == model.ClockMethodManualOverride
}

// wholeMinutes 时长换算为整分钟（截断）
func wholeMinutes(d time.Duration) int {
	return int(d / time.Minute)
}

// ═══════════════════════════════════════════════════════════
// ApproveShift 审批班次工时
// ═══════════════════════════════════════════════════════════
//
// 全部写入在单个事务内完成：
//   1. 权限：仅组织最高角色可审批
//   2. 班次存在且可从 completed 迁移到 approved
//   3. 逐条核算分配；任一脏数据 → DIRTY_DATA（携带 worker id），不写入任何数据
//   4. 并行写回分配核算结果（行互不相交）
//   5. 条件更新班次状态，未命中 → RACE_CONDITION（不重试）
//   6. 组织审计 1 条 + 每个 no_show 一条分配审计事件

func (s *approvalService) ApproveShift(ctx context.Context, orgID, shiftID, actorID string) (*dto.ApproveShiftResponse, error) {
	resp := &dto.ApproveShiftResponse{ShiftID: shiftID}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := requirePermission(ctx, tx, orgID, actorID, PermApproveTimesheet); err != nil {
			return err
		}

		shift, err := tx.Shift.GetByID(ctx, orgID, shiftID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShiftNotFound
			}
			return err
		}
		if err := ValidateShiftTransition(shift.Status, model.ShiftStatusApproved); err != nil {
			return err
		}

		assignments, err := tx.Assignment.ListByShift(ctx, shift.ShiftID)
		if err != nil {
			return err
		}

		// ── 核算（先全部校验，再写入） ──
		outcomes := make([]assignmentOutcome, len(assignments))
		var dirtyWorkers []string
		for i := range assignments {
			outcomes[i] = classifyAssignment(shift, &assignments[i], s.cfg.GraceWindow(), s.cfg.LateClockOutThreshold())
			if outcomes[i].Dirty {
				dirtyWorkers = append(dirtyWorkers, assignments[i].WorkerID)
			}
		}
		if len(dirtyWorkers) > 0 {
			return ErrDirtyData.WithDetails(dirtyWorkers)
		}

		// ── 并行写回 ──
		type noShow struct {
			a        *model.ShiftAssignment
			previous string
		}
		var noShows []noShow
		for i := range assignments {
			a := &assignments[i]
			o := outcomes[i]
			previous := a.Status

			a.Status = o.Status
			a.EffectiveClockIn = o.EffectiveIn
			a.EffectiveClockOut = o.EffectiveOut
			minutes := o.Minutes
			a.TotalDurationMinutes = &minutes
			if o.ReviewReason != "" {
				reason := o.ReviewReason
				a.NeedsReview = true
				a.ReviewReason = &reason
				resp.ReviewNotes = append(resp.ReviewNotes, a.AssignmentID)
			}

			switch {
			case o.Status == model.AssignmentStatusNoShow:
				resp.NoShows++
				noShows = append(noShows, noShow{a: a, previous: previous})
			case o.ReviewReason == model.ReviewReasonAutoFinalized:
				resp.AutoFinalized++
			default:
				resp.Completed++
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(approvalWriteConcurrency)
		for i := range assignments {
			a := &assignments[i]
			g.Go(func() error {
				return tx.Assignment.Update(gctx, a)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// ── 条件迁移班次状态 ──
		if err := tx.Shift.TransitionStatus(ctx, shift.ShiftID, model.ShiftStatusCompleted, model.ShiftStatusApproved, actorID, s.now()); err != nil {
			return err
		}

		// ── 审计 ──
		for _, ns := range noShows {
			if err := recordAssignmentEvent(ctx, tx, ns.a, actorID, auditAssignmentNoShow, ns.previous, map[string]interface{}{
				"shift_id": shift.ShiftID,
			}); err != nil {
				return err
			}
		}
		return recordAudit(ctx, tx, s.logger, auditEntry{
			Action:     auditShiftApproved,
			EntityType: entityShift,
			EntityID:   shift.ShiftID,
			ActorID:    actorID,
			OrgID:      orgID,
			Metadata: map[string]interface{}{
				"completed":      resp.Completed,
				"no_shows":       resp.NoShows,
				"auto_finalized": resp.AutoFinalized,
				"review_notes":   resp.ReviewNotes,
			},
		})
	})
	if err != nil {
		return nil, mapTxError(s.logger, "审批班次失败", err, zap.String("shift_id", shiftID))
	}

	resp.Success = true
	return resp, nil
}
