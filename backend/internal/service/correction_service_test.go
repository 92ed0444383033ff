package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestCorrectionService(env *testEnv) *correctionService {
	return &correctionService{repo: env.repo, cfg: env.cfg.Timesheet, logger: env.logger, now: env.clock()}
}

// seedClockedAssignment 已上下班打卡的分配（08:58 → 17:20）
func seedClockedAssignment(env *testEnv) {
	env.addShift(testShiftID, model.ShiftStatusCompleted)
	env.addAssignment("asg-1", testShiftID, testWorker, at(shiftStart, -2*time.Minute), at(shiftEnd, 20*time.Minute))
}

const validReason = "忘记打下班卡，实际 17:00 离开"

// ════════════════════════════════════════════════════════════
// RequestCorrection 测试
// ════════════════════════════════════════════════════════════

func TestCorrectionService_Request_Success(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)

	resp, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &dto.CreateCorrectionRequest{
		ClockOut: at(shiftEnd, 0),
		Reason:   validReason,
	})
	if err != nil {
		t.Fatalf("提交补卡失败: %v", err)
	}
	if resp.Status != model.CorrectionStatusPending || resp.RequestID == "" {
		t.Errorf("期望 pending，实际 %+v", resp)
	}

	cr := env.store.corrections[resp.RequestID]
	if cr.OriginalClockOut == nil || !cr.OriginalClockOut.Equal(shiftEnd.Add(20*time.Minute)) {
		t.Errorf("original_clock_out 应快照原始下班时间，实际 %v", cr.OriginalClockOut)
	}
	a := env.assignment("asg-1")
	if !a.NeedsReview || a.ReviewReason == nil || *a.ReviewReason != model.ReviewReasonCorrectionPending {
		t.Error("提交补卡后应标记 needs_review")
	}
}

func TestCorrectionService_Request_SnapshotPrefersEffective(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	a := env.store.assignments["asg-1"]
	a.EffectiveClockIn = at(shiftStart, 0)
	env.store.assignments["asg-1"] = a
	svc := setupTestCorrectionService(env)

	resp, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &dto.CreateCorrectionRequest{
		BreakMinutes: intPtr(30),
		Reason:       validReason,
	})
	if err != nil {
		t.Fatalf("提交补卡失败: %v", err)
	}
	cr := env.store.corrections[resp.RequestID]
	if !cr.OriginalClockIn.Equal(shiftStart) {
		t.Errorf("original_clock_in 应取 effective 值，实际 %v", cr.OriginalClockIn)
	}
	if !cr.OriginalClockOut.Equal(shiftEnd.Add(20 * time.Minute)) {
		t.Errorf("original_clock_out 应回退 actual 值，实际 %v", cr.OriginalClockOut)
	}
}

func TestCorrectionService_Request_Validation(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)

	cases := []struct {
		name string
		req  dto.CreateCorrectionRequest
	}{
		{"原因过短", dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: "太短了"}},
		{"九个汉字按字符计数不足", dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: "只有九个字的原因呀"}},
		{"原因只有空白", dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: "            "}},
		{"未提供任何字段", dto.CreateCorrectionRequest{Reason: validReason}},
		{"下班早于上班", dto.CreateCorrectionRequest{ClockIn: at(shiftEnd, 0), ClockOut: at(shiftStart, 0), Reason: validReason}},
	}
	for _, tc := range cases {
		_, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &tc.req)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: 期望 VALIDATION_ERROR，实际: %v", tc.name, err)
		}
	}
	if len(env.store.corrections) != 0 {
		t.Error("校验失败不应创建申请")
	}
}

func TestCorrectionService_Request_ReasonCountsCharacters(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)

	// 10 个汉字，按字符计数恰好满足
	_, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &dto.CreateCorrectionRequest{
		ClockOut: at(shiftEnd, 0),
		Reason:   "设备没网络信号未打卡",
	})
	if err != nil {
		t.Errorf("10 个字符的原因应通过，实际: %v", err)
	}
}

func TestCorrectionService_Request_NotOwnerOrMissing(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)
	req := &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason}

	if _, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker2, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("他人排班应 FORBIDDEN，实际: %v", err)
	}
	if _, err := svc.RequestCorrection(context.Background(), testOrg, "missing", testWorker, req); !errors.Is(err, ErrNotFound) {
		t.Errorf("不存在的排班应 NOT_FOUND，实际: %v", err)
	}
}

func TestCorrectionService_Request_Duplicate(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)
	req := &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason}

	if _, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, req); err != nil {
		t.Fatalf("首次提交失败: %v", err)
	}
	if _, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, req); !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("重复提交应 DUPLICATE_REQUEST，实际: %v", err)
	}

	// 预检未命中时由唯一索引兜底
	env.store.hidePending = true
	if _, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, req); !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("唯一索引冲突应 DUPLICATE_REQUEST，实际: %v", err)
	}
}

func TestCorrectionService_Request_RemovedAssignment(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	a := env.store.assignments["asg-1"]
	a.Status = model.AssignmentStatusRemoved
	env.store.assignments["asg-1"] = a
	svc := setupTestCorrectionService(env)

	_, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &dto.CreateCorrectionRequest{
		ClockOut: at(shiftEnd, 0), Reason: validReason,
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("已取消排班应 INVALID_STATE，实际: %v", err)
	}
}

func TestCorrectionService_Request_ShiftNotFinished(t *testing.T) {
	for _, st := range []string{model.ShiftStatusAssigned, model.ShiftStatusInProgress, model.ShiftStatusCancelled} {
		env := newTestEnv()
		env.addShift(testShiftID, st)
		env.addAssignment("asg-1", testShiftID, testWorker, at(shiftStart, 0), nil)
		svc := setupTestCorrectionService(env)

		_, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &dto.CreateCorrectionRequest{
			ClockOut: at(shiftEnd, 0), Reason: validReason,
		})
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s 班次申请补卡应 INVALID_STATE，实际: %v", st, err)
		}
		if len(env.store.corrections) != 0 {
			t.Errorf("%s 班次不应创建申请", st)
		}
	}
}

func TestCorrectionService_Request_ApprovedShiftNoShow(t *testing.T) {
	env := newTestEnv()
	env.addShift(testShiftID, model.ShiftStatusApproved)
	env.addAssignment("asg-1", testShiftID, testWorker, nil, nil)
	a := env.store.assignments["asg-1"]
	a.Status = model.AssignmentStatusNoShow
	env.store.assignments["asg-1"] = a
	svc := setupTestCorrectionService(env)

	if _, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, &dto.CreateCorrectionRequest{
		ClockIn: at(shiftStart, 0), ClockOut: at(shiftEnd, 0), Reason: validReason,
	}); err != nil {
		t.Errorf("已审批班次的缺勤记录应可申请补卡，实际: %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// ReviewCorrection 测试
// ════════════════════════════════════════════════════════════

func submitCorrection(t *testing.T, svc *correctionService, req *dto.CreateCorrectionRequest) string {
	t.Helper()
	resp, err := svc.RequestCorrection(context.Background(), testOrg, "asg-1", testWorker, req)
	if err != nil {
		t.Fatalf("提交补卡失败: %v", err)
	}
	return resp.RequestID
}

func TestCorrectionService_Review_ApproveCopiesOnlySuppliedFields(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)
	id := submitCorrection(t, svc, &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason})

	resp, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{
		Action: "approve",
		Notes:  strPtr("核实监控"),
	})
	if err != nil {
		t.Fatalf("审批补卡失败: %v", err)
	}
	if resp.Action != CorrectionActionApprove || resp.RequestID != id {
		t.Errorf("响应不符: %+v", resp)
	}

	a := env.assignment("asg-1")
	if !a.ActualClockOut.Equal(shiftEnd) || !a.EffectiveClockOut.Equal(shiftEnd) {
		t.Error("clock_out 应同时写入 actual 与 effective")
	}
	if a.ClockOutMethod == nil || *a.ClockOutMethod != model.ClockMethodManualOverride {
		t.Error("clock_out_method 应为 manual_override")
	}
	if a.ClockInMethod != nil {
		t.Error("未提供的 clock_in 不应被修改")
	}
	if !a.ActualClockIn.Equal(shiftStart.Add(-2 * time.Minute)) {
		t.Error("未提供的 actual_clock_in 不应被修改")
	}
	if a.NeedsReview || a.ReviewReason != nil {
		t.Error("审批后应清除 needs_review")
	}
	if a.AdjustedBy == nil || *a.AdjustedBy != testManager {
		t.Error("应记录调整人")
	}

	cr := env.store.corrections[id]
	if cr.Status != model.CorrectionStatusApproved || cr.ReviewedBy == nil || *cr.ReviewedBy != testManager {
		t.Errorf("申请应为 approved 并记录审批人，实际 %+v", cr)
	}
}

func TestCorrectionService_Review_ApproveRecomputesMinutes(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	a := env.store.assignments["asg-1"]
	a.EffectiveClockIn = at(shiftStart, 0)
	a.EffectiveClockOut = at(shiftEnd, 20*time.Minute)
	a.TotalDurationMinutes = intPtr(500)
	env.store.assignments["asg-1"] = a
	svc := setupTestCorrectionService(env)
	id := submitCorrection(t, svc, &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), BreakMinutes: intPtr(30), Reason: validReason})

	if _, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{Action: "approve"}); err != nil {
		t.Fatalf("审批补卡失败: %v", err)
	}
	got := env.assignment("asg-1")
	if got.Minutes() != 450 || got.BreakMinutes != 30 {
		t.Errorf("期望 480-30=450 分钟，实际 %d（休息 %d）", got.Minutes(), got.BreakMinutes)
	}
	if got.Status != model.AssignmentStatusCompleted {
		t.Errorf("期望 completed，实际 %s", got.Status)
	}
}

func TestCorrectionService_Review_Reject(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)
	id := submitCorrection(t, svc, &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason})

	if _, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{Action: "reject"}); err != nil {
		t.Fatalf("驳回失败: %v", err)
	}
	a := env.assignment("asg-1")
	if a.NeedsReview {
		t.Error("驳回后应清除 needs_review")
	}
	if !a.ActualClockOut.Equal(shiftEnd.Add(20 * time.Minute)) {
		t.Error("驳回不应修改打卡时间")
	}
	if env.store.corrections[id].Status != model.CorrectionStatusRejected {
		t.Error("申请应为 rejected")
	}

	// 已处理的申请再次审批
	_, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{Action: "approve"})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("已处理的申请应 INVALID_STATE，实际: %v", err)
	}
}

func TestCorrectionService_Review_Errors(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)
	id := submitCorrection(t, svc, &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason})

	if _, err := svc.ReviewCorrection(context.Background(), testOrg, id, testWorker, &dto.ReviewCorrectionRequest{Action: "approve"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("员工审批应 FORBIDDEN，实际: %v", err)
	}
	if _, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{Action: "maybe"}); !errors.Is(err, ErrValidation) {
		t.Errorf("未知动作应 VALIDATION_ERROR，实际: %v", err)
	}
	if _, err := svc.ReviewCorrection(context.Background(), testOrg, "missing", testManager, &dto.ReviewCorrectionRequest{Action: "approve"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("不存在的申请应 NOT_FOUND，实际: %v", err)
	}
}

func TestCorrectionService_Review_RestoresPriorReviewReason(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	a := env.store.assignments["asg-1"]
	late := model.ReviewReasonLateClockOut
	a.NeedsReview = true
	a.ReviewReason = &late
	env.store.assignments["asg-1"] = a
	svc := setupTestCorrectionService(env)

	id := submitCorrection(t, svc, &dto.CreateCorrectionRequest{BreakMinutes: intPtr(30), Reason: validReason})
	cr := env.store.corrections[id]
	if cr.PriorReviewReason == nil || *cr.PriorReviewReason != late {
		t.Errorf("申请应保存原复核原因，实际 %v", cr.PriorReviewReason)
	}
	if got := env.store.events[0].Metadata["previous_review_reason"]; got != late {
		t.Errorf("审计事件应记录原复核原因，实际 %v", got)
	}

	// 驳回：恢复原复核原因
	if _, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{Action: "reject"}); err != nil {
		t.Fatalf("驳回失败: %v", err)
	}
	got := env.assignment("asg-1")
	if !got.NeedsReview || got.ReviewReason == nil || *got.ReviewReason != late {
		t.Errorf("驳回后应恢复 late_clock_out，实际 %v/%v", got.NeedsReview, got.ReviewReason)
	}

	// 批准修正下班时间：下班类复核原因失效
	id = submitCorrection(t, svc, &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason})
	if _, err := svc.ReviewCorrection(context.Background(), testOrg, id, testManager, &dto.ReviewCorrectionRequest{Action: "approve"}); err != nil {
		t.Fatalf("审批补卡失败: %v", err)
	}
	got = env.assignment("asg-1")
	if got.NeedsReview || got.ReviewReason != nil {
		t.Errorf("下班时间已修正，应清除复核标记，实际 %v/%v", got.NeedsReview, got.ReviewReason)
	}
}

// ════════════════════════════════════════════════════════════
// OverrideTimes 测试
// ════════════════════════════════════════════════════════════

func TestCorrectionService_Override_NeverSnaps(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)

	// 提前 30 分钟上班，经理改写后保持原值
	resp, err := svc.OverrideTimes(context.Background(), testOrg, "asg-1", testManager, &dto.OverrideTimesRequest{
		ClockIn:  at(shiftStart, -30*time.Minute),
		ClockOut: at(shiftEnd, -3*time.Minute),
	})
	if err != nil {
		t.Fatalf("修改工时失败: %v", err)
	}
	if !resp.Success || resp.NewStatus != model.AssignmentStatusCompleted {
		t.Errorf("响应不符: %+v", resp)
	}

	a := env.assignment("asg-1")
	if !a.EffectiveClockIn.Equal(shiftStart.Add(-30 * time.Minute)) {
		t.Errorf("effective_clock_in 不应被吸附，实际 %s", a.EffectiveClockIn)
	}
	if !a.EffectiveClockOut.Equal(shiftEnd.Add(-3 * time.Minute)) {
		t.Errorf("effective_clock_out 不应被吸附，实际 %s", a.EffectiveClockOut)
	}
	if a.Minutes() != 507 {
		t.Errorf("期望 507 分钟，实际 %d", a.Minutes())
	}
	if len(env.store.events) != 1 || len(env.store.logs) != 1 {
		t.Errorf("期望分配审计与组织审计各 1 条，实际 %d/%d", len(env.store.events), len(env.store.logs))
	}
}

func TestCorrectionService_Override_ClockInOnlyIsActive(t *testing.T) {
	env := newTestEnv()
	env.addShift(testShiftID, model.ShiftStatusInProgress)
	env.addAssignment("asg-1", testShiftID, testWorker, nil, nil)
	svc := setupTestCorrectionService(env)

	resp, err := svc.OverrideTimes(context.Background(), testOrg, "asg-1", testManager, &dto.OverrideTimesRequest{
		ClockIn: at(shiftStart, 0),
	})
	if err != nil {
		t.Fatalf("修改工时失败: %v", err)
	}
	if resp.NewStatus != model.AssignmentStatusActive {
		t.Errorf("只有上班时间应为 active，实际 %s", resp.NewStatus)
	}
	if env.assignment("asg-1").TotalDurationMinutes != nil {
		t.Error("只有上班时间时不应有计薪分钟")
	}
}

func TestCorrectionService_Override_Errors(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)

	cases := []struct {
		name  string
		actor string
		id    string
		req   dto.OverrideTimesRequest
		want  error
	}{
		{"员工无权", testWorker, "asg-1", dto.OverrideTimesRequest{ClockIn: at(shiftStart, 0)}, ErrForbidden},
		{"未提供字段", testManager, "asg-1", dto.OverrideTimesRequest{Notes: strPtr("x")}, ErrValidation},
		{"不存在", testManager, "missing", dto.OverrideTimesRequest{ClockIn: at(shiftStart, 0)}, ErrNotFound},
		{"下班早于上班", testManager, "asg-1", dto.OverrideTimesRequest{ClockIn: at(shiftEnd, time.Hour)}, ErrValidation},
		{"休息超过时长", testManager, "asg-1", dto.OverrideTimesRequest{BreakMinutes: intPtr(600)}, ErrValidation},
	}
	for _, tc := range cases {
		_, err := svc.OverrideTimes(context.Background(), testOrg, tc.id, tc.actor, &tc.req)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: 期望 %v，实际: %v", tc.name, tc.want, err)
		}
	}
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func TestCorrectionService_ListAndAuditTrail(t *testing.T) {
	env := newTestEnv()
	seedClockedAssignment(env)
	svc := setupTestCorrectionService(env)
	submitCorrection(t, svc, &dto.CreateCorrectionRequest{ClockOut: at(shiftEnd, 0), Reason: validReason})

	list, total, err := svc.ListCorrections(context.Background(), testOrg, testManager, &dto.CorrectionListRequest{Status: "pending"})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("期望 1 条 pending，实际 total=%d err=%v", total, err)
	}
	if _, _, err := svc.ListCorrections(context.Background(), testOrg, testWorker, &dto.CorrectionListRequest{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("员工查询列表应 FORBIDDEN，实际: %v", err)
	}

	events, err := svc.AuditTrail(context.Background(), testOrg, "asg-1", testWorker)
	if err != nil || len(events) != 1 || events[0].Action != auditCorrectionRequested {
		t.Errorf("本人应能查看审计事件，实际 %v / %v", events, err)
	}
	if _, err := svc.AuditTrail(context.Background(), testOrg, "asg-1", testWorker2); !errors.Is(err, ErrForbidden) {
		t.Errorf("他人查看审计应 FORBIDDEN，实际: %v", err)
	}
}
