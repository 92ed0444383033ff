package service

import (
	"context"

	"go.uber.org/zap"

	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
)

// 审计动作
const (
	auditShiftCreated         = "shift.created"
	auditShiftUpdated         = "shift.updated"
	auditShiftTransitioned    = "shift.transitioned"
	auditShiftApproved        = "shift.approved"
	auditAssignmentCreated    = "assignment.created"
	auditAssignmentRemoved    = "assignment.removed"
	auditAssignmentNoShow     = "assignment.no_show"
	auditAssignmentClockIn    = "assignment.clock_in"
	auditAssignmentClockOut   = "assignment.clock_out"
	auditAssignmentOverride   = "assignment.override"
	auditCorrectionRequested  = "correction.requested"
	auditCorrectionApproved   = "correction.approved"
	auditCorrectionRejected   = "correction.rejected"
	auditTimesheetExported    = "timesheet.exported"
	entityShift               = "shift"
	entityAssignment          = "shift_assignment"
	entityCorrection          = "time_correction_request"
	entityOrganization        = "organization"
)

// auditEntry 组织级审计记录
type auditEntry struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	OrgID      string
	Metadata   map[string]interface{}
}

// recordAudit 在触发写操作的同一事务中写入审计日志，失败即回滚整个操作
func recordAudit(ctx context.Context, tx *repository.Repository, logger *zap.Logger, e auditEntry) error {
	log := &model.AuditLog{
		OrganizationID: e.OrgID,
		ActorID:        e.ActorID,
		Action:         e.Action,
		EntityType:     e.EntityType,
		EntityID:       e.EntityID,
		Metadata:       model.JSONMap(e.Metadata),
	}
	if err := tx.Audit.CreateLog(ctx, log); err != nil {
		logger.Error("写入审计日志失败", zap.String("action", e.Action), zap.Error(err))
		return err
	}

	logger.Info("audit event",
		zap.String("action", e.Action),
		zap.String("entity_type", e.EntityType),
		zap.String("entity_id", e.EntityID),
		zap.String("actor_id", e.ActorID),
		zap.String("organization_id", e.OrgID),
		zap.Any("metadata", e.Metadata),
	)
	return nil
}

// recordAssignmentEvent 写入分配级审计事件（状态前后值 + 变更字段原值）
func recordAssignmentEvent(ctx context.Context, tx *repository.Repository, a *model.ShiftAssignment, actorID, action, previousStatus string, metadata map[string]interface{}) error {
	next := a.Status
	event := &model.AssignmentAuditEvent{
		AssignmentID: a.AssignmentID,
		ActorID:      actorID,
		Action:       action,
		NewStatus:    &next,
		Metadata:     model.JSONMap(metadata),
	}
	if previousStatus != "" {
		event.PreviousStatus = &previousStatus
	}
	return tx.Audit.CreateAssignmentEvent(ctx, event)
}

