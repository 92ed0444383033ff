package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftclock/backend/internal/model"
)

// AuditRepository 审计记录数据访问接口（只提供写入与查询，不提供修改/删除）
type AuditRepository interface {
	CreateAssignmentEvent(ctx context.Context, event *model.AssignmentAuditEvent) error
	ListAssignmentEvents(ctx context.Context, assignmentID string) ([]model.AssignmentAuditEvent, error)
	CreateLog(ctx context.Context, log *model.AuditLog) error
}

type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo 创建 AuditRepository 实例
func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) CreateAssignmentEvent(ctx context.Context, event *model.AssignmentAuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditRepo) ListAssignmentEvents(ctx context.Context, assignmentID string) ([]model.AssignmentAuditEvent, error) {
	var events []model.AssignmentAuditEvent
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, event_id ASC").
		Find(&events).Error
	return events, err
}

func (r *auditRepo) CreateLog(ctx context.Context, log *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
