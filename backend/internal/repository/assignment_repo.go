package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiftclock/backend/internal/model"
	pkgerrors "shiftclock/backend/pkg/errors"
)

// ExportFilter 工时导出查询条件，区间为 [From, To)
type ExportFilter struct {
	OrganizationID string
	From           time.Time
	To             time.Time
	WorkerID       string
	LocationID     string
	Statuses       []string
}

// AssignmentRepository 排班分配数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.ShiftAssignment) error
	// GetByID 按组织限定查询并预加载班次
	GetByID(ctx context.Context, orgID, id string) (*model.ShiftAssignment, error)
	// GetActiveByShiftAndWorker 查询未移除的分配
	GetActiveByShiftAndWorker(ctx context.Context, shiftID, workerID string) (*model.ShiftAssignment, error)
	// ListByShift 列出班次下未移除的分配
	ListByShift(ctx context.Context, shiftID string) ([]model.ShiftAssignment, error)
	CountByShift(ctx context.Context, shiftID string) (int64, error)
	// Update 乐观锁整行更新（不含关联），版本不匹配返回 ErrOptimisticLock
	Update(ctx context.Context, a *model.ShiftAssignment) error
	// ListForExport 按 worker、计划开始时间、分配 ID 排序，周累计加班依赖该顺序
	ListForExport(ctx context.Context, f ExportFilter) ([]model.ShiftAssignment, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.ShiftAssignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, orgID, id string) (*model.ShiftAssignment, error) {
	var a model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Preload("Shift").
		Where("assignment_id = ? AND organization_id = ?", id, orgID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) GetActiveByShiftAndWorker(ctx context.Context, shiftID, workerID string) (*model.ShiftAssignment, error) {
	var a model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND worker_id = ? AND status <> ?", shiftID, workerID, model.AssignmentStatusRemoved).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByShift(ctx context.Context, shiftID string) ([]model.ShiftAssignment, error) {
	var list []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND status <> ?", shiftID, model.AssignmentStatusRemoved).
		Order("created_at ASC, assignment_id ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) CountByShift(ctx context.Context, shiftID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ShiftAssignment{}).
		Where("shift_id = ? AND status <> ?", shiftID, model.AssignmentStatusRemoved).
		Count(&n).Error
	return n, err
}

func (r *assignmentRepo) Update(ctx context.Context, a *model.ShiftAssignment) error {
	oldVersion := a.Version
	result := r.db.WithContext(ctx).
		Model(&model.ShiftAssignment{}).
		Where("assignment_id = ? AND version = ?", a.AssignmentID, oldVersion).
		Updates(map[string]interface{}{
			"status":                 a.Status,
			"actual_clock_in":        a.ActualClockIn,
			"actual_clock_out":       a.ActualClockOut,
			"clock_in_method":        a.ClockInMethod,
			"clock_out_method":       a.ClockOutMethod,
			"clock_in_unverified":    a.ClockInUnverified,
			"clock_out_unverified":   a.ClockOutUnverified,
			"effective_clock_in":     a.EffectiveClockIn,
			"effective_clock_out":    a.EffectiveClockOut,
			"break_minutes":          a.BreakMinutes,
			"total_duration_minutes": a.TotalDurationMinutes,
			"needs_review":           a.NeedsReview,
			"review_reason":          a.ReviewReason,
			"adjusted_by":            a.AdjustedBy,
			"adjusted_at":            a.AdjustedAt,
			"adjustment_notes":       a.AdjustmentNotes,
			"updated_by":             a.UpdatedBy,
			"version":                oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version = oldVersion + 1
	return nil
}

func (r *assignmentRepo) ListForExport(ctx context.Context, f ExportFilter) ([]model.ShiftAssignment, error) {
	db := r.db.WithContext(ctx).
		Joins("JOIN shifts ON shifts.shift_id = shift_assignments.shift_id AND shifts.deleted_at IS NULL").
		Preload("Shift").
		Preload("Worker").
		Where("shift_assignments.organization_id = ?", f.OrganizationID).
		Where("shifts.scheduled_start >= ? AND shifts.scheduled_start < ?", f.From, f.To)

	if len(f.Statuses) > 0 {
		db = db.Where("shift_assignments.status IN ?", f.Statuses)
	}
	if f.WorkerID != "" {
		db = db.Where("shift_assignments.worker_id = ?", f.WorkerID)
	}
	if f.LocationID != "" {
		db = db.Where("shifts.location_id = ?", f.LocationID)
	}

	var list []model.ShiftAssignment
	err := db.
		Order("shift_assignments.worker_id ASC").
		Order("shifts.scheduled_start ASC").
		Order("shift_assignments.assignment_id ASC").
		Find(&list).Error
	return list, err
}
