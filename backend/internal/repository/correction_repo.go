package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftclock/backend/internal/model"
)

// CorrectionRepository 补卡申请数据访问接口
type CorrectionRepository interface {
	// Create 唯一索引冲突时返回 ErrDuplicatePending
	Create(ctx context.Context, req *model.TimeCorrectionRequest) error
	GetByID(ctx context.Context, orgID, id string) (*model.TimeCorrectionRequest, error)
	GetPendingByAssignment(ctx context.Context, assignmentID string) (*model.TimeCorrectionRequest, error)
	// Resolve 仅当申请仍为 pending 时写入终态，未命中返回 ErrStatusChanged
	Resolve(ctx context.Context, req *model.TimeCorrectionRequest) error
	List(ctx context.Context, orgID, status string, offset, limit int) ([]model.TimeCorrectionRequest, int64, error)
}

type correctionRepo struct {
	db *gorm.DB
}

// NewCorrectionRepo 创建 CorrectionRepository 实例
func NewCorrectionRepo(db *gorm.DB) CorrectionRepository {
	return &correctionRepo{db: db}
}

func (r *correctionRepo) Create(ctx context.Context, req *model.TimeCorrectionRequest) error {
	err := r.db.WithContext(ctx).Create(req).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	return err
}

func (r *correctionRepo) GetByID(ctx context.Context, orgID, id string) (*model.TimeCorrectionRequest, error) {
	var req model.TimeCorrectionRequest
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND organization_id = ?", id, orgID).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *correctionRepo) GetPendingByAssignment(ctx context.Context, assignmentID string) (*model.TimeCorrectionRequest, error) {
	var req model.TimeCorrectionRequest
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND status = ?", assignmentID, model.CorrectionStatusPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *correctionRepo) Resolve(ctx context.Context, req *model.TimeCorrectionRequest) error {
	result := r.db.WithContext(ctx).
		Model(&model.TimeCorrectionRequest{}).
		Where("request_id = ? AND status = ?", req.RequestID, model.CorrectionStatusPending).
		Updates(map[string]interface{}{
			"status":       req.Status,
			"reviewed_by":  req.ReviewedBy,
			"reviewed_at":  req.ReviewedAt,
			"review_notes": req.ReviewNotes,
			"updated_by":   req.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *correctionRepo) List(ctx context.Context, orgID, status string, offset, limit int) ([]model.TimeCorrectionRequest, int64, error) {
	var list []model.TimeCorrectionRequest
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.TimeCorrectionRequest{}).
		Where("organization_id = ?", orgID)
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC, request_id ASC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
