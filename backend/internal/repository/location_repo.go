package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftclock/backend/internal/model"
)

// LocationRepository 地点数据访问接口
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	// GetByID 仅返回本组织下启用中的地点
	GetByID(ctx context.Context, orgID, id string) (*model.Location, error)
}

type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepo 创建 LocationRepository 实例
func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *locationRepo) GetByID(ctx context.Context, orgID, id string) (*model.Location, error) {
	var loc model.Location
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND organization_id = ? AND is_active = ?", id, orgID, true).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
