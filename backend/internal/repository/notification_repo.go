package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftclock/backend/internal/model"
)

// NotificationRepository 提醒通知数据访问接口
type NotificationRepository interface {
	CreateBatch(ctx context.Context, list []model.Notification) error
	// CancelPendingByType 撤销某人某班次指定类型的待发送提醒，返回撤销条数
	CancelPendingByType(ctx context.Context, shiftID, userID, notificationType string) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) CreateBatch(ctx context.Context, list []model.Notification) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&list).Error
}

func (r *notificationRepo) CancelPendingByType(ctx context.Context, shiftID, userID, notificationType string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("shift_id = ? AND user_id = ? AND type = ? AND status = ?",
			shiftID, userID, notificationType, model.NotificationStatusPending).
		Update("status", model.NotificationStatusCancelled)
	return result.RowsAffected, result.Error
}
