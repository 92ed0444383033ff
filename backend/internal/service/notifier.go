package service

import (
	"context"
	"fmt"
	"time"

	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
)

// Notifier 提醒调度协作方
// 取消为尽力而为：调用方只记录失败，不影响已提交的业务写入
type Notifier interface {
	CancelByType(ctx context.Context, shiftID, userID, notificationType string) error
}

type repoNotifier struct {
	repo *repository.Repository
}

// NewRepoNotifier 基于 notifications 表的提醒调度实现（投递由外部服务消费 pending 记录）
func NewRepoNotifier(repo *repository.Repository) Notifier {
	return &repoNotifier{repo: repo}
}

func (n *repoNotifier) CancelByType(ctx context.Context, shiftID, userID, notificationType string) error {
	_, err := n.repo.Notification.CancelPendingByType(ctx, shiftID, userID, notificationType)
	return err
}

// buildReminders 为一次排班生成提醒：开班前 24h、开班前 1h、计划下班时；已过去的时间点跳过
func buildReminders(shift *model.Shift, workerID string, now time.Time) []model.Notification {
	shiftID := shift.ShiftID
	local := shift.ScheduledStart.Format("2006-01-02 15:04 MST")
	plans := []struct {
		kind    string
		at      time.Time
		title   string
		content string
	}{
		{model.NotificationShiftReminder24h, shift.ScheduledStart.Add(-24 * time.Hour), "班次提醒", fmt.Sprintf("您的班次「%s」将于 %s 开始", shift.Title, local)},
		{model.NotificationShiftReminder1h, shift.ScheduledStart.Add(-time.Hour), "班次即将开始", fmt.Sprintf("您的班次「%s」将在 1 小时后开始", shift.Title)},
		{model.NotificationClockOutReminder, shift.ScheduledEnd, "下班打卡提醒", fmt.Sprintf("班次「%s」已到计划结束时间，请记得下班打卡", shift.Title)},
	}

	list := make([]model.Notification, 0, len(plans))
	for _, p := range plans {
		if !p.at.After(now) {
			continue
		}
		list = append(list, model.Notification{
			OrganizationID: shift.OrganizationID,
			UserID:         workerID,
			ShiftID:        &shiftID,
			Type:           p.kind,
			Title:          p.title,
			Content:        p.content,
			Status:         model.NotificationStatusPending,
			ScheduledFor:   p.at,
		})
	}
	return list
}
