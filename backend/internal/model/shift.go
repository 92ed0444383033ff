package model

import (
	"time"

	"gorm.io/gorm"
)

// 班次状态
const (
	ShiftStatusDraft      = "draft"
	ShiftStatusPublished  = "published"
	ShiftStatusAssigned   = "assigned"
	ShiftStatusInProgress = "in-progress"
	ShiftStatusCompleted  = "completed"
	ShiftStatusApproved   = "approved"
	ShiftStatusCancelled  = "cancelled"
)

// Shift 班次表，对应 shifts
type Shift struct {
	ShiftID        string     `gorm:"type:uuid;primaryKey"                      json:"shift_id"`
	OrganizationID string     `gorm:"type:uuid;not null"                        json:"organization_id"`
	LocationID     *string    `gorm:"type:uuid"                                 json:"location_id,omitempty"`
	Title          string     `gorm:"type:varchar(200);not null"                json:"title"`
	ScheduledStart time.Time  `gorm:"not null"                                  json:"scheduled_start"`
	ScheduledEnd   time.Time  `gorm:"not null"                                  json:"scheduled_end"`
	Capacity       int        `gorm:"not null;default:1"                        json:"capacity"`
	Status         string     `gorm:"type:varchar(20);not null;default:'draft'" json:"status"` // draft | published | assigned | in-progress | completed | approved | cancelled
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ApprovedBy     *string    `gorm:"type:uuid"                                 json:"approved_by,omitempty"`
	VersionedModel

	// 关联
	Location *Location `gorm:"foreignKey:LocationID;references:LocationID" json:"location,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

func (s *Shift) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ShiftID)
	return nil
}

// IsEditable 仅开工前的班次允许修改时间/容量等字段
func (s *Shift) IsEditable() bool {
	switch s.Status {
	case ShiftStatusDraft, ShiftStatusPublished, ShiftStatusAssigned:
		return true
	}
	return false
}

// IsClosed 已结束或已取消的班次不再接受人员变动
func (s *Shift) IsClosed() bool {
	switch s.Status {
	case ShiftStatusCompleted, ShiftStatusApproved, ShiftStatusCancelled:
		return true
	}
	return false
}
