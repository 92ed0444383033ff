package model

import (
	"time"

	"gorm.io/gorm"
)

// 加班计算策略
const (
	OvertimePolicyDaily  = "daily"
	OvertimePolicyWeekly = "weekly"
)

// Organization 组织表，对应 organizations
type Organization struct {
	OrganizationID         string `gorm:"type:uuid;primaryKey"                         json:"organization_id"`
	Name                   string `gorm:"type:varchar(100);not null"                   json:"name"`
	Timezone               string `gorm:"type:varchar(64);not null;default:'UTC'"      json:"timezone"`
	OvertimePolicy         string `gorm:"type:varchar(20);not null;default:'weekly'"   json:"overtime_policy"` // daily | weekly
	DailyThresholdMinutes  int    `gorm:"not null;default:480"                         json:"daily_threshold_minutes"`
	WeeklyThresholdMinutes int    `gorm:"not null;default:2400"                        json:"weekly_threshold_minutes"`
	VersionedModel
}

// TableName 指定表名
func (Organization) TableName() string { return "organizations" }

func (o *Organization) BeforeCreate(*gorm.DB) error {
	ensureID(&o.OrganizationID)
	return nil
}

// Location 解析组织时区，非法或为空时回退 UTC
func (o *Organization) Location() *time.Location {
	if o.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OrganizationMember 组织成员表，对应 organization_members（角色按组织存储）
type OrganizationMember struct {
	MemberID       string `gorm:"type:uuid;primaryKey"                       json:"member_id"`
	OrganizationID string `gorm:"type:uuid;not null"                         json:"organization_id"`
	UserID         string `gorm:"type:uuid;not null"                         json:"user_id"`
	Role           string `gorm:"type:varchar(20);not null;default:'worker'" json:"role"` // admin | manager | worker
	BaseModel
}

// TableName 指定表名
func (OrganizationMember) TableName() string { return "organization_members" }

func (m *OrganizationMember) BeforeCreate(*gorm.DB) error {
	ensureID(&m.MemberID)
	return nil
}
