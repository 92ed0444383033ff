package model

import (
	"time"

	"gorm.io/gorm"
)

// AssignmentAuditEvent 分配审计事件表，对应 assignment_audit_events（只增不改）
type AssignmentAuditEvent struct {
	EventID        string    `gorm:"type:uuid;primaryKey"               json:"event_id"`
	AssignmentID   string    `gorm:"type:uuid;not null"                 json:"assignment_id"`
	ActorID        string    `gorm:"type:uuid;not null"                 json:"actor_id"`
	Action         string    `gorm:"type:varchar(50);not null"          json:"action"`
	PreviousStatus *string   `gorm:"type:varchar(20)"                   json:"previous_status,omitempty"`
	NewStatus      *string   `gorm:"type:varchar(20)"                   json:"new_status,omitempty"`
	Metadata       JSONMap   `gorm:"type:jsonb;not null"                json:"metadata"` // 变更字段及原值
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (AssignmentAuditEvent) TableName() string { return "assignment_audit_events" }

func (e *AssignmentAuditEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.EventID)
	return nil
}

// AuditLog 组织审计日志表，对应 audit_logs（只增不改）
type AuditLog struct {
	AuditLogID     string    `gorm:"type:uuid;primaryKey"               json:"audit_log_id"`
	OrganizationID string    `gorm:"type:uuid;not null"                 json:"organization_id"`
	ActorID        string    `gorm:"type:uuid;not null"                 json:"actor_id"`
	Action         string    `gorm:"type:varchar(50);not null"          json:"action"`
	EntityType     string    `gorm:"type:varchar(50);not null"          json:"entity_type"`
	EntityID       string    `gorm:"type:uuid;not null"                 json:"entity_id"`
	Metadata       JSONMap   `gorm:"type:jsonb;not null"                json:"metadata"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }

func (l *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.AuditLogID)
	return nil
}
