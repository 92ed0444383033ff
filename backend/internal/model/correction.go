package model

import (
	"time"

	"gorm.io/gorm"
)

// 补卡申请状态
const (
	CorrectionStatusPending  = "pending"
	CorrectionStatusApproved = "approved"
	CorrectionStatusRejected = "rejected"
)

// TimeCorrectionRequest 补卡申请表，对应 time_correction_requests
// 同一分配至多一条 pending（部分唯一索引 uk_correction_pending）
type TimeCorrectionRequest struct {
	RequestID             string     `gorm:"type:uuid;primaryKey"                        json:"request_id"`
	AssignmentID          string     `gorm:"type:uuid;not null"                          json:"assignment_id"`
	WorkerID              string     `gorm:"type:uuid;not null"                          json:"worker_id"`
	OrganizationID        string     `gorm:"type:uuid;not null"                          json:"organization_id"`
	RequestedClockIn      *time.Time `json:"requested_clock_in,omitempty"`
	RequestedClockOut     *time.Time `json:"requested_clock_out,omitempty"`
	RequestedBreakMinutes *int       `json:"requested_break_minutes,omitempty"`
	OriginalClockIn       *time.Time `json:"original_clock_in,omitempty"`
	OriginalClockOut      *time.Time `json:"original_clock_out,omitempty"`
	OriginalBreakMinutes  int        `gorm:"not null;default:0"                          json:"original_break_minutes"`
	PriorReviewReason     *string    `gorm:"type:varchar(50)"                            json:"prior_review_reason,omitempty"` // 提交前分配上的复核原因
	Reason                string     `gorm:"type:varchar(1000);not null"                 json:"reason"`
	Status                string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"` // pending | approved | rejected
	ReviewedBy            *string    `gorm:"type:uuid"                                   json:"reviewed_by,omitempty"`
	ReviewedAt            *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes           *string    `gorm:"type:varchar(500)"                           json:"review_notes,omitempty"`
	BaseModel
}

// TableName 指定表名
func (TimeCorrectionRequest) TableName() string { return "time_correction_requests" }

func (r *TimeCorrectionRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.RequestID)
	return nil
}
