package model

import (
	"time"

	"gorm.io/gorm"
)

// 排班分配状态
const (
	AssignmentStatusActive    = "active"
	AssignmentStatusCompleted = "completed"
	AssignmentStatusNoShow    = "no_show"
	AssignmentStatusRemoved   = "removed"
)

// 打卡方式
const (
	ClockMethodDevice         = "device"
	ClockMethodManualOverride = "manual_override"
)

// 复核原因
const (
	ReviewReasonAutoFinalized     = "auto_finalized"
	ReviewReasonLateClockOut      = "late_clock_out"
	ReviewReasonCorrectionPending = "correction_pending"
)

// ShiftAssignment 排班分配表，对应 shift_assignments
// actual_* 为设备上报的原始时间；effective_* 为核算后用于计薪的时间；
// total_duration_minutes 一经写入即为计薪唯一依据，下游不再从打卡时间重算
type ShiftAssignment struct {
	AssignmentID         string     `gorm:"type:uuid;primaryKey"                       json:"assignment_id"`
	ShiftID              string     `gorm:"type:uuid;not null"                         json:"shift_id"`
	WorkerID             string     `gorm:"type:uuid;not null"                         json:"worker_id"`
	OrganizationID       string     `gorm:"type:uuid;not null"                         json:"organization_id"`
	Status               string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // active | completed | no_show | removed
	ActualClockIn        *time.Time `json:"actual_clock_in,omitempty"`
	ActualClockOut       *time.Time `json:"actual_clock_out,omitempty"`
	ClockInMethod        *string    `gorm:"type:varchar(20)"                           json:"clock_in_method,omitempty"`
	ClockOutMethod       *string    `gorm:"type:varchar(20)"                           json:"clock_out_method,omitempty"`
	ClockInUnverified    bool       `gorm:"not null;default:false"                     json:"clock_in_unverified"`
	ClockOutUnverified   bool       `gorm:"not null;default:false"                     json:"clock_out_unverified"`
	EffectiveClockIn     *time.Time `json:"effective_clock_in,omitempty"`
	EffectiveClockOut    *time.Time `json:"effective_clock_out,omitempty"`
	BreakMinutes         int        `gorm:"not null;default:0"                         json:"break_minutes"`
	TotalDurationMinutes *int       `json:"total_duration_minutes,omitempty"`
	NeedsReview          bool       `gorm:"not null;default:false"                     json:"needs_review"`
	ReviewReason         *string    `gorm:"type:varchar(50)"                           json:"review_reason,omitempty"`
	AdjustedBy           *string    `gorm:"type:uuid"                                  json:"adjusted_by,omitempty"`
	AdjustedAt           *time.Time `json:"adjusted_at,omitempty"`
	AdjustmentNotes      *string    `gorm:"type:varchar(500)"                          json:"adjustment_notes,omitempty"`
	VersionedModel

	// 关联
	Shift  *Shift `gorm:"foreignKey:ShiftID;references:ShiftID"  json:"shift,omitempty"`
	Worker *User  `gorm:"foreignKey:WorkerID;references:UserID"  json:"worker,omitempty"`
}

// TableName 指定表名
func (ShiftAssignment) TableName() string { return "shift_assignments" }

func (a *ShiftAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.AssignmentID)
	return nil
}

// CurrentClockIn 当前上班时间：优先核算值，回退原始值
func (a *ShiftAssignment) CurrentClockIn() *time.Time {
	if a.EffectiveClockIn != nil {
		return a.EffectiveClockIn
	}
	return a.ActualClockIn
}

// CurrentClockOut 当前下班时间：优先核算值，回退原始值
func (a *ShiftAssignment) CurrentClockOut() *time.Time {
	if a.EffectiveClockOut != nil {
		return a.EffectiveClockOut
	}
	return a.ActualClockOut
}

// Minutes 计薪分钟数，未核算视为 0
func (a *ShiftAssignment) Minutes() int {
	if a.TotalDurationMinutes == nil {
		return 0
	}
	return *a.TotalDurationMinutes
}
