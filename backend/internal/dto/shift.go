package dto

import "time"

// ── 班次模块 DTO ──

// CreateShiftRequest 创建班次请求
type CreateShiftRequest struct {
	Title          string    `json:"title"           binding:"required,max=200"`
	LocationID     *string   `json:"location_id"     binding:"omitempty,uuid"`
	ScheduledStart time.Time `json:"scheduled_start" binding:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end"   binding:"required"`
	Capacity       int       `json:"capacity"`
	Publish        bool      `json:"publish"` // true 时直接进入 published
}

// UpdateShiftRequest 编辑班次请求（仅更新提供的字段）
type UpdateShiftRequest struct {
	Title          *string    `json:"title"           binding:"omitempty,max=200"`
	LocationID     *string    `json:"location_id"     binding:"omitempty,uuid"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	Capacity       *int       `json:"capacity"`
	Version        *int       `json:"version"` // 客户端持有的版本号，不一致时返回冲突
}

// TransitionShiftRequest 班次状态变更请求
type TransitionShiftRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignWorkerRequest 排班请求
type AssignWorkerRequest struct {
	WorkerID string `json:"worker_id" binding:"required,uuid"`
}

// ── 响应 ──

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organization_id"`
	Title          string               `json:"title"`
	LocationID     *string              `json:"location_id,omitempty"`
	ScheduledStart string               `json:"scheduled_start"`
	ScheduledEnd   string               `json:"scheduled_end"`
	Capacity       int                  `json:"capacity"`
	Status         string               `json:"status"`
	ApprovedAt     *string              `json:"approved_at,omitempty"`
	ApprovedBy     *string              `json:"approved_by,omitempty"`
	Version        int                  `json:"version"`
	Assignments    []AssignmentResponse `json:"assignments,omitempty"`
}

// ApproveShiftResponse 审批结果
type ApproveShiftResponse struct {
	Success       bool     `json:"success"`
	ShiftID       string   `json:"shift_id"`
	Completed     int      `json:"completed"`
	NoShows       int      `json:"no_shows"`
	AutoFinalized int      `json:"auto_finalized"`
	ReviewNotes   []string `json:"review_notes,omitempty"` // 需复核的 assignment id（不阻断审批）
}

// UnassignResponse 取消排班结果
type UnassignResponse struct {
	Success      bool   `json:"success"`
	AssignmentID string `json:"assignment_id"`
}
