package dto

import "time"

// ── 补卡模块 DTO ──

// CreateCorrectionRequest 员工补卡申请
type CreateCorrectionRequest struct {
	ClockIn      *time.Time `json:"clock_in"`
	ClockOut     *time.Time `json:"clock_out"`
	BreakMinutes *int       `json:"break_minutes" binding:"omitempty,min=0,max=1440"`
	Reason       string     `json:"reason"        binding:"required,max=1000"`
}

// ReviewCorrectionRequest 经理审批补卡
type ReviewCorrectionRequest struct {
	Action string  `json:"action" binding:"required"` // approve | reject
	Notes  *string `json:"notes"  binding:"omitempty,max=500"`
}

// OverrideTimesRequest 经理直接修改工时（不做宽限吸附）
type OverrideTimesRequest struct {
	ClockIn      *time.Time `json:"clock_in"`
	ClockOut     *time.Time `json:"clock_out"`
	BreakMinutes *int       `json:"break_minutes" binding:"omitempty,min=0,max=1440"`
	Notes        *string    `json:"notes"         binding:"omitempty,max=500"`
}

// CorrectionListRequest 补卡申请列表查询参数
type CorrectionListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	PaginationRequest
}

// ── 响应 ──

// CorrectionCreatedResponse 提交补卡结果
type CorrectionCreatedResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// ReviewCorrectionResponse 审批补卡结果
type ReviewCorrectionResponse struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
}

// OverrideTimesResponse 修改工时结果
type OverrideTimesResponse struct {
	Success   bool   `json:"success"`
	NewStatus string `json:"new_status"`
}

// CorrectionResponse 补卡申请详情
type CorrectionResponse struct {
	ID                    string  `json:"id"`
	AssignmentID          string  `json:"assignment_id"`
	WorkerID              string  `json:"worker_id"`
	RequestedClockIn      *string `json:"requested_clock_in,omitempty"`
	RequestedClockOut     *string `json:"requested_clock_out,omitempty"`
	RequestedBreakMinutes *int    `json:"requested_break_minutes,omitempty"`
	OriginalClockIn       *string `json:"original_clock_in,omitempty"`
	OriginalClockOut      *string `json:"original_clock_out,omitempty"`
	OriginalBreakMinutes  int     `json:"original_break_minutes"`
	Reason                string  `json:"reason"`
	Status                string  `json:"status"`
	ReviewedBy            *string `json:"reviewed_by,omitempty"`
	ReviewedAt            *string `json:"reviewed_at,omitempty"`
	ReviewNotes           *string `json:"review_notes,omitempty"`
	CreatedAt             string  `json:"created_at"`
}
