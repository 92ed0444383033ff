package dto

// ── 出勤模块 DTO ──

// ClockRequest 打卡请求
// LocationVerified 为地理围栏校验结果，由调用方计算
type ClockRequest struct {
	LocationVerified bool `json:"location_verified"`
	BreakMinutes     *int `json:"break_minutes" binding:"omitempty,min=0,max=1440"` // 仅下班打卡使用
}

// AssignmentResponse 排班分配响应
type AssignmentResponse struct {
	ID                   string     `json:"id"`
	ShiftID              string     `json:"shift_id"`
	Worker               *UserBrief `json:"worker,omitempty"`
	WorkerID             string     `json:"worker_id"`
	Status               string     `json:"status"`
	ActualClockIn        *string    `json:"actual_clock_in,omitempty"`
	ActualClockOut       *string    `json:"actual_clock_out,omitempty"`
	ClockInUnverified    bool       `json:"clock_in_unverified"`
	ClockOutUnverified   bool       `json:"clock_out_unverified"`
	EffectiveClockIn     *string    `json:"effective_clock_in,omitempty"`
	EffectiveClockOut    *string    `json:"effective_clock_out,omitempty"`
	BreakMinutes         int        `json:"break_minutes"`
	TotalDurationMinutes *int       `json:"total_duration_minutes,omitempty"`
	NeedsReview          bool       `json:"needs_review"`
	ReviewReason         *string    `json:"review_reason,omitempty"`
	AdjustedBy           *string    `json:"adjusted_by,omitempty"`
	AdjustedAt           *string    `json:"adjusted_at,omitempty"`
	AdjustmentNotes      *string    `json:"adjustment_notes,omitempty"`
}
