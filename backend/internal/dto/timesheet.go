package dto

import "github.com/shopspring/decimal"

// ── 工时导出 DTO ──

// TimesheetExportRequest 工时导出查询参数
// 日期按组织时区解析，区间为 [from, to)
type TimesheetExportRequest struct {
	From       string   `form:"from"        binding:"required"`
	To         string   `form:"to"          binding:"required"`
	Format     string   `form:"format"`      // json（默认）| csv | xlsx
	WorkerID   string   `form:"worker_id"   binding:"omitempty,uuid"`
	LocationID string   `form:"location_id" binding:"omitempty,uuid"`
	Statuses   []string `form:"status"`      // 默认 completed + active
}

// TimesheetRow 单个班次的工时拆分
type TimesheetRow struct {
	WorkerID        string          `json:"worker_id"`
	WorkerName      string          `json:"worker_name"`
	AssignmentID    string          `json:"assignment_id"`
	ShiftID         string          `json:"shift_id"`
	ShiftTitle      string          `json:"shift_title"`
	Date            string          `json:"date"`     // 组织时区下的日期
	ISOWeek         string          `json:"iso_week"` // 2026-W10
	Status          string          `json:"status"`
	TotalMinutes    int             `json:"total_minutes"`
	RegularMinutes  int             `json:"regular_minutes"`
	OvertimeMinutes int             `json:"overtime_minutes"`
	RegularHours    decimal.Decimal `json:"regular_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
}

// TimesheetReport 导出结果
type TimesheetReport struct {
	OrganizationID string          `json:"organization_id"`
	Policy         string          `json:"policy"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Rows           []TimesheetRow  `json:"rows"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
}
