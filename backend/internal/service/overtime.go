package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
)

const (
	defaultDailyThresholdMinutes  = 480
	defaultWeeklyThresholdMinutes = 2400
)

var minutesPerHour = decimal.NewFromInt(60)

// OvertimePolicy 组织加班口径
type OvertimePolicy struct {
	Mode                   string // daily | weekly
	DailyThresholdMinutes  int
	WeeklyThresholdMinutes int
	Location               *time.Location
}

// PolicyFor 读取组织加班口径，缺省阈值回退 8h / 40h
func PolicyFor(org *model.Organization) OvertimePolicy {
	p := OvertimePolicy{
		Mode:                   org.OvertimePolicy,
		DailyThresholdMinutes:  org.DailyThresholdMinutes,
		WeeklyThresholdMinutes: org.WeeklyThresholdMinutes,
		Location:               org.Location(),
	}
	if p.Mode != model.OvertimePolicyDaily {
		p.Mode = model.OvertimePolicyWeekly
	}
	if p.DailyThresholdMinutes <= 0 {
		p.DailyThresholdMinutes = defaultDailyThresholdMinutes
	}
	if p.WeeklyThresholdMinutes <= 0 {
		p.WeeklyThresholdMinutes = defaultWeeklyThresholdMinutes
	}
	return p
}

// MinutesToHours 分钟换算小时，保留两位小数
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour).Round(2)
}

// isoWeekKey 组织时区下的 ISO 周，形如 2026-W10
func isoWeekKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// isoWeekStart 组织时区下 t 所在 ISO 周的周一 00:00
func isoWeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
}

// weekKey 周累计的键
func weekKey(workerID, week string) string {
	return workerID + "|" + week
}

// WeeklySeed 汇总区间之前同一 ISO 周内已发生的计薪分钟，作为 weekly 累计的起点
func WeeklySeed(assignments []model.ShiftAssignment, loc *time.Location) map[string]int {
	if loc == nil {
		loc = time.UTC
	}
	seed := make(map[string]int)
	for i := range assignments {
		a := &assignments[i]
		if m := a.Minutes(); m > 0 {
			seed[weekKey(a.WorkerID, isoWeekKey(scheduledStart(a), loc))] += m
		}
	}
	return seed
}

// SplitOvertime 将分配的计薪分钟拆分为正常/加班工时
func SplitOvertime(assignments []model.ShiftAssignment, policy OvertimePolicy) []dto.TimesheetRow {
	return SplitOvertimeSeeded(assignments, policy, nil)
}

// SplitOvertimeSeeded 同 SplitOvertime，weekly 累计从 seed（worker|week → 分钟）起算
//
// 计薪分钟只取 total_duration_minutes（未核算视为 0）。
// weekly 口径按 (worker, ISO 周) 累计，结果依赖 worker → 计划开始 → 分配 ID 的稳定顺序，
// 入参在此处再次排序，不依赖调用方
func SplitOvertimeSeeded(assignments []model.ShiftAssignment, policy OvertimePolicy, seed map[string]int) []dto.TimesheetRow {
	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]model.ShiftAssignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]
		if a.WorkerID != b.WorkerID {
			return a.WorkerID < b.WorkerID
		}
		sa, sb := scheduledStart(a), scheduledStart(b)
		if !sa.Equal(sb) {
			return sa.Before(sb)
		}
		return a.AssignmentID < b.AssignmentID
	})

	weekly := make(map[string]int, len(seed)) // worker|week → 已累计分钟
	for k, v := range seed {
		weekly[k] = v
	}
	rows := make([]dto.TimesheetRow, 0, len(sorted))

	for i := range sorted {
		a := &sorted[i]
		start := scheduledStart(a)
		week := isoWeekKey(start, loc)
		minutes := a.Minutes()
		if minutes < 0 {
			minutes = 0
		}

		var regular int
		if policy.Mode == model.OvertimePolicyDaily {
			regular = min(minutes, policy.DailyThresholdMinutes)
		} else {
			key := weekKey(a.WorkerID, week)
			remaining := max(policy.WeeklyThresholdMinutes-weekly[key], 0)
			regular = min(minutes, remaining)
			weekly[key] += regular
		}
		overtime := minutes - regular

		row := dto.TimesheetRow{
			WorkerID:        a.WorkerID,
			AssignmentID:    a.AssignmentID,
			ShiftID:         a.ShiftID,
			Date:            start.In(loc).Format("2006-01-02"),
			ISOWeek:         week,
			Status:          a.Status,
			TotalMinutes:    minutes,
			RegularMinutes:  regular,
			OvertimeMinutes: overtime,
			RegularHours:    MinutesToHours(regular),
			OvertimeHours:   MinutesToHours(overtime),
		}
		if a.Shift != nil {
			row.ShiftTitle = a.Shift.Title
		}
		if a.Worker != nil {
			row.WorkerName = a.Worker.Name
		}
		rows = append(rows, row)
	}
	return rows
}

func scheduledStart(a *model.ShiftAssignment) time.Time {
	if a.Shift == nil {
		return time.Time{}
	}
	return a.Shift.ScheduledStart
}
