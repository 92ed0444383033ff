package service

import (
	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
)

// ── 模型 → 响应转换 ──

func toShiftResponse(s *model.Shift, assignments []model.ShiftAssignment) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:             s.ShiftID,
		OrganizationID: s.OrganizationID,
		Title:          s.Title,
		LocationID:     s.LocationID,
		ScheduledStart: dto.FormatTime(s.ScheduledStart),
		ScheduledEnd:   dto.FormatTime(s.ScheduledEnd),
		Capacity:       s.Capacity,
		Status:         s.Status,
		ApprovedAt:     dto.FormatTimePtr(s.ApprovedAt),
		ApprovedBy:     s.ApprovedBy,
		Version:        s.Version,
	}
	for i := range assignments {
		resp.Assignments = append(resp.Assignments, *toAssignmentResponse(&assignments[i]))
	}
	return resp
}

func toAssignmentResponse(a *model.ShiftAssignment) *dto.AssignmentResponse {
	resp := &dto.AssignmentResponse{
		ID:                   a.AssignmentID,
		ShiftID:              a.ShiftID,
		WorkerID:             a.WorkerID,
		Status:               a.Status,
		ActualClockIn:        dto.FormatTimePtr(a.ActualClockIn),
		ActualClockOut:       dto.FormatTimePtr(a.ActualClockOut),
		ClockInUnverified:    a.ClockInUnverified,
		ClockOutUnverified:   a.ClockOutUnverified,
		EffectiveClockIn:     dto.FormatTimePtr(a.EffectiveClockIn),
		EffectiveClockOut:    dto.FormatTimePtr(a.EffectiveClockOut),
		BreakMinutes:         a.BreakMinutes,
		TotalDurationMinutes: a.TotalDurationMinutes,
		NeedsReview:          a.NeedsReview,
		ReviewReason:         a.ReviewReason,
		AdjustedBy:           a.AdjustedBy,
		AdjustedAt:           dto.FormatTimePtr(a.AdjustedAt),
		AdjustmentNotes:      a.AdjustmentNotes,
	}
	if a.Worker != nil {
		resp.Worker = &dto.UserBrief{ID: a.Worker.UserID, Name: a.Worker.Name}
	}
	return resp
}

func toCorrectionResponse(r *model.TimeCorrectionRequest) dto.CorrectionResponse {
	return dto.CorrectionResponse{
		ID:                    r.RequestID,
		AssignmentID:          r.AssignmentID,
		WorkerID:              r.WorkerID,
		RequestedClockIn:      dto.FormatTimePtr(r.RequestedClockIn),
		RequestedClockOut:     dto.FormatTimePtr(r.RequestedClockOut),
		RequestedBreakMinutes: r.RequestedBreakMinutes,
		OriginalClockIn:       dto.FormatTimePtr(r.OriginalClockIn),
		OriginalClockOut:      dto.FormatTimePtr(r.OriginalClockOut),
		OriginalBreakMinutes:  r.OriginalBreakMinutes,
		Reason:                r.Reason,
		Status:                r.Status,
		ReviewedBy:            r.ReviewedBy,
		ReviewedAt:            dto.FormatTimePtr(r.ReviewedAt),
		ReviewNotes:           r.ReviewNotes,
		CreatedAt:             dto.FormatTime(r.CreatedAt),
	}
}

func toAuditEventResponse(e *model.AssignmentAuditEvent) dto.AuditEventResponse {
	metadata := map[string]interface{}(e.Metadata)
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return dto.AuditEventResponse{
		ID:             e.EventID,
		AssignmentID:   e.AssignmentID,
		ActorID:        e.ActorID,
		Action:         e.Action,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Metadata:       metadata,
		CreatedAt:      dto.FormatTime(e.CreatedAt),
	}
}
