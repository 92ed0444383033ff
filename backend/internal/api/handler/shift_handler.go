package handler

import (
	"github.com/gin-gonic/gin"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/service"
	"shiftclock/backend/pkg/response"
)

// ShiftHandler 班次模块 HTTP 处理器（含审批与排班）
type ShiftHandler struct {
	shiftSvc    service.ShiftService
	approvalSvc service.ApprovalService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService, approvalSvc service.ApprovalService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc, approvalSvc: approvalSvc}
}

// CreateShift 创建班次
// POST /api/v1/orgs/:orgId/shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}

	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	shift, err := h.shiftSvc.CreateShift(c.Request.Context(), orgID, actorID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, shift)
}

// GetShift 班次详情（含排班）
// GET /api/v1/orgs/:orgId/shifts/:id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	shiftID, ok := requireParam(c, "id", "班次ID")
	if !ok {
		return
	}

	shift, err := h.shiftSvc.GetShift(c.Request.Context(), orgID, shiftID, actorID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, shift)
}

// UpdateShift 编辑班次
// PATCH /api/v1/orgs/:orgId/shifts/:id
func (h *ShiftHandler) UpdateShift(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	shiftID, ok := requireParam(c, "id", "班次ID")
	if !ok {
		return
	}

	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	shift, err := h.shiftSvc.UpdateShift(c.Request.Context(), orgID, shiftID, actorID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, shift)
}

// TransitionShift 班次状态流转
// POST /api/v1/orgs/:orgId/shifts/:id/transition
func (h *ShiftHandler) TransitionShift(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	shiftID, ok := requireParam(c, "id", "班次ID")
	if !ok {
		return
	}

	var req dto.TransitionShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	shift, err := h.shiftSvc.TransitionShift(c.Request.Context(), orgID, shiftID, actorID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, shift)
}

// ApproveShift 审批班次工时
// POST /api/v1/orgs/:orgId/shifts/:id/approve
func (h *ShiftHandler) ApproveShift(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	shiftID, ok := requireParam(c, "id", "班次ID")
	if !ok {
		return
	}

	result, err := h.approvalSvc.ApproveShift(c.Request.Context(), orgID, shiftID, actorID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}

// AssignWorker 排入员工
// POST /api/v1/orgs/:orgId/shifts/:id/assignments
func (h *ShiftHandler) AssignWorker(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	shiftID, ok := requireParam(c, "id", "班次ID")
	if !ok {
		return
	}

	var req dto.AssignWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	assignment, err := h.shiftSvc.AssignWorker(c.Request.Context(), orgID, shiftID, actorID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, assignment)
}

// UnassignWorker 移除员工
// DELETE /api/v1/orgs/:orgId/shifts/:id/assignments/:workerId
func (h *ShiftHandler) UnassignWorker(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	shiftID, ok := requireParam(c, "id", "班次ID")
	if !ok {
		return
	}
	workerID, ok := requireParam(c, "workerId", "员工ID")
	if !ok {
		return
	}

	result, err := h.shiftSvc.UnassignWorker(c.Request.Context(), orgID, shiftID, workerID, actorID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}
