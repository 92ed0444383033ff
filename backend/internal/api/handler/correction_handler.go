package handler

import (
	"github.com/gin-gonic/gin"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/service"
	"shiftclock/backend/pkg/response"
)

// CorrectionHandler 工时更正与人工调整 HTTP 处理器
type CorrectionHandler struct {
	correctionSvc service.CorrectionService
}

// NewCorrectionHandler 创建 CorrectionHandler
func NewCorrectionHandler(correctionSvc service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{correctionSvc: correctionSvc}
}

// RequestCorrection 员工提交更正申请
// POST /api/v1/orgs/:orgId/assignments/:id/corrections
func (h *CorrectionHandler) RequestCorrection(c *gin.Context) {
	orgID, workerID, ok := orgAndActor(c)
	if !ok {
		return
	}
	assignmentID, ok := requireParam(c, "id", "排班ID")
	if !ok {
		return
	}

	var req dto.CreateCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	result, err := h.correctionSvc.RequestCorrection(c.Request.Context(), orgID, assignmentID, workerID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, result)
}

// ReviewCorrection 审核更正申请
// POST /api/v1/orgs/:orgId/corrections/:id/review
func (h *CorrectionHandler) ReviewCorrection(c *gin.Context) {
	orgID, reviewerID, ok := orgAndActor(c)
	if !ok {
		return
	}
	requestID, ok := requireParam(c, "id", "申请ID")
	if !ok {
		return
	}

	var req dto.ReviewCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	result, err := h.correctionSvc.ReviewCorrection(c.Request.Context(), orgID, requestID, reviewerID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}

// OverrideTimes 管理员直接改写打卡时间
// PUT /api/v1/orgs/:orgId/assignments/:id/times
func (h *CorrectionHandler) OverrideTimes(c *gin.Context) {
	orgID, managerID, ok := orgAndActor(c)
	if !ok {
		return
	}
	assignmentID, ok := requireParam(c, "id", "排班ID")
	if !ok {
		return
	}

	var req dto.OverrideTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	result, err := h.correctionSvc.OverrideTimes(c.Request.Context(), orgID, assignmentID, managerID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}

// ListCorrections 更正申请列表
// GET /api/v1/orgs/:orgId/corrections?status=pending&page=1&page_size=20
func (h *CorrectionHandler) ListCorrections(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}

	var req dto.CorrectionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	list, total, err := h.correctionSvc.ListCorrections(c.Request.Context(), orgID, actorID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// AuditTrail 排班审计轨迹
// GET /api/v1/orgs/:orgId/assignments/:id/audit
func (h *CorrectionHandler) AuditTrail(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}
	assignmentID, ok := requireParam(c, "id", "排班ID")
	if !ok {
		return
	}

	events, err := h.correctionSvc.AuditTrail(c.Request.Context(), orgID, assignmentID, actorID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": events})
}
