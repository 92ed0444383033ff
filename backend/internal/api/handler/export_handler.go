package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/service"
	"shiftclock/backend/pkg/response"
)

// ExportHandler 工时导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTimesheet 导出工时表
// GET /api/v1/orgs/:orgId/timesheets/export?from=2026-03-02&to=2026-03-08&format=xlsx
func (h *ExportHandler) ExportTimesheet(c *gin.Context) {
	orgID, actorID, ok := orgAndActor(c)
	if !ok {
		return
	}

	var req dto.TimesheetExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "from 与 to 不能为空")
		return
	}

	export, err := h.exportSvc.ExportTimesheet(c.Request.Context(), orgID, actorID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	if export.Format == service.ExportFormatJSON {
		response.OK(c, export.Report)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(export.Filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, export.ContentType, export.Body.Bytes())
}
