package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftclock/backend/config"
	"shiftclock/backend/internal/dto"
	"shiftclock/backend/internal/model"
	"shiftclock/backend/internal/repository"
)

// 导出格式
const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

const exportDateLayout = "2006-01-02"

// ErrExportGenerateFail 生成导出文件失败
var ErrExportGenerateFail = errors.New("生成导出文件失败")

// exportableStatuses 可导出的分配状态，默认 completed + active
var exportableStatuses = map[string]bool{
	model.AssignmentStatusCompleted: true,
	model.AssignmentStatusActive:    true,
	model.AssignmentStatusNoShow:    true,
}

// TimesheetExport 导出结果：JSON 格式只填 Report，文件格式附带内容与建议文件名
type TimesheetExport struct {
	Report      *dto.TimesheetReport
	Format      string
	Filename    string
	ContentType string
	Body        *bytes.Buffer
}

// ExportService 工时导出业务接口
//
// 设计说明：
//   - 区间 [from, to) 按组织时区解析，跨度受 export_max_range_days 限制
//   - 加班拆分按组织口径（daily / weekly），小时数两位小数
//   - 文件以 bytes.Buffer 返回，由 Handler 层设置响应头后写出
type ExportService interface {
	ExportTimesheet(ctx context.Context, orgID, actorID string, req *dto.TimesheetExportRequest) (*TimesheetExport, error)
}

type exportService struct {
	repo   *repository.Repository
	cfg    config.TimesheetConfig
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, cfg config.TimesheetConfig, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, cfg: cfg, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTimesheet 导出工时
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportTimesheet(ctx context.Context, orgID, actorID string, req *dto.TimesheetExportRequest) (*TimesheetExport, error) {
	if _, err := requirePermission(ctx, s.repo, orgID, actorID, PermExportTimesheet); err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = ExportFormatJSON
	}
	if format != ExportFormatJSON && format != ExportFormatCSV && format != ExportFormatXLSX {
		return nil, validationError("不支持的导出格式: " + req.Format)
	}

	statuses := req.Statuses
	if len(statuses) == 0 {
		statuses = []string{model.AssignmentStatusCompleted, model.AssignmentStatusActive}
	}
	for _, st := range statuses {
		if !exportableStatuses[st] {
			return nil, validationError("不支持的分配状态: " + st)
		}
	}

	org, err := s.repo.Organization.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.WithMessage("组织不存在")
		}
		return nil, err
	}
	policy := PolicyFor(org)

	from, to, err := s.parseRange(req.From, req.To, policy.Location)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignment.ListForExport(ctx, repository.ExportFilter{
		OrganizationID: orgID,
		From:           from,
		To:             to,
		WorkerID:       req.WorkerID,
		LocationID:     req.LocationID,
		Statuses:       statuses,
	})
	if err != nil {
		s.logger.Error("查询导出数据失败", zap.String("organization_id", orgID), zap.Error(err))
		return nil, err
	}

	seed, err := s.weeklySeed(ctx, orgID, req.WorkerID, from, policy)
	if err != nil {
		s.logger.Error("查询周内前序工时失败", zap.String("organization_id", orgID), zap.Error(err))
		return nil, err
	}
	rows := SplitOvertimeSeeded(assignments, policy, seed)
	var regular, overtime int
	for _, r := range rows {
		regular += r.RegularMinutes
		overtime += r.OvertimeMinutes
	}
	report := &dto.TimesheetReport{
		OrganizationID: orgID,
		Policy:         policy.Mode,
		From:           req.From,
		To:             req.To,
		Rows:           rows,
		RegularHours:   MinutesToHours(regular),
		OvertimeHours:  MinutesToHours(overtime),
	}

	if err := recordAudit(ctx, s.repo, s.logger, auditEntry{
		Action:     auditTimesheetExported,
		EntityType: entityOrganization,
		EntityID:   orgID,
		ActorID:    actorID,
		OrgID:      orgID,
		Metadata: map[string]interface{}{
			"from":   req.From,
			"to":     req.To,
			"format": format,
			"rows":   len(rows),
		},
	}); err != nil {
		return nil, err
	}

	out := &TimesheetExport{Report: report, Format: format}
	base := fmt.Sprintf("timesheet_%s_%s", req.From, req.To)
	switch format {
	case ExportFormatCSV:
		out.Body, err = RenderTimesheetCSV(report)
		out.Filename = base + ".csv"
		out.ContentType = "text/csv; charset=utf-8"
	case ExportFormatXLSX:
		out.Body, err = RenderTimesheetXLSX(report)
		out.Filename = base + ".xlsx"
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		s.logger.Error("生成导出文件失败", zap.String("format", format), zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return out, nil
}

// weeklySeed weekly 口径下，from 不在周一时补查同一 ISO 周内 from 之前的工时
// 不按地点过滤：加班按员工整周累计
func (s *exportService) weeklySeed(ctx context.Context, orgID, workerID string, from time.Time, policy OvertimePolicy) (map[string]int, error) {
	if policy.Mode != model.OvertimePolicyWeekly {
		return nil, nil
	}
	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}
	weekStart := isoWeekStart(from, loc)
	if !weekStart.Before(from) {
		return nil, nil
	}
	prior, err := s.repo.Assignment.ListForExport(ctx, repository.ExportFilter{
		OrganizationID: orgID,
		From:           weekStart,
		To:             from,
		WorkerID:       workerID,
		Statuses:       []string{model.AssignmentStatusCompleted, model.AssignmentStatusActive},
	})
	if err != nil {
		return nil, err
	}
	return WeeklySeed(prior, loc), nil
}

// parseRange 解析 [from, to) 日期区间
func (s *exportService) parseRange(fromStr, toStr string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(exportDateLayout, strings.TrimSpace(fromStr), loc)
	if err != nil {
		return time.Time{}, time.Time{}, validationError("from 日期格式应为 YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(exportDateLayout, strings.TrimSpace(toStr), loc)
	if err != nil {
		return time.Time{}, time.Time{}, validationError("to 日期格式应为 YYYY-MM-DD")
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, validationError("to 必须晚于 from")
	}
	if to.Sub(from) > time.Duration(s.cfg.ExportMaxRangeDays)*24*time.Hour {
		return time.Time{}, time.Time{}, validationError(fmt.Sprintf("导出区间不能超过 %d 天", s.cfg.ExportMaxRangeDays))
	}
	return from, to, nil
}

// ── 文件渲染 ──

var timesheetHeaders = []string{
	"worker_id", "worker_name", "date", "iso_week", "shift_title", "status",
	"total_minutes", "regular_hours", "overtime_hours",
}

func timesheetRecord(r dto.TimesheetRow) []string {
	return []string{
		r.WorkerID,
		r.WorkerName,
		r.Date,
		r.ISOWeek,
		r.ShiftTitle,
		r.Status,
		strconv.Itoa(r.TotalMinutes),
		r.RegularHours.StringFixed(2),
		r.OvertimeHours.StringFixed(2),
	}
}

// RenderTimesheetCSV 渲染 CSV
func RenderTimesheetCSV(report *dto.TimesheetReport) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	if err := w.Write(timesheetHeaders); err != nil {
		return nil, err
	}
	for _, r := range report.Rows {
		if err := w.Write(timesheetRecord(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf, nil
}

// RenderTimesheetXLSX 渲染 Excel：标题行 + 表头 + 明细 + 合计
func RenderTimesheetXLSX(report *dto.TimesheetReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "工时"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 38)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "D", 12)
	f.SetColWidth(sheetName, "E", "E", 24)
	f.SetColWidth(sheetName, "F", "I", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	lastCol := colName(len(timesheetHeaders) - 1)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("工时报表 %s ~ %s（%s）", report.From, report.To, report.Policy))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range timesheetHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, 2), headerStyle)

	// 数据行
	row := 3
	for _, r := range report.Rows {
		f.SetCellValue(sheetName, cell("A", row), r.WorkerID)
		f.SetCellValue(sheetName, cell("B", row), r.WorkerName)
		f.SetCellValue(sheetName, cell("C", row), r.Date)
		f.SetCellValue(sheetName, cell("D", row), r.ISOWeek)
		f.SetCellValue(sheetName, cell("E", row), r.ShiftTitle)
		f.SetCellValue(sheetName, cell("F", row), r.Status)
		f.SetCellValue(sheetName, cell("G", row), r.TotalMinutes)
		f.SetCellValue(sheetName, cell("H", row), r.RegularHours.InexactFloat64())
		f.SetCellValue(sheetName, cell("I", row), r.OvertimeHours.InexactFloat64())
		row++
	}

	// 合计
	f.SetCellValue(sheetName, cell("A", row), "合计")
	f.SetCellValue(sheetName, cell("H", row), report.RegularHours.InexactFloat64())
	f.SetCellValue(sheetName, cell("I", row), report.OvertimeHours.InexactFloat64())

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
