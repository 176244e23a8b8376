package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出只读取流程引擎的结果，不改变任何状态
//   - Excel 以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 日历为每条明细生成一个全天事件，便于导入个人日历核对
type ExportService interface {
	// ExportTimesheet 导出工时表为 Excel，返回内容与建议文件名
	ExportTimesheet(ctx context.Context, actor *model.User, timesheetID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出工时明细为 iCalendar
	ExportCalendar(ctx context.Context, actor *model.User, timesheetID string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) load(ctx context.Context, actor *model.User, timesheetID string) (*model.Timesheet, error) {
	ts, err := loadVisibleTimesheet(ctx, s.repo, s.logger, actor, timesheetID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.TimesheetEntry.ListByTimesheet(ctx, ts.TimesheetID)
	if err != nil {
		s.logger.Error("查询工时明细失败", zap.String("timesheet_id", ts.TimesheetID), zap.Error(err))
		return nil, pkgerrors.Storage("查询工时明细失败", err)
	}
	ts.Entries = entries
	return ts, nil
}

// ═══════════════════════════════════════════════════════════
// ExportTimesheet 导出工时表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：员工 / 月份 / 状态
//   - 表头：日期 | 项目 | 任务 | 描述 | 填报工时 | 核定工时
//   - 末行合计

func (s *exportService) ExportTimesheet(ctx context.Context, actor *model.User, timesheetID string) (*bytes.Buffer, string, error) {
	ts, err := s.load(ctx, actor, timesheetID)
	if err != nil {
		return nil, "", err
	}

	owner := ts.UserID
	if ts.User != nil {
		owner = ts.User.Name
	}
	period := fmt.Sprintf("%04d-%02d", ts.Year, ts.Month)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "工时表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 40)
	f.SetColWidth(sheetName, "E", "F", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	hoursFmt := "0.00"
	hoursStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &hoursFmt})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 工时表（%s）", owner, period, ts.Status))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	// 表头
	headers := []string{"日期", "项目", "任务", "描述", "填报工时", "核定工时"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "F2", headerStyle)

	// 数据行
	row := 3
	for i := range ts.Entries {
		e := &ts.Entries[i]
		f.SetCellValue(sheetName, cell("A", row), e.Date.Format("2006-01-02"))
		f.SetCellValue(sheetName, cell("B", row), projectLabel(e))
		if e.Task != nil {
			f.SetCellValue(sheetName, cell("C", row), e.Task.Name)
		}
		if e.Description != nil {
			f.SetCellValue(sheetName, cell("D", row), *e.Description)
		}
		logged, _ := e.LoggedHours.Float64()
		approved, _ := e.EffectiveHours().Float64()
		f.SetCellValue(sheetName, cell("E", row), logged)
		f.SetCellValue(sheetName, cell("F", row), approved)
		row++
	}

	// 合计行
	f.SetCellValue(sheetName, cell("D", row), "合计")
	if row > 3 {
		f.SetCellFormula(sheetName, cell("E", row), fmt.Sprintf("SUM(E3:E%d)", row-1))
		f.SetCellFormula(sheetName, cell("F", row), fmt.Sprintf("SUM(F3:F%d)", row-1))
	} else {
		f.SetCellValue(sheetName, cell("E", row), 0)
		f.SetCellValue(sheetName, cell("F", row), 0)
	}
	f.SetCellStyle(sheetName, cell("E", 3), cell("F", row), hoursStyle)

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("timesheet_id", ts.TimesheetID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("工时表_%s_%s.xlsx", owner, period)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出工时明细为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, actor *model.User, timesheetID string) ([]byte, string, error) {
	ts, err := s.load(ctx, actor, timesheetID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//timesheet-hub//timesheet export//ZH")

	stamp := ts.UpdatedAt.UTC()
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}

	for i := range ts.Entries {
		e := &ts.Entries[i]
		event := cal.AddEvent(e.EntryID + "@timesheet-hub")
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(e.Date)
		event.SetAllDayEndAt(e.Date.AddDate(0, 0, 1))
		event.SetSummary(fmt.Sprintf("%s %sh", projectLabel(e), e.EffectiveHours().StringFixed(2)))
		if e.Description != nil {
			event.SetDescription(*e.Description)
		}
	}

	filename := fmt.Sprintf("timesheet_%04d-%02d.ics", ts.Year, ts.Month)
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func projectLabel(e *model.TimesheetEntry) string {
	if e.Project != nil {
		return e.Project.Code
	}
	return e.ProjectID
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
