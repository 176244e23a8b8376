package handler

import (
	"github.com/gin-gonic/gin"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/service"
	"timesheet-hub/backend/pkg/response"
)

// TimesheetHandler 工时表与审批流转 HTTP 处理器
type TimesheetHandler struct {
	workflowSvc service.WorkflowService
	ledgerSvc   service.LedgerService
}

// NewTimesheetHandler 创建 TimesheetHandler
func NewTimesheetHandler(workflowSvc service.WorkflowService, ledgerSvc service.LedgerService) *TimesheetHandler {
	return &TimesheetHandler{workflowSvc: workflowSvc, ledgerSvc: ledgerSvc}
}

// ── 查询 ──

// ListMine 我的工时表
// GET /api/v1/timesheets
func (h *TimesheetHandler) ListMine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.workflowSvc.ListMyTimesheets(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetCurrent 按月份查询我的工时表
// GET /api/v1/timesheets/current?month=3&year=2025
func (h *TimesheetHandler) GetCurrent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	ts, err := h.workflowSvc.GetMyTimesheet(c.Request.Context(), actor, q.Month, q.Year)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, ts)
}

// ListApprovable 待我审批的工时表
// GET /api/v1/timesheets/approvable
func (h *TimesheetHandler) ListApprovable(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.workflowSvc.GetApprovableTimesheets(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Get 工时表详情
// GET /api/v1/timesheets/:id
func (h *TimesheetHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	ts, err := h.workflowSvc.GetTimesheet(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, ts)
}

// History 审批记录
// GET /api/v1/timesheets/:id/history?action=approved&page=1&page_size=20
func (h *TimesheetHandler) History(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.HistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.ledgerSvc.ListForTimesheet(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ── 流转 ──

// Submit 提交审批
// POST /api/v1/timesheets/:id/submit
func (h *TimesheetHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	transit(c, &req, func(actor *model.User) (*dto.TransitionResponse, error) {
		return h.workflowSvc.Submit(c.Request.Context(), actor, c.Param("id"), &req)
	})
}

// Approve 审批通过
// POST /api/v1/timesheets/:id/approve
func (h *TimesheetHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	transit(c, &req, func(actor *model.User) (*dto.TransitionResponse, error) {
		return h.workflowSvc.Approve(c.Request.Context(), actor, c.Param("id"), &req)
	})
}

// Reject 驳回
// POST /api/v1/timesheets/:id/reject
func (h *TimesheetHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	transit(c, &req, func(actor *model.User) (*dto.TransitionResponse, error) {
		return h.workflowSvc.Reject(c.Request.Context(), actor, c.Param("id"), &req)
	})
}

// SubmitToAdmin 组长转交管理员
// POST /api/v1/timesheets/:id/submit-to-admin
func (h *TimesheetHandler) SubmitToAdmin(c *gin.Context) {
	var req dto.SubmitToAdminRequest
	transit(c, &req, func(actor *model.User) (*dto.TransitionResponse, error) {
		return h.workflowSvc.SubmitToAdmin(c.Request.Context(), actor, c.Param("id"), &req)
	})
}

// Finish 归档
// POST /api/v1/timesheets/:id/finish
func (h *TimesheetHandler) Finish(c *gin.Context) {
	var req dto.FinishRequest
	transit(c, &req, func(actor *model.User) (*dto.TransitionResponse, error) {
		return h.workflowSvc.Finish(c.Request.Context(), actor, c.Param("id"), &req)
	})
}
