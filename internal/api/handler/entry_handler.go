package handler

import (
	"github.com/gin-gonic/gin"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/service"
	"timesheet-hub/backend/pkg/response"
)

// EntryHandler 工时明细 HTTP 处理器
type EntryHandler struct {
	reconSvc    service.ReconciliationService
	workflowSvc service.WorkflowService
}

// NewEntryHandler 创建 EntryHandler
func NewEntryHandler(reconSvc service.ReconciliationService, workflowSvc service.WorkflowService) *EntryHandler {
	return &EntryHandler{reconSvc: reconSvc, workflowSvc: workflowSvc}
}

// BulkSave 批量保存草稿明细；存在失败条目时返回 207 与逐条结果
// PUT /api/v1/timesheets/entries/bulk
func (h *EntryHandler) BulkSave(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.BulkSaveEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.reconSvc.BulkSaveEntries(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if result.Failed > 0 {
		response.MultiStatus(c, result)
		return
	}
	response.OK(c, result)
}

// Delete 删除草稿明细
// DELETE /api/v1/timesheets/entries/:id
func (h *EntryHandler) Delete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.reconSvc.DeleteEntry(c.Request.Context(), actor, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ModifyApprovedHours 审批人修改核定工时
// PUT /api/v1/timesheets/entries/:id/approved-hours
func (h *EntryHandler) ModifyApprovedHours(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ModifyEntryHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.workflowSvc.ModifyEntryHours(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
