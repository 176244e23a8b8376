package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timesheet-hub/backend/internal/service"
	pkgerrors "timesheet-hub/backend/pkg/errors"
	"timesheet-hub/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Timesheet *TimesheetHandler
	Entry     *EntryHandler
	Project   *ProjectHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth, svc.Identity),
		Timesheet: NewTimesheetHandler(svc.Workflow, svc.Ledger),
		Entry:     NewEntryHandler(svc.Reconciliation, svc.Workflow),
		Project:   NewProjectHandler(svc.Project),
		Export:    NewExportHandler(svc.Export),
	}
}

// 业务错误码：按错误分类划分，2xxxx 为流程引擎
const (
	CodeValidationFailed   = 20001
	CodeUnauthorized       = 20003
	CodeNotFound           = 20004
	CodeConflict           = 20009
	CodeInvalidTransition  = 20022
	CodeReadOnlyState      = 20023
	CodeStorageUnavailable = 20503
)

// handleServiceError 按错误分类映射 HTTP 状态与业务码。
// Conflict 与 StorageUnavailable 标记为可重试。
func handleServiceError(c *gin.Context, err error) {
	var e *pkgerrors.Error
	if !errors.As(err, &e) {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			response.Conflict(c, CodeConflict, service.ErrVersionConflict.Message)
			return
		}
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	details := ""
	if msg := err.Error(); msg != e.Message && e.Kind != pkgerrors.KindStorageUnavailable {
		details = msg
	}

	switch e.Kind {
	case pkgerrors.KindValidationFailed:
		response.ErrorWithDetails(c, http.StatusBadRequest, CodeValidationFailed, e.Message, details)
	case pkgerrors.KindUnauthorized:
		response.ErrorWithDetails(c, http.StatusForbidden, CodeUnauthorized, e.Message, details)
	case pkgerrors.KindNotFound:
		response.ErrorWithDetails(c, http.StatusNotFound, CodeNotFound, e.Message, details)
	case pkgerrors.KindConflict:
		response.Conflict(c, CodeConflict, e.Message)
	case pkgerrors.KindInvalidTransition:
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, CodeInvalidTransition, e.Message, details)
	case pkgerrors.KindReadOnlyState:
		response.ErrorWithDetails(c, http.StatusLocked, CodeReadOnlyState, e.Message, details)
	case pkgerrors.KindStorageUnavailable:
		_ = c.Error(err)
		response.ServiceUnavailable(c, CodeStorageUnavailable, e.Message)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindFailed 请求体或查询参数校验失败
func bindFailed(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, CodeValidationFailed, "参数校验失败", err.Error())
}
