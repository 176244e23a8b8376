package handler

import (
	"github.com/gin-gonic/gin"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/service"
	"timesheet-hub/backend/pkg/response"
)

// ProjectHandler 项目与任务 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// List 项目列表
// GET /api/v1/projects?include_inactive=true
func (h *ProjectHandler) List(c *gin.Context) {
	var req dto.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.projectSvc.List(c.Request.Context(), req.IncludeInactive)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create 创建项目。只需请求主体，未知主体可按配置自动开通
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	principal, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	project, err := h.projectSvc.Create(c.Request.Context(), principal, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, project)
}

// ListTasks 项目任务列表
// GET /api/v1/projects/:id/tasks
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	list, err := h.projectSvc.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateTask 创建任务
// POST /api/v1/projects/:id/tasks
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	task, err := h.projectSvc.CreateTask(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, task)
}
