package dto

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Code string `json:"code" binding:"required,min=2,max=32,alphanum"`
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// ProjectListRequest 项目列表查询参数
type ProjectListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
}
