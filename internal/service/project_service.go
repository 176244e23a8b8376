package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// ProjectService 项目与任务目录
type ProjectService interface {
	// Create 创建项目。这是唯一允许为未知主体自动开通用户的流程（feature.auto_provision_users）。
	Create(ctx context.Context, principal string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	List(ctx context.Context, includeInactive bool) ([]dto.ProjectResponse, error)
	CreateTask(ctx context.Context, actor *model.User, projectID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	ListTasks(ctx context.Context, projectID string) ([]dto.TaskResponse, error)
}

type projectService struct {
	feature  *config.FeatureConfig
	repo     *repository.Repository
	identity IdentityService
	logger   *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(feature *config.FeatureConfig, repo *repository.Repository, identity IdentityService, logger *zap.Logger) ProjectService {
	return &projectService{feature: feature, repo: repo, identity: identity, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *projectService) Create(ctx context.Context, principal string, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	actor, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		if !errors.Is(err, ErrPrincipalUnknown) || !s.feature.AutoProvisionUsers {
			return nil, err
		}
		if actor, err = s.identity.Provision(ctx, principal); err != nil {
			return nil, err
		}
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.repo.Project.GetByCode(ctx, code); err == nil {
		return nil, ErrProjectCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询项目失败", zap.String("code", code), zap.Error(err))
		return nil, pkgerrors.Storage("查询项目失败", err)
	}

	project := &model.Project{
		Code:     code,
		Name:     strings.TrimSpace(req.Name),
		IsActive: true,
	}
	project.CreatedBy = &actor.UserID
	project.UpdatedBy = &actor.UserID

	if err := s.repo.Project.Create(ctx, project); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProjectCodeExists
		}
		s.logger.Error("创建项目失败", zap.Error(err))
		return nil, pkgerrors.Storage("创建项目失败", err)
	}

	s.logger.Info("创建项目", zap.String("project_id", project.ProjectID), zap.String("code", code))
	resp := toProjectResponse(project)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *projectService) List(ctx context.Context, includeInactive bool) ([]dto.ProjectResponse, error) {
	projects, err := s.repo.Project.List(ctx, includeInactive)
	if err != nil {
		s.logger.Error("查询项目列表失败", zap.Error(err))
		return nil, pkgerrors.Storage("查询项目列表失败", err)
	}

	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		result = append(result, toProjectResponse(&projects[i]))
	}
	return result, nil
}

// ────────────────────── Tasks ──────────────────────

func (s *projectService) CreateTask(ctx context.Context, actor *model.User, projectID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsActive {
		return nil, ErrProjectInactive
	}

	task := &model.Task{
		ProjectID: project.ProjectID,
		Name:      strings.TrimSpace(req.Name),
		IsActive:  true,
	}
	task.CreatedBy = &actor.UserID
	task.UpdatedBy = &actor.UserID

	if err := s.repo.Task.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, pkgerrors.Storage("创建任务失败", err)
	}

	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *projectService) ListTasks(ctx context.Context, projectID string) ([]dto.TaskResponse, error) {
	if _, err := s.getProject(ctx, projectID); err != nil {
		return nil, err
	}

	tasks, err := s.repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, pkgerrors.Storage("查询任务列表失败", err)
	}

	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, toTaskResponse(&tasks[i]))
	}
	return result, nil
}

func (s *projectService) getProject(ctx context.Context, id string) (*model.Project, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", id), zap.Error(err))
		return nil, pkgerrors.Storage("查询项目失败", err)
	}
	return project, nil
}

func toProjectResponse(p *model.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:        p.ProjectID,
		Code:      p.Code,
		Name:      p.Name,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toTaskResponse(t *model.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:        t.TaskID,
		ProjectID: t.ProjectID,
		Name:      t.Name,
		IsActive:  t.IsActive,
	}
}
