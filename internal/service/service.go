package service

import (
	"go.uber.org/zap"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/repository"
	"timesheet-hub/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Identity       IdentityService
	Auth           AuthService
	Ledger         LedgerService
	Workflow       WorkflowService
	Reconciliation ReconciliationService
	Project        ProjectService
	Export         ExportService
}

// NewService 创建 Service 聚合；blacklist 为 nil 时登出不写黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	identity := NewIdentityService(repo, logger)
	ledger := NewLedgerService(repo, logger)
	return &Service{
		Identity:       identity,
		Auth:           NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Ledger:         ledger,
		Workflow:       NewWorkflowService(&cfg.Workflow, repo, ledger, logger),
		Reconciliation: NewReconciliationService(&cfg.Workflow, repo, logger),
		Project:        NewProjectService(&cfg.Feature, repo, identity, logger),
		Export:         NewExportService(repo, logger),
	}
}
