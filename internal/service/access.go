package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// canReview 判断 actor 能否对处于审核中的工时表执行审批类操作。
// 当前审批人总是可以；管理员可处理组长已通过的工时表，
// 在 admin_direct_approve 打开时也可越过组长直接处理已提交的工时表。
// 任何人都不能审批自己的工时表。
func canReview(cfg *config.WorkflowConfig, actor *model.User, ts *model.Timesheet) bool {
	if actor == nil || !actor.Role.IsApprover() || actor.UserID == ts.UserID {
		return false
	}
	if ts.CurrentApproverID != nil && *ts.CurrentApproverID == actor.UserID {
		return true
	}
	if actor.Role != model.RoleAdmin {
		return false
	}
	return ts.Status == model.StatusApprovedByTeamLead ||
		(ts.Status == model.StatusSubmitted && cfg.AdminDirectApprove)
}

// canView 本人、当前审批人、组长与管理员可查看
func canView(actor *model.User, ts *model.Timesheet) bool {
	if actor == nil {
		return false
	}
	if actor.UserID == ts.UserID || actor.Role.IsApprover() {
		return true
	}
	return ts.CurrentApproverID != nil && *ts.CurrentApproverID == actor.UserID
}

// checkVersion 调用方携带的版本号与当前版本不一致时返回冲突
func checkVersion(ts *model.Timesheet, expected *int) error {
	if expected != nil && *expected != ts.Version {
		return fmt.Errorf("%w (期望 version=%d，当前=%d)", ErrVersionConflict, *expected, ts.Version)
	}
	return nil
}

// loadTimesheet 读取工时表，记录不存在映射为 NotFound，其余错误映射为 StorageUnavailable
func loadTimesheet(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.Timesheet, error) {
	ts, err := repo.Timesheet.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimesheetNotFound
		}
		logger.Error("查询工时表失败", zap.String("timesheet_id", id), zap.Error(err))
		return nil, pkgerrors.Storage("查询工时表失败", err)
	}
	return ts, nil
}

// loadVisibleTimesheet 读取工时表并校验查看权限
func loadVisibleTimesheet(ctx context.Context, repo *repository.Repository, logger *zap.Logger, actor *model.User, id string) (*model.Timesheet, error) {
	ts, err := loadTimesheet(ctx, repo, logger, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, ts) {
		return nil, ErrTimesheetForbidden
	}
	return ts, nil
}

// loadEntry 读取工时明细
func loadEntry(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.TimesheetEntry, error) {
	entry, err := repo.TimesheetEntry.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		logger.Error("查询工时明细失败", zap.String("entry_id", id), zap.Error(err))
		return nil, pkgerrors.Storage("查询工时明细失败", err)
	}
	return entry, nil
}
