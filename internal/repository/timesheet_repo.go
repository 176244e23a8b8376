package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"timesheet-hub/backend/internal/model"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// TimesheetRepository 工时表数据访问接口
type TimesheetRepository interface {
	// Create 创建工时表；(user_id, month, year) 已存在时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, ts *model.Timesheet) error
	GetByID(ctx context.Context, id string) (*model.Timesheet, error)
	GetByPeriod(ctx context.Context, userID string, month, year int) (*model.Timesheet, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Timesheet, int64, error)
	// ListApprovable 待指定审批人处理的工时表，外加 queueStatuses 状态下的全部工时表（管理员队列）
	ListApprovable(ctx context.Context, approverID string, queueStatuses []model.TimesheetStatus) ([]model.Timesheet, error)
	// UpdateState 以 (status, version) 为前置条件更新流程字段，不匹配时返回 ErrOptimisticLock
	UpdateState(ctx context.Context, ts *model.Timesheet, expected model.TimesheetStatus) error
	// BumpVersion 以 (status, version) 为前置条件递增版本号，用于不改变状态的审批操作
	BumpVersion(ctx context.Context, ts *model.Timesheet, updatedBy string) error
	// LockEditable 在事务内锁定仍处于 draft/rejected 的工时表行，直到事务结束；
	// 已离开可编辑状态时返回 ErrOptimisticLock。明细写入与提交因此互斥
	LockEditable(ctx context.Context, timesheetID string) error
}

type timesheetRepo struct {
	db *gorm.DB
}

// NewTimesheetRepo 创建 TimesheetRepository 实例
func NewTimesheetRepo(db *gorm.DB) TimesheetRepository {
	return &timesheetRepo{db: db}
}

func (r *timesheetRepo) Create(ctx context.Context, ts *model.Timesheet) error {
	return r.db.WithContext(ctx).Create(ts).Error
}

func (r *timesheetRepo) GetByID(ctx context.Context, id string) (*model.Timesheet, error) {
	var ts model.Timesheet
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("timesheet_id = ?", id).
		First(&ts).Error
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *timesheetRepo) GetByPeriod(ctx context.Context, userID string, month, year int) (*model.Timesheet, error) {
	var ts model.Timesheet
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		First(&ts).Error
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *timesheetRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Timesheet, int64, error) {
	var list []model.Timesheet
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Timesheet{}).
		Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Entries").
		Offset(offset).Limit(limit).
		Order("year DESC, month DESC").
		Find(&list).Error
	return list, total, err
}

func (r *timesheetRepo) ListApprovable(ctx context.Context, approverID string, queueStatuses []model.TimesheetStatus) ([]model.Timesheet, error) {
	var list []model.Timesheet

	cond := r.db.Where("current_approver_id = ? AND status IN ?", approverID,
		[]model.TimesheetStatus{model.StatusSubmitted, model.StatusApprovedByTeamLead})
	if len(queueStatuses) > 0 {
		cond = cond.Or("status IN ?", queueStatuses)
	}

	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Entries").
		Where(cond).
		Order("submit_date ASC NULLS LAST, year DESC, month DESC").
		Find(&list).Error
	return list, err
}

func (r *timesheetRepo) UpdateState(ctx context.Context, ts *model.Timesheet, expected model.TimesheetStatus) error {
	oldVersion := ts.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Timesheet{}).
		Where("timesheet_id = ? AND status = ? AND version = ?", ts.TimesheetID, expected, oldVersion).
		Updates(map[string]interface{}{
			"status":              ts.Status,
			"submit_date":         ts.SubmitDate,
			"approve_date":        ts.ApproveDate,
			"finished_date":       ts.FinishedDate,
			"comment":             ts.Comment,
			"current_approver_id": ts.CurrentApproverID,
			"updated_by":          ts.UpdatedBy,
			"updated_at":          now,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	ts.Version = oldVersion + 1
	ts.UpdatedAt = now
	return nil
}

func (r *timesheetRepo) BumpVersion(ctx context.Context, ts *model.Timesheet, updatedBy string) error {
	oldVersion := ts.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Timesheet{}).
		Where("timesheet_id = ? AND status = ? AND version = ?", ts.TimesheetID, ts.Status, oldVersion).
		Updates(map[string]interface{}{
			"updated_by": updatedBy,
			"updated_at": now,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	ts.Version = oldVersion + 1
	ts.UpdatedAt = now
	return nil
}

func (r *timesheetRepo) LockEditable(ctx context.Context, timesheetID string) error {
	// 条件更新取得行锁；不递增 version，客户端持有的版本号保持有效
	result := r.db.WithContext(ctx).
		Model(&model.Timesheet{}).
		Where("timesheet_id = ? AND status IN ?", timesheetID,
			[]model.TimesheetStatus{model.StatusDraft, model.StatusRejected}).
		Update("updated_at", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
