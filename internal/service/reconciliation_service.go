package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// ReconciliationService 草稿明细合并
//
// 把客户端持有的明细集合合并进工时表：无 id 的新建，有 id 的按需更新。
// 各条明细相互独立、并发写入，单条失败不影响其他条目，结果逐条返回。
// 不删除请求中缺失的明细（显式删除走 DeleteEntry），也不写审批记录。
type ReconciliationService interface {
	BulkSaveEntries(ctx context.Context, actor *model.User, req *dto.BulkSaveEntriesRequest) (*dto.BulkSaveEntriesResponse, error)
	// DeleteEntry 本人在 draft/rejected 状态下删除明细
	DeleteEntry(ctx context.Context, actor *model.User, entryID string) error
}

type reconciliationService struct {
	cfg    *config.WorkflowConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReconciliationService 创建 ReconciliationService 实例
func NewReconciliationService(cfg *config.WorkflowConfig, repo *repository.Repository, logger *zap.Logger) ReconciliationService {
	return &reconciliationService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── BulkSaveEntries ──────────────────────

func (s *reconciliationService) BulkSaveEntries(ctx context.Context, actor *model.User, req *dto.BulkSaveEntriesRequest) (*dto.BulkSaveEntriesResponse, error) {
	// 1. 取得（或首次创建）当月工时表
	ts, err := s.getOrCreateTimesheet(ctx, actor, req.Month, req.Year)
	if err != nil {
		return nil, err
	}

	// 2. 状态闸门：每次调用时重新判断，整批拒绝
	if !ts.Status.Editable() {
		return nil, ErrReadOnlyState
	}

	// 3. 逐条并发写入
	results := make([]dto.BulkEntryResult, len(req.Entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BulkSaveConcurrency)
	for i := range req.Entries {
		i := i
		g.Go(func() error {
			results[i] = s.saveEntry(gctx, actor, ts, i, &req.Entries[i])
			return nil
		})
	}
	_ = g.Wait()

	resp := &dto.BulkSaveEntriesResponse{
		TimesheetID: ts.TimesheetID,
		Status:      string(ts.Status),
		Results:     results,
	}
	for _, r := range results {
		if r.Operation == dto.EntryOpFailed {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	s.logger.Info("批量保存工时明细",
		zap.String("timesheet_id", ts.TimesheetID),
		zap.String("user_id", actor.UserID),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// getOrCreateTimesheet 首次保存时以 draft 创建；并发创建撞唯一索引时改为读取已存在的记录
func (s *reconciliationService) getOrCreateTimesheet(ctx context.Context, actor *model.User, month, year int) (*model.Timesheet, error) {
	ts, err := s.repo.Timesheet.GetByPeriod(ctx, actor.UserID, month, year)
	if err == nil {
		return ts, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询工时表失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, pkgerrors.Storage("查询工时表失败", err)
	}

	ts = &model.Timesheet{
		UserID: actor.UserID,
		Month:  month,
		Year:   year,
		Status: model.StatusDraft,
	}
	ts.Version = 1
	ts.CreatedBy = &actor.UserID
	ts.UpdatedBy = &actor.UserID

	if err := s.repo.Timesheet.Create(ctx, ts); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := s.repo.Timesheet.GetByPeriod(ctx, actor.UserID, month, year)
			if gerr != nil {
				s.logger.Error("重新读取工时表失败", zap.String("user_id", actor.UserID), zap.Error(gerr))
				return nil, pkgerrors.Storage("查询工时表失败", gerr)
			}
			return existing, nil
		}
		s.logger.Error("创建工时表失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, pkgerrors.Storage("创建工时表失败", err)
	}

	s.logger.Info("创建工时表",
		zap.String("timesheet_id", ts.TimesheetID),
		zap.String("user_id", actor.UserID),
		zap.Int("month", month),
		zap.Int("year", year),
	)
	return ts, nil
}

func (s *reconciliationService) saveEntry(ctx context.Context, actor *model.User, ts *model.Timesheet, index int, item *dto.BulkEntryItem) dto.BulkEntryResult {
	result := dto.BulkEntryResult{Index: index, TempKey: item.TempKey}

	fields, err := s.validateEntry(ctx, ts, item)
	if err != nil {
		return failed(result, err)
	}

	if item.IsNew() {
		fields.TimesheetID = ts.TimesheetID
		fields.CreatedBy = &actor.UserID
		fields.UpdatedBy = &actor.UserID
		err := s.writeEntry(ctx, ts.TimesheetID, func(txRepo *repository.Repository) error {
			return txRepo.TimesheetEntry.Create(ctx, fields)
		})
		if err != nil {
			return failed(result, s.entryWriteError(err, "创建工时明细失败", zap.String("timesheet_id", ts.TimesheetID)))
		}
		result.EntryID = fields.EntryID
		result.Operation = dto.EntryOpCreated
		return result
	}

	result.EntryID = *item.ID
	existing, err := loadEntry(ctx, s.repo, s.logger, *item.ID)
	if err != nil {
		return failed(result, err)
	}
	if existing.TimesheetID != ts.TimesheetID {
		return failed(result, ErrEntryForeign)
	}
	if sameEntryFields(existing, fields) {
		result.Operation = dto.EntryOpUnchanged
		return result
	}

	existing.Date = fields.Date
	existing.ProjectID = fields.ProjectID
	existing.TaskID = fields.TaskID
	existing.LoggedHours = fields.LoggedHours
	existing.Description = fields.Description
	existing.UpdatedBy = &actor.UserID
	err = s.writeEntry(ctx, ts.TimesheetID, func(txRepo *repository.Repository) error {
		return txRepo.TimesheetEntry.Update(ctx, existing)
	})
	if err != nil {
		return failed(result, s.entryWriteError(err, "更新工时明细失败", zap.String("entry_id", existing.EntryID)))
	}
	result.Operation = dto.EntryOpUpdated
	return result
}

// validateEntry 校验单条明细并转换为模型字段
func (s *reconciliationService) validateEntry(ctx context.Context, ts *model.Timesheet, item *dto.BulkEntryItem) (*model.TimesheetEntry, error) {
	date, err := time.Parse("2006-01-02", item.Date)
	if err != nil {
		return nil, ErrDateInvalid
	}
	if !ts.InPeriod(date) {
		return nil, ErrDateOutOfPeriod
	}
	if err := validateHours(item.LoggedHours, s.cfg.MaxEntryHours, false); err != nil {
		return nil, err
	}

	project, err := s.repo.Project.GetByID(ctx, item.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryProject
		}
		s.logger.Error("查询项目失败", zap.String("project_id", item.ProjectID), zap.Error(err))
		return nil, pkgerrors.Storage("查询项目失败", err)
	}
	if !project.IsActive {
		return nil, ErrEntryProject
	}

	taskID := item.TaskID
	if taskID != nil && *taskID == "" {
		taskID = nil
	}
	if taskID != nil {
		task, err := s.repo.Task.GetByID(ctx, *taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEntryTask
			}
			s.logger.Error("查询任务失败", zap.String("task_id", *taskID), zap.Error(err))
			return nil, pkgerrors.Storage("查询任务失败", err)
		}
		if task.ProjectID != project.ProjectID || !task.IsActive {
			return nil, ErrEntryTask
		}
	}

	return &model.TimesheetEntry{
		Date:        date,
		ProjectID:   project.ProjectID,
		TaskID:      taskID,
		LoggedHours: item.LoggedHours,
		Description: trimmed(item.Description),
	}, nil
}

// ────────────────────── DeleteEntry ──────────────────────

func (s *reconciliationService) DeleteEntry(ctx context.Context, actor *model.User, entryID string) error {
	entry, err := loadEntry(ctx, s.repo, s.logger, entryID)
	if err != nil {
		return err
	}
	ts, err := loadTimesheet(ctx, s.repo, s.logger, entry.TimesheetID)
	if err != nil {
		return err
	}
	if ts.UserID != actor.UserID {
		return ErrNotOwner
	}
	if !ts.Status.Editable() {
		return ErrReadOnlyState
	}

	err = s.writeEntry(ctx, ts.TimesheetID, func(txRepo *repository.Repository) error {
		return txRepo.TimesheetEntry.Delete(ctx, entryID)
	})
	if err != nil {
		return s.entryWriteError(err, "删除工时明细失败", zap.String("entry_id", entryID))
	}

	s.logger.Info("删除工时明细",
		zap.String("timesheet_id", ts.TimesheetID),
		zap.String("entry_id", entryID),
		zap.String("actor_id", actor.UserID),
	)
	return nil
}

// ── 辅助函数 ──

// writeEntry 在锁定工时表行的事务内写明细；入口处的状态判断只是快速失败，
// 真正的闸门是这里的条件锁，与 Submit 的状态写入互斥
func (s *reconciliationService) writeEntry(ctx context.Context, timesheetID string, write func(txRepo *repository.Repository) error) error {
	return s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Timesheet.LockEditable(ctx, timesheetID); err != nil {
			return err
		}
		return write(txRepo)
	})
}

func (s *reconciliationService) entryWriteError(err error, op string, field zap.Field) error {
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return ErrReadOnlyState
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrEntryNotFound
	}
	s.logger.Error(op, field, zap.Error(err))
	return pkgerrors.Storage(op, err)
}

func failed(r dto.BulkEntryResult, err error) dto.BulkEntryResult {
	r.Operation = dto.EntryOpFailed
	r.ErrorCode = string(pkgerrors.KindOf(err))
	if r.ErrorCode == "" {
		r.ErrorCode = string(pkgerrors.KindStorageUnavailable)
	}
	r.Error = err.Error()
	return r
}

func sameEntryFields(a, b *model.TimesheetEntry) bool {
	return a.Date.Equal(b.Date) &&
		a.ProjectID == b.ProjectID &&
		equalPtr(a.TaskID, b.TaskID) &&
		a.LoggedHours.Equal(b.LoggedHours) &&
		equalPtr(a.Description, b.Description)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
