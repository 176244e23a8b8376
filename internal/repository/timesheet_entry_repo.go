package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"timesheet-hub/backend/internal/model"
)

// TimesheetEntryRepository 工时明细数据访问接口
type TimesheetEntryRepository interface {
	Create(ctx context.Context, entry *model.TimesheetEntry) error
	GetByID(ctx context.Context, id string) (*model.TimesheetEntry, error)
	ListByTimesheet(ctx context.Context, timesheetID string) ([]model.TimesheetEntry, error)
	CountByTimesheet(ctx context.Context, timesheetID string) (int64, error)
	// Update 更新员工可编辑字段（日期、项目、任务、填报工时、描述）
	Update(ctx context.Context, entry *model.TimesheetEntry) error
	UpdateApprovedHours(ctx context.Context, id string, hours decimal.Decimal, updatedBy string) error
	Delete(ctx context.Context, id string) error
}

type timesheetEntryRepo struct {
	db *gorm.DB
}

// NewTimesheetEntryRepo 创建 TimesheetEntryRepository 实例
func NewTimesheetEntryRepo(db *gorm.DB) TimesheetEntryRepository {
	return &timesheetEntryRepo{db: db}
}

func (r *timesheetEntryRepo) Create(ctx context.Context, entry *model.TimesheetEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *timesheetEntryRepo) GetByID(ctx context.Context, id string) (*model.TimesheetEntry, error) {
	var entry model.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timesheetEntryRepo) ListByTimesheet(ctx context.Context, timesheetID string) ([]model.TimesheetEntry, error) {
	var entries []model.TimesheetEntry
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Task").
		Where("timesheet_id = ?", timesheetID).
		Order("date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timesheetEntryRepo) CountByTimesheet(ctx context.Context, timesheetID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TimesheetEntry{}).
		Where("timesheet_id = ?", timesheetID).
		Count(&count).Error
	return count, err
}

func (r *timesheetEntryRepo) Update(ctx context.Context, entry *model.TimesheetEntry) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.TimesheetEntry{}).
		Where("entry_id = ?", entry.EntryID).
		Updates(map[string]interface{}{
			"date":         entry.Date,
			"project_id":   entry.ProjectID,
			"task_id":      entry.TaskID,
			"logged_hours": entry.LoggedHours,
			"description":  entry.Description,
			"updated_by":   entry.UpdatedBy,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	entry.UpdatedAt = now
	return nil
}

func (r *timesheetEntryRepo) UpdateApprovedHours(ctx context.Context, id string, hours decimal.Decimal, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.TimesheetEntry{}).
		Where("entry_id = ?", id).
		Updates(map[string]interface{}{
			"approved_hours": hours,
			"updated_by":     updatedBy,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *timesheetEntryRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("entry_id = ?", id).
		Delete(&model.TimesheetEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
