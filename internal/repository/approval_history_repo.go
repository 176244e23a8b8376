package repository

import (
	"context"

	"gorm.io/gorm"

	"timesheet-hub/backend/internal/model"
)

// ApprovalHistoryRepository 审批记录数据访问接口（只追加，不提供更新与删除）
type ApprovalHistoryRepository interface {
	Create(ctx context.Context, entry *model.ApprovalHistoryEntry) error
	// GetLatest 获取工时表最近一条审批记录；无记录时返回 gorm.ErrRecordNotFound
	GetLatest(ctx context.Context, timesheetID string) (*model.ApprovalHistoryEntry, error)
	// ListByTimesheet 按时间正序分页查询，action 为空时不过滤
	ListByTimesheet(ctx context.Context, timesheetID string, action *model.ApprovalAction, offset, limit int) ([]model.ApprovalHistoryEntry, int64, error)
}

type approvalHistoryRepo struct {
	db *gorm.DB
}

// NewApprovalHistoryRepo 创建 ApprovalHistoryRepository 实例
func NewApprovalHistoryRepo(db *gorm.DB) ApprovalHistoryRepository {
	return &approvalHistoryRepo{db: db}
}

func (r *approvalHistoryRepo) Create(ctx context.Context, entry *model.ApprovalHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *approvalHistoryRepo) GetLatest(ctx context.Context, timesheetID string) (*model.ApprovalHistoryEntry, error) {
	var entry model.ApprovalHistoryEntry
	err := r.db.WithContext(ctx).
		Where("timesheet_id = ?", timesheetID).
		Order("timestamp DESC, seq DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *approvalHistoryRepo) ListByTimesheet(ctx context.Context, timesheetID string, action *model.ApprovalAction, offset, limit int) ([]model.ApprovalHistoryEntry, int64, error) {
	var list []model.ApprovalHistoryEntry
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ApprovalHistoryEntry{}).
		Where("timesheet_id = ?", timesheetID)
	if action != nil {
		db = db.Where("action = ?", *action)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("timestamp ASC, seq ASC").
		Find(&list).Error
	return list, total, err
}
