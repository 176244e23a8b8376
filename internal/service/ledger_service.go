package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// LedgerService 审批记录（只追加审计日志）
type LedgerService interface {
	// Append 在调用方的事务中追加一条记录。时间戳不早于该工时表最近一条记录。
	// 只可能因存储不可用失败，调用方必须让整个流转随之回滚。
	Append(ctx context.Context, txRepo *repository.Repository, entry *model.ApprovalHistoryEntry) error
	// ListForTimesheet 按时间正序分页查询，可按动作过滤
	ListForTimesheet(ctx context.Context, actor *model.User, timesheetID string, req *dto.HistoryListRequest) ([]dto.HistoryEntryResponse, int64, error)
}

type ledgerService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewLedgerService 创建 LedgerService 实例
func NewLedgerService(repo *repository.Repository, logger *zap.Logger) LedgerService {
	return &ledgerService{repo: repo, logger: logger, now: time.Now}
}

func (s *ledgerService) Append(ctx context.Context, txRepo *repository.Repository, entry *model.ApprovalHistoryEntry) error {
	if txRepo == nil {
		txRepo = s.repo
	}

	ts := s.now().UTC()
	latest, err := txRepo.ApprovalHistory.GetLatest(ctx, entry.TimesheetID)
	switch {
	case err == nil:
		// 时钟回拨时沿用上一条时间戳，保证同一工时表内单调不减
		if latest.Timestamp.After(ts) {
			ts = latest.Timestamp
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.logger.Error("查询最近审批记录失败", zap.String("timesheet_id", entry.TimesheetID), zap.Error(err))
		return pkgerrors.Storage("写入审批记录失败", err)
	}
	entry.Timestamp = ts

	if err := txRepo.ApprovalHistory.Create(ctx, entry); err != nil {
		s.logger.Error("写入审批记录失败",
			zap.String("timesheet_id", entry.TimesheetID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return pkgerrors.Storage("写入审批记录失败", err)
	}
	return nil
}

func (s *ledgerService) ListForTimesheet(ctx context.Context, actor *model.User, timesheetID string, req *dto.HistoryListRequest) ([]dto.HistoryEntryResponse, int64, error) {
	if _, err := loadVisibleTimesheet(ctx, s.repo, s.logger, actor, timesheetID); err != nil {
		return nil, 0, err
	}

	var action *model.ApprovalAction
	if req.Action != "" {
		a := model.ApprovalAction(req.Action)
		action = &a
	}

	list, total, err := s.repo.ApprovalHistory.ListByTimesheet(ctx, timesheetID, action, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询审批记录失败", zap.String("timesheet_id", timesheetID), zap.Error(err))
		return nil, 0, pkgerrors.Storage("查询审批记录失败", err)
	}

	result := make([]dto.HistoryEntryResponse, 0, len(list))
	for i := range list {
		result = append(result, toHistoryResponse(&list[i]))
	}
	return result, total, nil
}

func toHistoryResponse(h *model.ApprovalHistoryEntry) dto.HistoryEntryResponse {
	resp := dto.HistoryEntryResponse{
		ID:        h.HistoryID,
		Action:    string(h.Action),
		Comment:   h.Comment,
		EntryID:   h.EntryID,
		ActorID:   h.ActorID,
		Timestamp: h.Timestamp.Format(time.RFC3339Nano),
	}
	if h.FromStatus != nil {
		v := string(*h.FromStatus)
		resp.FromStatus = &v
	}
	if h.ToStatus != nil {
		v := string(*h.ToStatus)
		resp.ToStatus = &v
	}
	return resp
}
