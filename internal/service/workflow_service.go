package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// WorkflowService 工时表审批流程引擎
//
// 状态图固定：
//
//	draft/rejected ──submit──▶ submitted ──approve(组长)──▶ approved_by_team_lead
//	submitted/approved_by_team_lead ──approve(管理员)──▶ approved ──finish──▶ finished
//	submitted/approved_by_team_lead ──reject──▶ rejected
//	approved_by_team_lead ──submitToAdmin──▶ submitted（审批人改为指定管理员）
//
// 每次流转：读取 → 校验版本与来源状态 → 鉴权 → 校验参数 →
// 在同一事务中以 (status, version) 为条件写入并追加一条审批记录。
// 并发调用者至多一个成功，其余得到 Conflict。
type WorkflowService interface {
	Submit(ctx context.Context, actor *model.User, timesheetID string, req *dto.SubmitRequest) (*dto.TransitionResponse, error)
	Approve(ctx context.Context, actor *model.User, timesheetID string, req *dto.ApproveRequest) (*dto.TransitionResponse, error)
	Reject(ctx context.Context, actor *model.User, timesheetID string, req *dto.RejectRequest) (*dto.TransitionResponse, error)
	SubmitToAdmin(ctx context.Context, actor *model.User, timesheetID string, req *dto.SubmitToAdminRequest) (*dto.TransitionResponse, error)
	Finish(ctx context.Context, actor *model.User, timesheetID string, req *dto.FinishRequest) (*dto.TransitionResponse, error)
	ModifyEntryHours(ctx context.Context, actor *model.User, entryID string, req *dto.ModifyEntryHoursRequest) (*dto.ModifyEntryHoursResponse, error)

	GetApprovableTimesheets(ctx context.Context, actor *model.User) ([]dto.TimesheetSummary, error)
	GetTimesheet(ctx context.Context, actor *model.User, timesheetID string) (*dto.TimesheetResponse, error)
	GetMyTimesheet(ctx context.Context, actor *model.User, month, year int) (*dto.TimesheetResponse, error)
	ListMyTimesheets(ctx context.Context, actor *model.User, page *dto.PaginationRequest) ([]dto.TimesheetSummary, int64, error)
}

type workflowService struct {
	cfg    *config.WorkflowConfig
	repo   *repository.Repository
	ledger LedgerService
	logger *zap.Logger
	now    func() time.Time
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(cfg *config.WorkflowConfig, repo *repository.Repository, ledger LedgerService, logger *zap.Logger) WorkflowService {
	return &workflowService{
		cfg:    cfg,
		repo:   repo,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// transition 一次状态流转的描述
type transition struct {
	action          model.ApprovalAction
	from            []model.TimesheetStatus
	expectedVersion *int
	// comment 写入审批记录的意见
	comment *string
	// authorize 在来源状态校验通过后执行
	authorize func(ts *model.Timesheet) error
	// apply 校验参数并修改 ts 的流程字段，返回错误时不写入
	apply func(ctx context.Context, ts *model.Timesheet) error
	// guard 可选，在写事务内、状态写入之前复核前置条件
	guard func(ctx context.Context, txRepo *repository.Repository, ts *model.Timesheet) error
}

func (s *workflowService) transit(ctx context.Context, actor *model.User, timesheetID string, t transition) (*dto.TransitionResponse, error) {
	ts, err := loadTimesheet(ctx, s.repo, s.logger, timesheetID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(ts, t.expectedVersion); err != nil {
		return nil, err
	}
	if !statusIn(ts.Status, t.from) {
		return nil, fmt.Errorf("%w: %s 不能从 %s 执行", ErrInvalidTransition, t.action, ts.Status)
	}
	if err := t.authorize(ts); err != nil {
		return nil, err
	}

	from := ts.Status
	if err := t.apply(ctx, ts); err != nil {
		return nil, err
	}
	to := ts.Status
	ts.UpdatedBy = &actor.UserID

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if t.guard != nil {
			if err := t.guard(ctx, txRepo, ts); err != nil {
				return err
			}
		}
		if err := txRepo.Timesheet.UpdateState(ctx, ts, from); err != nil {
			return err
		}
		return s.ledger.Append(ctx, txRepo, &model.ApprovalHistoryEntry{
			TimesheetID: ts.TimesheetID,
			Action:      t.action,
			FromStatus:  &from,
			ToStatus:    &to,
			Comment:     t.comment,
			ActorID:     actor.UserID,
		})
	})
	if err != nil {
		return nil, s.writeError(err, ts.TimesheetID, t.action)
	}

	s.logger.Info("工时表状态流转",
		zap.String("timesheet_id", ts.TimesheetID),
		zap.String("action", string(t.action)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.UserID),
	)

	return &dto.TransitionResponse{
		TimesheetID:       ts.TimesheetID,
		Status:            string(ts.Status),
		Version:           ts.Version,
		CurrentApproverID: ts.CurrentApproverID,
	}, nil
}

// writeError 乐观锁失败映射为 Conflict，其余按存储不可用处理
func (s *workflowService) writeError(err error, timesheetID string, action model.ApprovalAction) error {
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		s.logger.Warn("工时表并发修改冲突",
			zap.String("timesheet_id", timesheetID),
			zap.String("action", string(action)),
		)
		return ErrVersionConflict
	}
	if pkgerrors.KindOf(err) == "" {
		s.logger.Error("写入工时表失败",
			zap.String("timesheet_id", timesheetID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
	return pkgerrors.Storage("写入工时表失败", err)
}

// ────────────────────── Submit ──────────────────────

func (s *workflowService) Submit(ctx context.Context, actor *model.User, timesheetID string, req *dto.SubmitRequest) (*dto.TransitionResponse, error) {
	return s.transit(ctx, actor, timesheetID, transition{
		action:          model.ActionSubmitted,
		from:            []model.TimesheetStatus{model.StatusDraft, model.StatusRejected},
		expectedVersion: req.ExpectedVersion,
		authorize: func(ts *model.Timesheet) error {
			if ts.UserID != actor.UserID {
				return ErrNotOwner
			}
			return nil
		},
		apply: func(ctx context.Context, ts *model.Timesheet) error {
			count, err := s.repo.TimesheetEntry.CountByTimesheet(ctx, ts.TimesheetID)
			if err != nil {
				s.logger.Error("统计工时明细失败", zap.String("timesheet_id", ts.TimesheetID), zap.Error(err))
				return pkgerrors.Storage("统计工时明细失败", err)
			}
			if count == 0 {
				return ErrEmptyTimesheet
			}

			approverID, err := s.resolveApprover(ctx, actor, req.ApproverID)
			if err != nil {
				return err
			}

			now := s.now().UTC()
			ts.Status = model.StatusSubmitted
			ts.SubmitDate = &now
			ts.ApproveDate = nil
			ts.Comment = nil
			ts.CurrentApproverID = &approverID
			return nil
		},
		guard: func(ctx context.Context, txRepo *repository.Repository, ts *model.Timesheet) error {
			// 先锁行再计数：并发的明细删除要么在此之前提交，要么等到提交后因状态只读失败
			if err := txRepo.Timesheet.LockEditable(ctx, ts.TimesheetID); err != nil {
				return err
			}
			count, err := txRepo.TimesheetEntry.CountByTimesheet(ctx, ts.TimesheetID)
			if err != nil {
				return err
			}
			if count == 0 {
				return ErrEmptyTimesheet
			}
			return nil
		},
	})
}

// resolveApprover 指定审批人优先，否则取直属上级；审批人必须是组长或管理员且不是本人
func (s *workflowService) resolveApprover(ctx context.Context, owner *model.User, requested *string) (string, error) {
	approverID := ""
	switch {
	case requested != nil && *requested != "":
		approverID = *requested
	case owner.ManagerID != nil && *owner.ManagerID != "":
		approverID = *owner.ManagerID
	default:
		return "", ErrNoApprover
	}
	if approverID == owner.UserID {
		return "", ErrApproverIsOwner
	}

	approver, err := s.repo.User.GetByID(ctx, approverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrApproverInvalid
		}
		s.logger.Error("查询审批人失败", zap.String("approver_id", approverID), zap.Error(err))
		return "", pkgerrors.Storage("查询审批人失败", err)
	}
	if !approver.Role.IsApprover() {
		return "", ErrApproverInvalid
	}
	return approver.UserID, nil
}

// ────────────────────── Approve ──────────────────────

func (s *workflowService) Approve(ctx context.Context, actor *model.User, timesheetID string, req *dto.ApproveRequest) (*dto.TransitionResponse, error) {
	return s.transit(ctx, actor, timesheetID, transition{
		action:          model.ActionApproved,
		from:            []model.TimesheetStatus{model.StatusSubmitted, model.StatusApprovedByTeamLead},
		expectedVersion: req.ExpectedVersion,
		comment:         trimmed(req.Comment),
		authorize: func(ts *model.Timesheet) error {
			if !canReview(s.cfg, actor, ts) {
				return ErrNotApprover
			}
			return nil
		},
		apply: func(_ context.Context, ts *model.Timesheet) error {
			if c := trimmed(req.Comment); c != nil {
				ts.Comment = c
			}
			if actor.Role == model.RoleAdmin {
				now := s.now().UTC()
				ts.Status = model.StatusApproved
				ts.ApproveDate = &now
				ts.CurrentApproverID = nil
				return nil
			}
			// 组长只能完成第一级审批；第二级需管理员或经 submitToAdmin 转交
			if ts.Status != model.StatusSubmitted {
				return fmt.Errorf("%w: 组长已审批，需管理员审批或转交管理员", ErrInvalidTransition)
			}
			ts.Status = model.StatusApprovedByTeamLead
			return nil
		},
	})
}

// ────────────────────── Reject ──────────────────────

func (s *workflowService) Reject(ctx context.Context, actor *model.User, timesheetID string, req *dto.RejectRequest) (*dto.TransitionResponse, error) {
	// 驳回意见是请求本身的参数，先于状态与权限校验
	comment := trimmed(&req.Comment)
	if comment == nil {
		return nil, ErrCommentRequired
	}
	return s.transit(ctx, actor, timesheetID, transition{
		action:          model.ActionRejected,
		from:            []model.TimesheetStatus{model.StatusSubmitted, model.StatusApprovedByTeamLead},
		expectedVersion: req.ExpectedVersion,
		comment:         comment,
		authorize: func(ts *model.Timesheet) error {
			if !canReview(s.cfg, actor, ts) {
				return ErrNotApprover
			}
			return nil
		},
		apply: func(_ context.Context, ts *model.Timesheet) error {
			ts.Status = model.StatusRejected
			ts.Comment = comment
			ts.CurrentApproverID = nil
			return nil
		},
	})
}

// ────────────────────── SubmitToAdmin ──────────────────────

func (s *workflowService) SubmitToAdmin(ctx context.Context, actor *model.User, timesheetID string, req *dto.SubmitToAdminRequest) (*dto.TransitionResponse, error) {
	return s.transit(ctx, actor, timesheetID, transition{
		action:          model.ActionSubmittedToAdmin,
		from:            []model.TimesheetStatus{model.StatusApprovedByTeamLead},
		expectedVersion: req.ExpectedVersion,
		comment:         trimmed(req.Comment),
		authorize: func(ts *model.Timesheet) error {
			if actor.Role != model.RoleTeamLead ||
				ts.CurrentApproverID == nil || *ts.CurrentApproverID != actor.UserID {
				return ErrTeamLeadOnly
			}
			return nil
		},
		apply: func(ctx context.Context, ts *model.Timesheet) error {
			if req.AdminID == ts.UserID {
				return ErrApproverIsOwner
			}
			admin, err := s.repo.User.GetByID(ctx, req.AdminID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAdminTargetInvalid
				}
				s.logger.Error("查询管理员失败", zap.String("admin_id", req.AdminID), zap.Error(err))
				return pkgerrors.Storage("查询管理员失败", err)
			}
			if admin.Role != model.RoleAdmin {
				return ErrAdminTargetInvalid
			}

			if c := trimmed(req.Comment); c != nil {
				ts.Comment = c
			}
			ts.Status = model.StatusSubmitted
			ts.CurrentApproverID = &admin.UserID
			return nil
		},
	})
}

// ────────────────────── Finish ──────────────────────

func (s *workflowService) Finish(ctx context.Context, actor *model.User, timesheetID string, req *dto.FinishRequest) (*dto.TransitionResponse, error) {
	return s.transit(ctx, actor, timesheetID, transition{
		action:          model.ActionFinished,
		from:            []model.TimesheetStatus{model.StatusApproved},
		expectedVersion: req.ExpectedVersion,
		authorize: func(_ *model.Timesheet) error {
			if actor.Role != model.RoleAdmin {
				return ErrAdminOnly
			}
			return nil
		},
		apply: func(_ context.Context, ts *model.Timesheet) error {
			now := s.now().UTC()
			ts.Status = model.StatusFinished
			ts.FinishedDate = &now
			ts.CurrentApproverID = nil
			return nil
		},
	})
}

// ────────────────────── ModifyEntryHours ──────────────────────

func (s *workflowService) ModifyEntryHours(ctx context.Context, actor *model.User, entryID string, req *dto.ModifyEntryHoursRequest) (*dto.ModifyEntryHoursResponse, error) {
	entry, err := loadEntry(ctx, s.repo, s.logger, entryID)
	if err != nil {
		return nil, err
	}
	ts, err := loadTimesheet(ctx, s.repo, s.logger, entry.TimesheetID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(ts, req.ExpectedVersion); err != nil {
		return nil, err
	}
	if !ts.Status.Reviewable() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyState, ts.Status)
	}
	if !canReview(s.cfg, actor, ts) {
		return nil, ErrNotApprover
	}
	if req.ApprovedHours == nil {
		return nil, ErrHoursOutOfRange
	}
	hours := *req.ApprovedHours
	if err := validateHours(hours, s.cfg.MaxEntryHours, true); err != nil {
		return nil, err
	}

	comment := fmt.Sprintf("%s 工时 %s → %s",
		entry.Date.Format("2006-01-02"), entry.EffectiveHours().StringFixed(2), hours.StringFixed(2))

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Timesheet.BumpVersion(ctx, ts, actor.UserID); err != nil {
			return err
		}
		if err := txRepo.TimesheetEntry.UpdateApprovedHours(ctx, entry.EntryID, hours, actor.UserID); err != nil {
			return err
		}
		return s.ledger.Append(ctx, txRepo, &model.ApprovalHistoryEntry{
			TimesheetID: ts.TimesheetID,
			Action:      model.ActionModified,
			Comment:     &comment,
			EntryID:     &entry.EntryID,
			ActorID:     actor.UserID,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, s.writeError(err, ts.TimesheetID, model.ActionModified)
	}

	s.logger.Info("修改核定工时",
		zap.String("timesheet_id", ts.TimesheetID),
		zap.String("entry_id", entry.EntryID),
		zap.String("approved_hours", hours.String()),
		zap.String("actor_id", actor.UserID),
	)

	return &dto.ModifyEntryHoursResponse{
		EntryID:       entry.EntryID,
		TimesheetID:   ts.TimesheetID,
		ApprovedHours: hours,
		Version:       ts.Version,
	}, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *workflowService) GetApprovableTimesheets(ctx context.Context, actor *model.User) ([]dto.TimesheetSummary, error) {
	if !actor.Role.IsApprover() {
		return []dto.TimesheetSummary{}, nil
	}

	var queue []model.TimesheetStatus
	if actor.Role == model.RoleAdmin {
		queue = append(queue, model.StatusApprovedByTeamLead)
		if s.cfg.AdminDirectApprove {
			queue = append(queue, model.StatusSubmitted)
		}
	}

	list, err := s.repo.Timesheet.ListApprovable(ctx, actor.UserID, queue)
	if err != nil {
		s.logger.Error("查询待审批工时表失败", zap.String("approver_id", actor.UserID), zap.Error(err))
		return nil, pkgerrors.Storage("查询待审批工时表失败", err)
	}

	result := make([]dto.TimesheetSummary, 0, len(list))
	for i := range list {
		if !canReview(s.cfg, actor, &list[i]) {
			continue
		}
		result = append(result, toTimesheetSummary(&list[i]))
	}
	return result, nil
}

func (s *workflowService) GetTimesheet(ctx context.Context, actor *model.User, timesheetID string) (*dto.TimesheetResponse, error) {
	ts, err := loadVisibleTimesheet(ctx, s.repo, s.logger, actor, timesheetID)
	if err != nil {
		return nil, err
	}
	return s.buildTimesheetResponse(ctx, ts)
}

func (s *workflowService) GetMyTimesheet(ctx context.Context, actor *model.User, month, year int) (*dto.TimesheetResponse, error) {
	ts, err := s.repo.Timesheet.GetByPeriod(ctx, actor.UserID, month, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimesheetNotFound
		}
		s.logger.Error("查询工时表失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, pkgerrors.Storage("查询工时表失败", err)
	}
	return s.buildTimesheetResponse(ctx, ts)
}

func (s *workflowService) ListMyTimesheets(ctx context.Context, actor *model.User, page *dto.PaginationRequest) ([]dto.TimesheetSummary, int64, error) {
	list, total, err := s.repo.Timesheet.ListByUser(ctx, actor.UserID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询我的工时表失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, 0, pkgerrors.Storage("查询我的工时表失败", err)
	}

	result := make([]dto.TimesheetSummary, 0, len(list))
	for i := range list {
		result = append(result, toTimesheetSummary(&list[i]))
	}
	return result, total, nil
}

func (s *workflowService) buildTimesheetResponse(ctx context.Context, ts *model.Timesheet) (*dto.TimesheetResponse, error) {
	entries, err := s.repo.TimesheetEntry.ListByTimesheet(ctx, ts.TimesheetID)
	if err != nil {
		s.logger.Error("查询工时明细失败", zap.String("timesheet_id", ts.TimesheetID), zap.Error(err))
		return nil, pkgerrors.Storage("查询工时明细失败", err)
	}
	ts.Entries = entries
	return toTimesheetResponse(ts), nil
}

// ── 辅助函数 ──

func statusIn(status model.TimesheetStatus, set []model.TimesheetStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// trimmed 去除首尾空白，空串返回 nil
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// validateHours 工时上限为 max，最多两位小数；allowZero 时下限为 0（核定工时），否则必须为正数
func validateHours(h decimal.Decimal, max int, allowZero bool) error {
	if h.IsNegative() || (!allowZero && h.IsZero()) || h.GreaterThan(decimal.NewFromInt(int64(max))) {
		return ErrHoursOutOfRange
	}
	if !h.Equal(h.Round(2)) {
		return ErrHoursPrecision
	}
	return nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func toEntryResponse(e *model.TimesheetEntry) dto.EntryResponse {
	resp := dto.EntryResponse{
		ID:             e.EntryID,
		Date:           e.Date.Format("2006-01-02"),
		ProjectID:      e.ProjectID,
		TaskID:         e.TaskID,
		LoggedHours:    e.LoggedHours,
		ApprovedHours:  e.ApprovedHours,
		EffectiveHours: e.EffectiveHours(),
		Description:    e.Description,
	}
	if e.Project != nil {
		resp.ProjectCode = e.Project.Code
	}
	if e.Task != nil {
		resp.TaskName = e.Task.Name
	}
	return resp
}

func toTimesheetResponse(ts *model.Timesheet) *dto.TimesheetResponse {
	resp := &dto.TimesheetResponse{
		ID:                 ts.TimesheetID,
		User:               toUserBrief(ts.User),
		Month:              ts.Month,
		Year:               ts.Year,
		Status:             string(ts.Status),
		SubmitDate:         formatTime(ts.SubmitDate),
		ApproveDate:        formatTime(ts.ApproveDate),
		FinishedDate:       formatTime(ts.FinishedDate),
		Comment:            ts.Comment,
		CurrentApproverID:  ts.CurrentApproverID,
		Version:            ts.Version,
		TotalLoggedHours:   decimal.Zero,
		TotalApprovedHours: decimal.Zero,
		Entries:            make([]dto.EntryResponse, 0, len(ts.Entries)),
		CreatedAt:          ts.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          ts.UpdatedAt.Format(time.RFC3339),
	}
	for i := range ts.Entries {
		e := &ts.Entries[i]
		resp.TotalLoggedHours = resp.TotalLoggedHours.Add(e.LoggedHours)
		resp.TotalApprovedHours = resp.TotalApprovedHours.Add(e.EffectiveHours())
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	return resp
}

func toTimesheetSummary(ts *model.Timesheet) dto.TimesheetSummary {
	total := decimal.Zero
	for i := range ts.Entries {
		total = total.Add(ts.Entries[i].LoggedHours)
	}
	return dto.TimesheetSummary{
		ID:                ts.TimesheetID,
		User:              toUserBrief(ts.User),
		Month:             ts.Month,
		Year:              ts.Year,
		Status:            string(ts.Status),
		SubmitDate:        formatTime(ts.SubmitDate),
		CurrentApproverID: ts.CurrentApproverID,
		Version:           ts.Version,
		EntryCount:        len(ts.Entries),
		TotalLoggedHours:  total,
	}
}
