package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

func setupTestLedgerService() (*ledgerService, *testEnv) {
	env := newTestEnv()
	svc := NewLedgerService(env.repo, zap.NewNop()).(*ledgerService)
	return svc, env
}

func TestLedger_AppendClampsTimestamp(t *testing.T) {
	svc, env := setupTestLedgerService()
	ctx := context.Background()
	ts := env.addTimesheet(env.employee, model.StatusDraft, nil)

	later := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return later }
	if err := svc.Append(ctx, nil, &model.ApprovalHistoryEntry{TimesheetID: ts.TimesheetID, Action: model.ActionSubmitted, ActorID: employeeID}); err != nil {
		t.Fatalf("Append 失败: %v", err)
	}

	// 时钟回拨
	svc.now = func() time.Time { return later.Add(-time.Hour) }
	entry := &model.ApprovalHistoryEntry{TimesheetID: ts.TimesheetID, Action: model.ActionApproved, ActorID: leadID}
	if err := svc.Append(ctx, nil, entry); err != nil {
		t.Fatalf("Append 失败: %v", err)
	}
	if !entry.Timestamp.Equal(later) {
		t.Errorf("时间戳应不早于上一条，期望=%s，实际=%s", later, entry.Timestamp)
	}
}

func TestLedger_AppendStorageError(t *testing.T) {
	svc, env := setupTestLedgerService()
	env.history.createErr = errors.New("disk full")

	err := svc.Append(context.Background(), nil, &model.ApprovalHistoryEntry{TimesheetID: "ts-x", Action: model.ActionSubmitted})
	assertKind(t, err, pkgerrors.KindStorageUnavailable)
}

func TestLedger_ListForTimesheet(t *testing.T) {
	svc, env := setupTestLedgerService()
	ctx := context.Background()
	ts := env.addTimesheet(env.employee, model.StatusSubmitted, strPtr(leadID))

	actions := []model.ApprovalAction{model.ActionSubmitted, model.ActionRejected, model.ActionSubmitted, model.ActionModified}
	for _, a := range actions {
		_ = svc.Append(ctx, nil, &model.ApprovalHistoryEntry{TimesheetID: ts.TimesheetID, Action: a, ActorID: employeeID})
	}

	list, total, err := svc.ListForTimesheet(ctx, env.employee, ts.TimesheetID, &dto.HistoryListRequest{})
	if err != nil {
		t.Fatalf("ListForTimesheet 失败: %v", err)
	}
	if total != 4 || len(list) != 4 {
		t.Fatalf("期望 4 条，实际 total=%d len=%d", total, len(list))
	}
	for i, a := range actions {
		if list[i].Action != string(a) {
			t.Errorf("第 %d 条期望 %s，实际=%s", i, a, list[i].Action)
		}
	}

	list, total, _ = svc.ListForTimesheet(ctx, env.lead, ts.TimesheetID, &dto.HistoryListRequest{Action: string(model.ActionSubmitted)})
	if total != 2 || len(list) != 2 {
		t.Errorf("按动作过滤期望 2 条，实际=%d", total)
	}

	_, _, err = svc.ListForTimesheet(ctx, env.peer, ts.TimesheetID, &dto.HistoryListRequest{})
	if !errors.Is(err, ErrTimesheetForbidden) {
		t.Errorf("其他员工期望 ErrTimesheetForbidden，实际: %v", err)
	}
}
