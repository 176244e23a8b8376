package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"timesheet-hub/backend/config"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// 批量保存并发写入，所有 mock 均以互斥锁保护。
// mock 返回记录副本，模拟每个请求各自读取数据库的行为。

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) || u.UserID == user.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ProjectRepository / TaskRepository ──

type mockProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*model.Project
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*model.Project)}
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Code == project.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if project.ProjectID == "" {
		project.ProjectID = uuid.New().String()
	}
	project.CreatedAt = time.Now().UTC()
	cp := *project
	m.projects[project.ProjectID] = &cp
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) GetByCode(_ context.Context, code string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) List(_ context.Context, includeInactive bool) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Project
	for _, p := range m.projects {
		if !includeInactive && !p.IsActive {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

type mockTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*model.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.TaskID == "" {
		task.TaskID = uuid.New().String()
	}
	cp := *task
	m.tasks[task.TaskID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ListByProject(_ context.Context, projectID string) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Task
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock TimesheetRepository ──

type mockTimesheetRepo struct {
	mu         sync.Mutex
	seq        int
	timesheets map[string]*model.Timesheet

	users   *mockUserRepo
	entries *mockEntryRepo

	// onGet 在 GetByID/GetByPeriod 读取完成后调用（并发测试中作为屏障，或在读与写之间插入其他请求）
	onGet func()
	// raceOnCreate 模拟另一请求抢先创建同一月份的工时表
	raceOnCreate bool
	updateErr    error
}

func newMockTimesheetRepo(users *mockUserRepo, entries *mockEntryRepo) *mockTimesheetRepo {
	return &mockTimesheetRepo{
		timesheets: make(map[string]*model.Timesheet),
		users:      users,
		entries:    entries,
	}
}

func (m *mockTimesheetRepo) Create(_ context.Context, ts *model.Timesheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceOnCreate {
		m.raceOnCreate = false
		m.insertLocked(&model.Timesheet{UserID: ts.UserID, Month: ts.Month, Year: ts.Year, Status: model.StatusDraft})
	}
	for _, t := range m.timesheets {
		if t.UserID == ts.UserID && t.Month == ts.Month && t.Year == ts.Year {
			return gorm.ErrDuplicatedKey
		}
	}
	m.insertLocked(ts)
	return nil
}

func (m *mockTimesheetRepo) insertLocked(ts *model.Timesheet) {
	m.seq++
	if ts.TimesheetID == "" {
		ts.TimesheetID = fmt.Sprintf("ts-%d", m.seq)
	}
	if ts.Version == 0 {
		ts.Version = 1
	}
	now := time.Now().UTC()
	ts.CreatedAt, ts.UpdatedAt = now, now
	cp := *ts
	cp.User, cp.Entries = nil, nil
	m.timesheets[ts.TimesheetID] = &cp
}

// put 直接写入任意状态的工时表（测试准备数据用）
func (m *mockTimesheetRepo) put(ts *model.Timesheet) *model.Timesheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(ts)
	return ts
}

func (m *mockTimesheetRepo) snapshot(id string) *model.Timesheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.timesheets[id]
	return &cp
}

func (m *mockTimesheetRepo) withUser(ts model.Timesheet) *model.Timesheet {
	if u, err := m.users.GetByID(context.Background(), ts.UserID); err == nil {
		ts.User = u
	}
	return &ts
}

func (m *mockTimesheetRepo) GetByID(_ context.Context, id string) (*model.Timesheet, error) {
	m.mu.Lock()
	t, ok := m.timesheets[id]
	var cp model.Timesheet
	if ok {
		cp = *t
	}
	onGet := m.onGet
	m.mu.Unlock()

	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if onGet != nil {
		onGet()
	}
	return m.withUser(cp), nil
}

func (m *mockTimesheetRepo) GetByPeriod(_ context.Context, userID string, month, year int) (*model.Timesheet, error) {
	m.mu.Lock()
	var found *model.Timesheet
	for _, t := range m.timesheets {
		if t.UserID == userID && t.Month == month && t.Year == year {
			cp := *t
			found = &cp
			break
		}
	}
	onGet := m.onGet
	m.mu.Unlock()
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	if onGet != nil {
		onGet()
	}
	return m.withUser(*found), nil
}

func (m *mockTimesheetRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Timesheet, int64, error) {
	m.mu.Lock()
	var all []model.Timesheet
	for _, t := range m.timesheets {
		if t.UserID == userID {
			all = append(all, *t)
		}
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Year != all[j].Year {
			return all[i].Year > all[j].Year
		}
		return all[i].Month > all[j].Month
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Timesheet{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[offset:end]
	for i := range page {
		page[i].Entries, _ = m.entries.ListByTimesheet(ctx, page[i].TimesheetID)
	}
	return page, total, nil
}

func (m *mockTimesheetRepo) ListApprovable(ctx context.Context, approverID string, queueStatuses []model.TimesheetStatus) ([]model.Timesheet, error) {
	m.mu.Lock()
	var result []model.Timesheet
	for _, t := range m.timesheets {
		mine := t.CurrentApproverID != nil && *t.CurrentApproverID == approverID && t.Status.Reviewable()
		if mine || statusIn(t.Status, queueStatuses) {
			result = append(result, *t)
		}
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].TimesheetID < result[j].TimesheetID })
	for i := range result {
		result[i] = *m.withUser(result[i])
		result[i].Entries, _ = m.entries.ListByTimesheet(ctx, result[i].TimesheetID)
	}
	return result, nil
}

func (m *mockTimesheetRepo) UpdateState(_ context.Context, ts *model.Timesheet, expected model.TimesheetStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.timesheets[ts.TimesheetID]
	if !ok || cur.Status != expected || cur.Version != ts.Version {
		return pkgerrors.ErrOptimisticLock
	}
	ts.Version++
	ts.UpdatedAt = time.Now().UTC()
	cp := *ts
	cp.User, cp.Entries = nil, nil
	m.timesheets[ts.TimesheetID] = &cp
	return nil
}

func (m *mockTimesheetRepo) BumpVersion(_ context.Context, ts *model.Timesheet, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.timesheets[ts.TimesheetID]
	if !ok || cur.Status != ts.Status || cur.Version != ts.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cur.Version++
	cur.UpdatedBy = &updatedBy
	ts.Version = cur.Version
	return nil
}

func (m *mockTimesheetRepo) LockEditable(_ context.Context, timesheetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.timesheets[timesheetID]
	if !ok || !cur.Status.Editable() {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ── Mock TimesheetEntryRepository ──

type mockEntryRepo struct {
	mu      sync.Mutex
	seq     int
	entries map[string]*model.TimesheetEntry

	projects *mockProjectRepo
	tasks    *mockTaskRepo

	// onCount 在 CountByTimesheet 计数完成后、返回之前调用
	onCount func()
}

func newMockEntryRepo(projects *mockProjectRepo, tasks *mockTaskRepo) *mockEntryRepo {
	return &mockEntryRepo{
		entries:  make(map[string]*model.TimesheetEntry),
		projects: projects,
		tasks:    tasks,
	}
}

func (m *mockEntryRepo) Create(_ context.Context, entry *model.TimesheetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if entry.EntryID == "" {
		entry.EntryID = fmt.Sprintf("entry-%d", m.seq)
	}
	cp := *entry
	m.entries[entry.EntryID] = &cp
	return nil
}

// add 直接写入明细（测试准备数据用）
func (m *mockEntryRepo) add(timesheetID string, date time.Time, projectID string, hours float64) *model.TimesheetEntry {
	e := &model.TimesheetEntry{
		TimesheetID: timesheetID,
		Date:        date,
		ProjectID:   projectID,
		LoggedHours: decimal.NewFromFloat(hours),
	}
	_ = m.Create(context.Background(), e)
	return e
}

func (m *mockEntryRepo) GetByID(_ context.Context, id string) (*model.TimesheetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryRepo) ListByTimesheet(ctx context.Context, timesheetID string) ([]model.TimesheetEntry, error) {
	m.mu.Lock()
	var result []model.TimesheetEntry
	for _, e := range m.entries {
		if e.TimesheetID == timesheetID {
			result = append(result, *e)
		}
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].EntryID < result[j].EntryID
	})
	for i := range result {
		if m.projects != nil {
			result[i].Project, _ = m.projects.GetByID(ctx, result[i].ProjectID)
		}
		if m.tasks != nil && result[i].TaskID != nil {
			result[i].Task, _ = m.tasks.GetByID(ctx, *result[i].TaskID)
		}
	}
	return result, nil
}

func (m *mockEntryRepo) CountByTimesheet(_ context.Context, timesheetID string) (int64, error) {
	m.mu.Lock()
	var n int64
	for _, e := range m.entries {
		if e.TimesheetID == timesheetID {
			n++
		}
	}
	onCount := m.onCount
	m.mu.Unlock()

	if onCount != nil {
		onCount()
	}
	return n, nil
}

func (m *mockEntryRepo) Update(_ context.Context, entry *model.TimesheetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.EntryID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *entry
	cp.Project, cp.Task = nil, nil
	m.entries[entry.EntryID] = &cp
	return nil
}

func (m *mockEntryRepo) UpdateApprovedHours(_ context.Context, id string, hours decimal.Decimal, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.ApprovedHours = &hours
	e.UpdatedBy = &updatedBy
	return nil
}

func (m *mockEntryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.entries, id)
	return nil
}

// ── Mock ApprovalHistoryRepository ──

type mockHistoryRepo struct {
	mu        sync.Mutex
	seq       int64
	entries   []model.ApprovalHistoryEntry
	createErr error
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{}
}

func (m *mockHistoryRepo) Create(_ context.Context, entry *model.ApprovalHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	entry.HistoryID = fmt.Sprintf("hist-%d", m.seq)
	entry.Seq = m.seq
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockHistoryRepo) GetLatest(_ context.Context, timesheetID string) (*model.ApprovalHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].TimesheetID == timesheetID {
			cp := m.entries[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockHistoryRepo) ListByTimesheet(_ context.Context, timesheetID string, action *model.ApprovalAction, offset, limit int) ([]model.ApprovalHistoryEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.ApprovalHistoryEntry
	for _, e := range m.entries {
		if e.TimesheetID != timesheetID {
			continue
		}
		if action != nil && e.Action != *action {
			continue
		}
		all = append(all, e)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.ApprovalHistoryEntry{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// forTimesheet 某工时表的全部审批记录
func (m *mockHistoryRepo) forTimesheet(timesheetID string) []model.ApprovalHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ApprovalHistoryEntry
	for _, e := range m.entries {
		if e.TimesheetID == timesheetID {
			result = append(result, e)
		}
	}
	return result
}

// ═══════════════════════════════════════════════════════════
// 测试环境
// ═══════════════════════════════════════════════════════════

const (
	adminID    = "00000000-0000-0000-0000-00000000a001"
	leadID     = "00000000-0000-0000-0000-00000000b001"
	otherLead  = "00000000-0000-0000-0000-00000000b002"
	employeeID = "00000000-0000-0000-0000-00000000c001"
	peerID     = "00000000-0000-0000-0000-00000000c002"
	orphanID   = "00000000-0000-0000-0000-00000000c003"
)

type testEnv struct {
	cfg        *config.Config
	repo       *repository.Repository
	users      *mockUserRepo
	projects   *mockProjectRepo
	tasks      *mockTaskRepo
	timesheets *mockTimesheetRepo
	entries    *mockEntryRepo
	history    *mockHistoryRepo

	admin, lead, lead2, employee, peer, orphan *model.User
	project, inactiveProject, otherProject     *model.Project
	task, otherTask                            *model.Task
}

func newTestEnv() *testEnv {
	env := &testEnv{
		cfg: &config.Config{
			Workflow: config.WorkflowConfig{
				AdminDirectApprove:  true,
				BulkSaveConcurrency: 4,
				MaxEntryHours:       24,
			},
		},
		users:    newMockUserRepo(),
		projects: newMockProjectRepo(),
		tasks:    newMockTaskRepo(),
		history:  newMockHistoryRepo(),
	}
	env.entries = newMockEntryRepo(env.projects, env.tasks)
	env.timesheets = newMockTimesheetRepo(env.users, env.entries)
	env.repo = &repository.Repository{
		User:            env.users,
		Project:         env.projects,
		Task:            env.tasks,
		Timesheet:       env.timesheets,
		TimesheetEntry:  env.entries,
		ApprovalHistory: env.history,
	}

	lead := leadID
	env.admin = env.addUser(adminID, "admin@corp.test", model.RoleAdmin, nil)
	env.lead = env.addUser(leadID, "lead@corp.test", model.RoleTeamLead, nil)
	env.lead2 = env.addUser(otherLead, "lead2@corp.test", model.RoleTeamLead, nil)
	env.employee = env.addUser(employeeID, "emp@corp.test", model.RoleEmployee, &lead)
	env.peer = env.addUser(peerID, "peer@corp.test", model.RoleEmployee, &lead)
	env.orphan = env.addUser(orphanID, "orphan@corp.test", model.RoleEmployee, nil)

	env.project = env.addProject("P1", true)
	env.inactiveProject = env.addProject("OLD", false)
	env.otherProject = env.addProject("P2", true)
	env.task = env.addTask(env.project.ProjectID, "开发")
	env.otherTask = env.addTask(env.otherProject.ProjectID, "测试")
	return env
}

func (env *testEnv) addUser(id, email string, role model.Role, managerID *string) *model.User {
	u := &model.User{UserID: id, Email: email, Name: strings.Split(email, "@")[0], Role: role, ManagerID: managerID}
	_ = env.users.Create(context.Background(), u)
	return u
}

func (env *testEnv) addProject(code string, active bool) *model.Project {
	p := &model.Project{Code: code, Name: "项目 " + code, IsActive: active}
	_ = env.projects.Create(context.Background(), p)
	return p
}

func (env *testEnv) addTask(projectID, name string) *model.Task {
	t := &model.Task{ProjectID: projectID, Name: name, IsActive: true}
	_ = env.tasks.Create(context.Background(), t)
	return t
}

// addTimesheet 为 owner 创建 2025 年 3 月、处于指定状态的工时表
func (env *testEnv) addTimesheet(owner *model.User, status model.TimesheetStatus, approverID *string) *model.Timesheet {
	return env.timesheets.put(&model.Timesheet{
		UserID:            owner.UserID,
		Month:             3,
		Year:              2025,
		Status:            status,
		CurrentApproverID: approverID,
	})
}

func march(day int) time.Time {
	return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
