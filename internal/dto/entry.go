package dto

import "github.com/shopspring/decimal"

// ── 工时明细 DTO ──

// BulkSaveEntriesRequest 批量保存草稿明细
type BulkSaveEntriesRequest struct {
	Month   int             `json:"month"   binding:"required,period_month"`
	Year    int             `json:"year"    binding:"required,min=2000,max=2100"`
	Entries []BulkEntryItem `json:"entries" binding:"required,min=1,max=200,dive"`
}

// BulkEntryItem 单条明细：无 id 为新建（以 temp_key 对应结果），有 id 为更新。
// temp_key 只在本次请求内用于匹配结果，不落库。
// logged_hours 不在绑定阶段校验，由服务层逐条判定以支持部分成功。
type BulkEntryItem struct {
	TempKey     string          `json:"temp_key"     binding:"required_without=ID,max=64"`
	ID          *string         `json:"id"           binding:"omitempty,uuid"`
	Date        string          `json:"date"         binding:"required,datetime=2006-01-02"`
	ProjectID   string          `json:"project_id"   binding:"required,uuid"`
	TaskID      *string         `json:"task_id"      binding:"omitempty,uuid"`
	LoggedHours decimal.Decimal `json:"logged_hours"`
	Description *string         `json:"description"  binding:"omitempty,max=1000"`
}

// IsNew 是否为新建明细
func (e *BulkEntryItem) IsNew() bool {
	return e.ID == nil || *e.ID == ""
}

// ModifyEntryHoursRequest 审批人修改核定工时
type ModifyEntryHoursRequest struct {
	ApprovedHours   *decimal.Decimal `json:"approved_hours"   binding:"required,gte=0"`
	ExpectedVersion *int             `json:"expected_version" binding:"omitempty,min=1"`
}

// ── 响应 ──

// 批量保存逐条结果的操作类型
const (
	EntryOpCreated   = "created"
	EntryOpUpdated   = "updated"
	EntryOpUnchanged = "unchanged"
	EntryOpFailed    = "failed"
)

// BulkEntryResult 单条明细保存结果
type BulkEntryResult struct {
	Index     int    `json:"index"`
	TempKey   string `json:"temp_key,omitempty"`
	EntryID   string `json:"entry_id,omitempty"`
	Operation string `json:"operation"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkSaveEntriesResponse 批量保存结果
type BulkSaveEntriesResponse struct {
	TimesheetID string            `json:"timesheet_id"`
	Status      string            `json:"status"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Results     []BulkEntryResult `json:"results"`
}

// ModifyEntryHoursResponse 修改核定工时结果
type ModifyEntryHoursResponse struct {
	EntryID       string          `json:"entry_id"`
	TimesheetID   string          `json:"timesheet_id"`
	ApprovedHours decimal.Decimal `json:"approved_hours"`
	Version       int             `json:"version"`
}

// EntryResponse 明细响应
type EntryResponse struct {
	ID             string           `json:"id"`
	Date           string           `json:"date"`
	ProjectID      string           `json:"project_id"`
	ProjectCode    string           `json:"project_code,omitempty"`
	TaskID         *string          `json:"task_id,omitempty"`
	TaskName       string           `json:"task_name,omitempty"`
	LoggedHours    decimal.Decimal  `json:"logged_hours"`
	ApprovedHours  *decimal.Decimal `json:"approved_hours,omitempty"`
	EffectiveHours decimal.Decimal  `json:"effective_hours"`
	Description    *string          `json:"description,omitempty"`
}
