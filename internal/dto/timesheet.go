package dto

import "github.com/shopspring/decimal"

// ── 工时表流转请求（每个动作一个封闭类型） ──

// SubmitRequest 提交审批；approver_id 为空时路由到直属上级
type SubmitRequest struct {
	ApproverID      *string `json:"approver_id"      binding:"omitempty,uuid"`
	ExpectedVersion *int    `json:"expected_version" binding:"omitempty,min=1"`
}

// ApproveRequest 审批通过
type ApproveRequest struct {
	Comment         *string `json:"comment"          binding:"omitempty,max=1000"`
	ExpectedVersion *int    `json:"expected_version" binding:"omitempty,min=1"`
}

// RejectRequest 驳回；意见必填由服务层校验（空白字符同样视为缺失）
type RejectRequest struct {
	Comment         string `json:"comment"          binding:"max=1000"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// SubmitToAdminRequest 组长转交管理员
type SubmitToAdminRequest struct {
	AdminID         string  `json:"admin_id"         binding:"required,uuid"`
	Comment         *string `json:"comment"          binding:"omitempty,max=1000"`
	ExpectedVersion *int    `json:"expected_version" binding:"omitempty,min=1"`
}

// FinishRequest 归档
type FinishRequest struct {
	ExpectedVersion *int `json:"expected_version" binding:"omitempty,min=1"`
}

// ── 查询参数 ──

// PeriodQuery 按月份定位工时表
type PeriodQuery struct {
	Month int `form:"month" binding:"required,period_month"`
	Year  int `form:"year"  binding:"required,min=2000,max=2100"`
}

// HistoryListRequest 审批记录分页查询
type HistoryListRequest struct {
	Action string `form:"action" binding:"omitempty,oneof=submitted approved rejected submitted_to_admin modified finished"`
	PaginationRequest
}

// ── 响应 ──

// TransitionResponse 状态流转结果
type TransitionResponse struct {
	TimesheetID       string  `json:"timesheet_id"`
	Status            string  `json:"status"`
	Version           int     `json:"version"`
	CurrentApproverID *string `json:"current_approver_id,omitempty"`
}

// TimesheetResponse 工时表详情（含明细与合计）
type TimesheetResponse struct {
	ID                 string          `json:"id"`
	User               *UserBrief      `json:"user,omitempty"`
	Month              int             `json:"month"`
	Year               int             `json:"year"`
	Status             string          `json:"status"`
	SubmitDate         *string         `json:"submit_date,omitempty"`
	ApproveDate        *string         `json:"approve_date,omitempty"`
	FinishedDate       *string         `json:"finished_date,omitempty"`
	Comment            *string         `json:"comment,omitempty"`
	CurrentApproverID  *string         `json:"current_approver_id,omitempty"`
	Version            int             `json:"version"`
	TotalLoggedHours   decimal.Decimal `json:"total_logged_hours"`
	TotalApprovedHours decimal.Decimal `json:"total_approved_hours"`
	Entries            []EntryResponse `json:"entries"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

// TimesheetSummary 列表项（待审批列表、我的工时表）
type TimesheetSummary struct {
	ID                string          `json:"id"`
	User              *UserBrief      `json:"user,omitempty"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	Status            string          `json:"status"`
	SubmitDate        *string         `json:"submit_date,omitempty"`
	CurrentApproverID *string         `json:"current_approver_id,omitempty"`
	Version           int             `json:"version"`
	EntryCount        int             `json:"entry_count"`
	TotalLoggedHours  decimal.Decimal `json:"total_logged_hours"`
}

// HistoryEntryResponse 审批记录
type HistoryEntryResponse struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	FromStatus *string `json:"from_status,omitempty"`
	ToStatus   *string `json:"to_status,omitempty"`
	Comment    *string `json:"comment,omitempty"`
	EntryID    *string `json:"entry_id,omitempty"`
	ActorID    string  `json:"actor_id"`
	Timestamp  string  `json:"timestamp"`
}
