package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimesheetStatus 工时表状态
type TimesheetStatus string

const (
	StatusDraft              TimesheetStatus = "draft"
	StatusSubmitted          TimesheetStatus = "submitted"
	StatusApprovedByTeamLead TimesheetStatus = "approved_by_team_lead"
	StatusApproved           TimesheetStatus = "approved"
	StatusRejected           TimesheetStatus = "rejected"
	StatusFinished           TimesheetStatus = "finished"
)

// Editable 员工可批量编辑明细的状态（审核周期之外）
func (s TimesheetStatus) Editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// Reviewable 审批人可修改核定工时的状态
func (s TimesheetStatus) Reviewable() bool {
	return s == StatusSubmitted || s == StatusApprovedByTeamLead
}

// Terminal 终态，仅可读
func (s TimesheetStatus) Terminal() bool {
	return s == StatusFinished
}

// Timesheet 工时表，对应 timesheets，(user_id, month, year) 唯一
type Timesheet struct {
	TimesheetID       string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"timesheet_id"`
	UserID            string          `gorm:"type:uuid;not null"                             json:"user_id"`
	Month             int             `gorm:"type:smallint;not null"                         json:"month"`
	Year              int             `gorm:"type:smallint;not null"                         json:"year"`
	Status            TimesheetStatus `gorm:"type:varchar(32);not null;default:'draft'"      json:"status"`
	SubmitDate        *time.Time      `json:"submit_date,omitempty"`
	ApproveDate       *time.Time      `json:"approve_date,omitempty"`
	FinishedDate      *time.Time      `json:"finished_date,omitempty"`
	Comment           *string         `gorm:"type:varchar(1000)"                             json:"comment,omitempty"`
	CurrentApproverID *string         `gorm:"type:uuid"                                      json:"current_approver_id,omitempty"`
	VersionedModel

	// 关联
	User    *User            `gorm:"foreignKey:UserID;references:UserID"            json:"user,omitempty"`
	Entries []TimesheetEntry `gorm:"foreignKey:TimesheetID;references:TimesheetID"  json:"entries,omitempty"`
}

// TableName 指定表名
func (Timesheet) TableName() string { return "timesheets" }

// PeriodStart 工时周期首日（UTC）
func (t *Timesheet) PeriodStart() time.Time {
	return time.Date(t.Year, time.Month(t.Month), 1, 0, 0, 0, 0, time.UTC)
}

// InPeriod 判断日期是否落在该工时表所属月份
func (t *Timesheet) InPeriod(d time.Time) bool {
	return d.Year() == t.Year && int(d.Month()) == t.Month
}

// TimesheetEntry 工时明细，对应 timesheet_entries
type TimesheetEntry struct {
	EntryID       string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	TimesheetID   string           `gorm:"type:uuid;not null"                             json:"timesheet_id"`
	Date          time.Time        `gorm:"type:date;not null"                             json:"date"`
	ProjectID     string           `gorm:"type:uuid;not null"                             json:"project_id"`
	TaskID        *string          `gorm:"type:uuid"                                      json:"task_id,omitempty"`
	LoggedHours   decimal.Decimal  `gorm:"type:numeric(5,2);not null"                     json:"logged_hours"`
	ApprovedHours *decimal.Decimal `gorm:"type:numeric(5,2)"                              json:"approved_hours,omitempty"`
	Description   *string          `gorm:"type:varchar(1000)"                             json:"description,omitempty"`
	BaseModel

	// 关联
	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
	Task    *Task    `gorm:"foreignKey:TaskID;references:TaskID"       json:"task,omitempty"`
}

// TableName 指定表名
func (TimesheetEntry) TableName() string { return "timesheet_entries" }

// EffectiveHours 核定工时未设置时按填报工时展示
func (e *TimesheetEntry) EffectiveHours() decimal.Decimal {
	if e.ApprovedHours != nil {
		return *e.ApprovedHours
	}
	return e.LoggedHours
}
