package model

import "time"

// ApprovalAction 审批记录动作
type ApprovalAction string

const (
	ActionSubmitted        ApprovalAction = "submitted"
	ActionApproved         ApprovalAction = "approved"
	ActionRejected         ApprovalAction = "rejected"
	ActionSubmittedToAdmin ApprovalAction = "submitted_to_admin"
	ActionModified         ApprovalAction = "modified"
	ActionFinished         ApprovalAction = "finished"
)

// ApprovalHistoryEntry 审批记录表，对应 approval_history_entries（只追加，纯审计日志）
type ApprovalHistoryEntry struct {
	HistoryID   string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"history_id"`
	TimesheetID string           `gorm:"type:uuid;not null"                             json:"timesheet_id"`
	Action      ApprovalAction   `gorm:"type:varchar(32);not null"                      json:"action"`
	FromStatus  *TimesheetStatus `gorm:"type:varchar(32)"                               json:"from_status,omitempty"`
	ToStatus    *TimesheetStatus `gorm:"type:varchar(32)"                               json:"to_status,omitempty"`
	Comment     *string          `gorm:"type:varchar(1000)"                             json:"comment,omitempty"`
	EntryID     *string          `gorm:"type:uuid"                                      json:"entry_id,omitempty"` // 仅 modified 动作
	Timestamp   time.Time        `gorm:"not null"                                       json:"timestamp"`
	ActorID     string           `gorm:"type:uuid;not null"                             json:"actor_id"`
	// Seq 数据库自增序号，同一时间戳内保持写入顺序
	Seq int64 `gorm:"->;column:seq" json:"-"`
}

// TableName 指定表名
func (ApprovalHistoryEntry) TableName() string { return "approval_history_entries" }
