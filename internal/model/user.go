package model

import "time"

// Role 用户角色
type Role string

const (
	RoleEmployee Role = "employee"
	RoleTeamLead Role = "team_lead"
	RoleAdmin    Role = "admin"
)

// IsApprover 组长与管理员可作为审批人
func (r Role) IsApprover() bool {
	return r == RoleTeamLead || r == RoleAdmin
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleTeamLead || r == RoleAdmin
}

// User 用户表，对应 users（由人事系统开通，流程引擎只读）
type User struct {
	UserID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string    `gorm:"type:varchar(255);not null"                     json:"email"`
	Name         string    `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	PasswordHash string    `gorm:"type:varchar(255);not null;default:''"          json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'employee'"   json:"role"`
	ManagerID    *string   `gorm:"type:uuid"                                      json:"manager_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
