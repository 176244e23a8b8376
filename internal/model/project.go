package model

// Project 项目表，对应 projects
type Project struct {
	ProjectID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"project_id"`
	Code      string `gorm:"type:varchar(32);not null"                      json:"code"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// Task 项目任务表，对应 tasks
type Task struct {
	TaskID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	ProjectID string `gorm:"type:uuid;not null"                             json:"project_id"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }
