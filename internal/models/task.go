package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	// Order positions the task within its (project, status) column.
	// Stored as "position" because "order" is a reserved word.
	Order        int        `gorm:"column:position;not null;default:0" json:"order"`
	ProjectID    uint64     `gorm:"not null;index" json:"project_id"`
	AssignedToID *uint64    `gorm:"index" json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
	CreatedByID  uint64     `gorm:"not null" json:"created_by_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	Project    Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	AssignedTo *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	CreatedBy  User    `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}
