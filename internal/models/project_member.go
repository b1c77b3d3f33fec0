package models

import "time"

// ProjectMember links a user to a project. The owner always has a membership
// row of their own, so membership checks cover both roles.
type ProjectMember struct {
	ProjectID uint64    `gorm:"primarykey" json:"project_id"`
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
