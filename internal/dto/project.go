package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     uint64    `json:"ownerId"`
	Owner       *UserDTO  `json:"owner,omitempty"`
	Members     []UserDTO `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToProjectDTO converts a Project model to ProjectDTO. Owner and member
// summaries are included when the relations were preloaded.
func ToProjectDTO(project models.Project) ProjectDTO {
	d := ProjectDTO{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		Members:     make([]UserDTO, 0, len(project.Members)),
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}

	if project.Owner.ID != 0 {
		owner := ToUserDTO(project.Owner)
		d.Owner = &owner
	}

	for _, member := range project.Members {
		if member.User.ID != 0 {
			d.Members = append(d.Members, ToUserDTO(member.User))
		}
	}

	return d
}

// ToProjectDTOs converts a slice of projects.
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}
