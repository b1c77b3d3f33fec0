package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Status       models.TaskStatus   `json:"status"`
	Priority     models.TaskPriority `json:"priority"`
	Order        int                 `json:"order"`
	ProjectID    uint64              `json:"projectId"`
	AssignedToID *uint64             `json:"assignedToId"`
	AssignedTo   *UserDTO            `json:"assignedTo,omitempty"`
	DueDate      *time.Time          `json:"dueDate"`
	CreatedByID  uint64              `json:"createdById"`
	CreatedBy    *UserDTO            `json:"createdBy,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	d := TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		Priority:     task.Priority,
		Order:        task.Order,
		ProjectID:    task.ProjectID,
		AssignedToID: task.AssignedToID,
		DueDate:      task.DueDate,
		CreatedByID:  task.CreatedByID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	if task.AssignedTo != nil && task.AssignedTo.ID != 0 {
		assignee := ToUserDTO(*task.AssignedTo)
		d.AssignedTo = &assignee
	}

	if task.CreatedBy.ID != 0 {
		creator := ToUserDTO(task.CreatedBy)
		d.CreatedBy = &creator
	}

	return d
}

// ToTaskDTOs converts a slice of tasks.
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}
