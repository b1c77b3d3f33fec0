package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotProjectMember  = errors.New("user is not a member of the project")
	ErrInvalidAssignee   = errors.New("assignee must be a member of the project")
	ErrTaskProjectAbsent = errors.New("project not found")
)

// TaskService handles task business logic, including column ordering.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title        string
	Description  string
	Status       models.TaskStatus
	Priority     models.TaskPriority
	ProjectID    uint64
	AssignedToID *uint64
	DueDate      *time.Time
	CreatorID    uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssignedToID  *uint64
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// ListProjectTasks returns the project's tasks sorted by status then order.
func (s *TaskService) ListProjectTasks(projectID uint64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task with user summaries.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "AssignedTo", "CreatedBy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// CreateTask creates a task appended to the end of its column. The creator
// must belong to the project, and the assignee, if any, must too.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	project, err := s.projectRepo.FindByID(input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskProjectAbsent
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if ok, err := s.belongsToProject(project, input.CreatorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotProjectMember
	}

	if input.AssignedToID != nil {
		if ok, err := s.belongsToProject(project, *input.AssignedToID); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrInvalidAssignee
		}
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}

	order, err := s.place(input.ProjectID, input.Status)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		Status:       input.Status,
		Priority:     input.Priority,
		Order:        order,
		ProjectID:    input.ProjectID,
		AssignedToID: input.AssignedToID,
		DueDate:      input.DueDate,
		CreatedByID:  input.CreatorID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "AssignedTo", "CreatedBy")
}

// UpdateTask applies partial updates to a task.
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.ClearAssignee {
		task.AssignedToID = nil
	} else if input.AssignedToID != nil {
		if err := s.ensureAssignable(task.ProjectID, *input.AssignedToID); err != nil {
			return nil, err
		}
		task.AssignedToID = input.AssignedToID
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "AssignedTo", "CreatedBy")
}

// MoveTask writes the requested status and order to the task verbatim, then
// reindexes the rest of the destination column so order values stay distinct.
// The reindex is best-effort and runs outside any transaction.
func (s *TaskService) MoveTask(taskID uint64, status *models.TaskStatus, order int) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if status != nil {
		task.Status = *status
	}
	task.Order = order

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	if err := s.reindexPartition(task); err != nil {
		return nil, err
	}

	return s.taskRepo.FindByID(task.ID, "AssignedTo", "CreatedBy")
}

// AssignTask sets or clears the task's assignee. A nil userID unassigns.
func (s *TaskService) AssignTask(taskID uint64, userID *uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if userID != nil {
		if err := s.ensureAssignable(task.ProjectID, *userID); err != nil {
			return nil, err
		}
	}
	task.AssignedToID = userID

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "AssignedTo", "CreatedBy")
}

// DeleteTask removes a task.
func (s *TaskService) DeleteTask(taskID uint64) error {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// place computes the order for a task appended to a (project, status) column:
// one past the current maximum, or 0 for an empty column.
func (s *TaskService) place(projectID uint64, status models.TaskStatus) (int, error) {
	max, found, err := s.taskRepo.MaxOrder(projectID, status)
	if err != nil {
		return 0, fmt.Errorf("failed to compute task order: %w", err)
	}
	if !found {
		return 0, nil
	}
	return max + 1, nil
}

// reindexPartition reassigns sequential orders, starting just past the moved
// task's slot, to every other task in the column whose order collides with or
// follows it. Tasks below the slot keep their orders.
func (s *TaskService) reindexPartition(moved *models.Task) error {
	others, err := s.taskRepo.ListPartition(moved.ProjectID, moved.Status, moved.ID)
	if err != nil {
		return fmt.Errorf("failed to load column for reindex: %w", err)
	}

	next := moved.Order + 1
	for _, t := range others {
		if t.Order < moved.Order {
			continue
		}
		if err := s.taskRepo.UpdateOrder(t.ID, next); err != nil {
			return fmt.Errorf("failed to reindex column: %w", err)
		}
		next++
	}

	return nil
}

func (s *TaskService) ensureAssignable(projectID, userID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskProjectAbsent
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	ok, err := s.belongsToProject(project, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *TaskService) belongsToProject(project *models.Project, userID uint64) (bool, error) {
	if project.OwnerID == userID {
		return true, nil
	}

	if _, err := s.projectRepo.FindMember(project.ID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify project membership: %w", err)
	}

	return true, nil
}
