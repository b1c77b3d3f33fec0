package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/dto"
	"github.com/taskflow/taskflow-api/internal/httperr"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/realtime"
	"github.com/taskflow/taskflow-api/internal/services"
)

// TaskHandler coordinates task HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
	hub         *realtime.Hub
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, hub *realtime.Hub) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		hub:         hub,
	}
}

// ListProjectTasks returns all tasks of a project, sorted by column and order.
// Access is checked by RequireProjectAccess.
func (h *TaskHandler) ListProjectTasks(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	tasks, err := h.taskService.ListProjectTasks(project.ID)
	if err != nil {
		httperr.Internal(c)
		return
	}

	httperr.Success(c, http.StatusOK, "Tasks retrieved successfully", gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// GetTask returns one task. Access is checked by RequireTaskAccess.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	full, err := h.taskService.GetTask(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	httperr.Success(c, http.StatusOK, "Task retrieved successfully", gin.H{
		"task": dto.ToTaskDTO(*full),
	})
}

// CreateTask creates a task in a project the user belongs to. The project id
// comes from the body, so membership is checked here rather than in
// middleware.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		httperr.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title       string     `json:"title" binding:"required,min=3"`
		Description string     `json:"description"`
		Status      string     `json:"status" binding:"omitempty,oneof=todo in_progress done"`
		Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
		Project     uint64     `json:"project" binding:"required"`
		AssignedTo  *uint64    `json:"assignedTo"`
		DueDate     *time.Time `json:"dueDate"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.TaskStatus(req.Status),
		Priority:     models.TaskPriority(req.Priority),
		ProjectID:    req.Project,
		AssignedToID: req.AssignedTo,
		DueDate:      req.DueDate,
		CreatorID:    userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	taskDTO := dto.ToTaskDTO(*task)
	h.hub.BroadcastToProject(task.ProjectID, realtime.EventTaskCreated, gin.H{"task": taskDTO}, userID)

	httperr.Success(c, http.StatusCreated, "Task created successfully", gin.H{
		"task": taskDTO,
	})
}

// UpdateTask applies partial updates to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	task, ok := middleware.GetTask(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	type UpdateTaskRequest struct {
		Title       *string    `json:"title" binding:"omitempty,min=3"`
		Description *string    `json:"description"`
		Status      *string    `json:"status" binding:"omitempty,oneof=todo in_progress done"`
		Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
		AssignedTo  *uint64    `json:"assignedTo"`
		DueDate     *time.Time `json:"dueDate"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	input := services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedTo,
		DueDate:      req.DueDate,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}

	updated, err := h.taskService.UpdateTask(task.ID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	taskDTO := dto.ToTaskDTO(*updated)
	h.hub.BroadcastToProject(updated.ProjectID, realtime.EventTaskUpdated, gin.H{"task": taskDTO}, userID)

	httperr.Success(c, http.StatusOK, "Task updated successfully", gin.H{
		"task": taskDTO,
	})
}

// MoveTask moves a task to a new column position.
func (h *TaskHandler) MoveTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	task, ok := middleware.GetTask(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	type MoveTaskRequest struct {
		Status *string `json:"status" binding:"omitempty,oneof=todo in_progress done"`
		Order  *int    `json:"order" binding:"required,gte=0"`
	}

	var req MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	var status *models.TaskStatus
	if req.Status != nil {
		s := models.TaskStatus(*req.Status)
		status = &s
	}

	moved, err := h.taskService.MoveTask(task.ID, status, *req.Order)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	taskDTO := dto.ToTaskDTO(*moved)
	h.hub.BroadcastToProject(moved.ProjectID, realtime.EventTaskMoved, gin.H{"task": taskDTO}, userID)

	httperr.Success(c, http.StatusOK, "Task moved successfully", gin.H{
		"task": taskDTO,
	})
}

// AssignTask sets or clears the task's assignee.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	task, ok := middleware.GetTask(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	type AssignTaskRequest struct {
		UserID *uint64 `json:"userId"`
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	assigned, err := h.taskService.AssignTask(task.ID, req.UserID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	taskDTO := dto.ToTaskDTO(*assigned)
	h.hub.BroadcastToProject(assigned.ProjectID, realtime.EventTaskUpdated, gin.H{"task": taskDTO}, userID)

	httperr.Success(c, http.StatusOK, "Task assigned successfully", gin.H{
		"task": taskDTO,
	})
}

// DeleteTask removes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	task, ok := middleware.GetTask(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	if err := h.taskService.DeleteTask(task.ID); err != nil {
		respondTaskError(c, err)
		return
	}

	h.hub.BroadcastToProject(task.ProjectID, realtime.EventTaskDeleted, gin.H{
		"taskId": task.ID,
	}, userID)

	httperr.Success(c, http.StatusOK, "Task deleted successfully", nil)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		httperr.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTaskProjectAbsent):
		httperr.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrNotProjectMember):
		httperr.Forbidden(c, "You do not have access to this project")
	case errors.Is(err, services.ErrInvalidAssignee):
		httperr.BadRequest(c, "Cannot assign task to non-member")
	default:
		httperr.Internal(c)
	}
}
