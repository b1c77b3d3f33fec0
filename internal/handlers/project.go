package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/dto"
	"github.com/taskflow/taskflow-api/internal/httperr"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/realtime"
	"github.com/taskflow/taskflow-api/internal/services"
)

// ProjectHandler coordinates project HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
	taskService    *services.TaskService
	hub            *realtime.Hub
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, taskService *services.TaskService, hub *realtime.Hub) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		taskService:    taskService,
		hub:            hub,
	}
}

// ListProjects returns projects the user owns or belongs to.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		httperr.Unauthorized(c, "")
		return
	}

	projects, err := h.projectService.ListProjects(userID)
	if err != nil {
		httperr.Internal(c)
		return
	}

	httperr.Success(c, http.StatusOK, "Projects retrieved successfully", gin.H{
		"projects": dto.ToProjectDTOs(projects),
	})
}

// GetProject returns one project with its task board.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	full, err := h.projectService.GetProject(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	tasks, err := h.taskService.ListProjectTasks(project.ID)
	if err != nil {
		httperr.Internal(c)
		return
	}

	httperr.Success(c, http.StatusOK, "Project retrieved successfully", gin.H{
		"project": dto.ToProjectDTO(*full),
		"tasks":   dto.ToTaskDTOs(tasks),
	})
}

// CreateProject creates a project owned by the acting user.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		httperr.Unauthorized(c, "")
		return
	}

	type CreateProjectRequest struct {
		Title       string `json:"title" binding:"required,min=3"`
		Description string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	project, err := h.projectService.CreateProject(services.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     userID,
	})
	if err != nil {
		httperr.Internal(c)
		return
	}

	httperr.Success(c, http.StatusCreated, "Project created successfully", gin.H{
		"project": dto.ToProjectDTO(*project),
	})
}

// UpdateProject renames or re-describes a project. Owner only.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	project, ok := middleware.GetProject(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	type UpdateProjectRequest struct {
		Title       *string `json:"title" binding:"omitempty,min=3"`
		Description *string `json:"description"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	updated, err := h.projectService.UpdateProject(project.ID, services.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	projectDTO := dto.ToProjectDTO(*updated)
	h.hub.BroadcastToProject(project.ID, realtime.EventProjectUpdated, gin.H{"project": projectDTO}, userID)

	httperr.Success(c, http.StatusOK, "Project updated successfully", gin.H{
		"project": projectDTO,
	})
}

// DeleteProject removes a project and all of its tasks. Owner only.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	if err := h.projectService.DeleteProject(project.ID); err != nil {
		respondProjectError(c, err)
		return
	}

	httperr.Success(c, http.StatusOK, "Project deleted successfully", nil)
}

// AddMember adds a user to the project. Owner only.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	project, ok := middleware.GetProject(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	type AddMemberRequest struct {
		UserID uint64 `json:"userId" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Binding(c, err)
		return
	}

	updated, err := h.projectService.AddMember(project.ID, req.UserID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	projectDTO := dto.ToProjectDTO(*updated)
	h.hub.BroadcastToProject(project.ID, realtime.EventProjectUpdated, gin.H{"project": projectDTO}, userID)

	httperr.Success(c, http.StatusOK, "Member added successfully", gin.H{
		"project": projectDTO,
	})
}

// RemoveMember removes a user from the project. Owner only; the owner
// cannot be removed.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	project, ok := middleware.GetProject(c)
	if !ok {
		httperr.Internal(c)
		return
	}

	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		httperr.BadRequest(c, "Invalid user ID")
		return
	}

	updated, err := h.projectService.RemoveMember(project.ID, memberID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	projectDTO := dto.ToProjectDTO(*updated)
	h.hub.BroadcastToProject(project.ID, realtime.EventProjectUpdated, gin.H{"project": projectDTO}, userID)

	httperr.Success(c, http.StatusOK, "Member removed successfully", gin.H{
		"project": projectDTO,
	})
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		httperr.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrMemberUserNotFound):
		httperr.NotFound(c, "User not found")
	case errors.Is(err, services.ErrAlreadyMember):
		httperr.BadRequest(c, "User is already a member")
	case errors.Is(err, services.ErrMemberNotFound):
		httperr.BadRequest(c, "User is not a member of this project")
	case errors.Is(err, services.ErrCannotRemoveOwner):
		httperr.BadRequest(c, "Cannot remove project owner")
	default:
		httperr.Internal(c)
	}
}
