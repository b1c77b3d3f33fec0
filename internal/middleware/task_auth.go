package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/httperr"
	"github.com/taskflow/taskflow-api/internal/models"
)

// RequireTaskAccess checks that the user belongs to the project of the task
// named by the :id parameter. Same 404/403 split as project access.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httperr.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			httperr.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().First(&task, taskID).Error; err != nil {
			httperr.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		var project models.Project
		if err := database.GetDB().First(&project, task.ProjectID).Error; err != nil {
			httperr.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		if project.OwnerID != userID {
			var member models.ProjectMember
			err := database.GetDB().
				Where("project_id = ? AND user_id = ?", task.ProjectID, userID).
				First(&member).Error
			if err != nil {
				httperr.Forbidden(c, "You do not have access to this task")
				c.Abort()
				return
			}
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess.
func GetTask(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}

	task, ok := value.(models.Task)
	return task, ok
}
