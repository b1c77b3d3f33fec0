package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/httperr"
	"github.com/taskflow/taskflow-api/internal/models"
)

// RequireProjectAccess checks that the user owns or belongs to the project
// named by the :id parameter. Absent projects yield 404, existing projects
// the user has no rights to yield 403.
func RequireProjectAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			httperr.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			httperr.Unauthorized(c, "")
			c.Abort()
			return
		}

		var project models.Project
		if err := database.GetDB().First(&project, projectID).Error; err != nil {
			httperr.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		if project.OwnerID != userID {
			var member models.ProjectMember
			err := database.GetDB().
				Where("project_id = ? AND user_id = ?", projectID, userID).
				First(&member).Error
			if err != nil {
				httperr.Forbidden(c, "You do not have access to this project")
				c.Abort()
				return
			}
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}

// RequireProjectOwner checks that the acting user owns the project loaded by
// RequireProjectAccess.
func RequireProjectOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		project, ok := GetProject(c)
		if !ok {
			httperr.Internal(c)
			c.Abort()
			return
		}

		userID, _ := GetUserID(c)
		if project.OwnerID != userID {
			httperr.Forbidden(c, "Only the project owner can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetProject retrieves the project loaded by RequireProjectAccess.
func GetProject(c *gin.Context) (models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return models.Project{}, false
	}

	project, ok := value.(models.Project)
	return project, ok
}
