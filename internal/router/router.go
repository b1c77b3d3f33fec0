package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/config"
	"github.com/taskflow/taskflow-api/internal/handlers"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/realtime"
)

// New builds the gin engine with CORS, the API route table and the
// websocket endpoint.
func New(cfg *config.Config, authHandler *handlers.AuthHandler, projectHandler *handlers.ProjectHandler, taskHandler *handlers.TaskHandler, wsHandler *realtime.Handler) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ws", wsHandler.Serve)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.RequireAuth(), authHandler.Me)
		}

		projects := api.Group("/projects", middleware.RequireAuth())
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", middleware.RequireProjectAccess(), projectHandler.GetProject)
			projects.PUT("/:id", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.UpdateProject)
			projects.DELETE("/:id", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.DeleteProject)
			projects.POST("/:id/members", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.AddMember)
			projects.DELETE("/:id/members/:userId", middleware.RequireProjectAccess(), middleware.RequireProjectOwner(), projectHandler.RemoveMember)
		}

		tasks := api.Group("/tasks", middleware.RequireAuth())
		{
			tasks.GET("/project/:id", middleware.RequireProjectAccess(), taskHandler.ListProjectTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PUT("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.PATCH("/:id/move", middleware.RequireTaskAccess(), taskHandler.MoveTask)
			tasks.PATCH("/:id/assign", middleware.RequireTaskAccess(), taskHandler.AssignTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
		}
	}

	return r
}
