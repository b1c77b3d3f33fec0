package repository

import "github.com/taskflow/taskflow-api/internal/models"

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project and its owner membership atomically
	Create(project *models.Project, owner *models.ProjectMember) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Project, error)

	// ListByUser lists projects the user owns or is a member of
	ListByUser(userID uint64) ([]models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete removes a project, its memberships and all its tasks
	Delete(id uint64) error

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(projectID, userID uint64) error

	// FindMember finds a specific project membership
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// ListByProject lists a project's tasks sorted by status then order
	ListByProject(projectID uint64) ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// UpdateOrder rewrites a single task's order value
	UpdateOrder(taskID uint64, order int) error

	// Delete removes a task
	Delete(id uint64) error

	// MaxOrder returns the highest order in a (project, status) partition.
	// The bool reports whether the partition has any tasks.
	MaxOrder(projectID uint64, status models.TaskStatus) (int, bool, error)

	// ListPartition lists a partition's tasks in ascending order, excluding one
	ListPartition(projectID uint64, status models.TaskStatus, excludeID uint64) ([]models.Task, error)
}
