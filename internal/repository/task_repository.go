package repository

import (
	"database/sql"

	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListByProject lists a project's tasks sorted by status then order, with
// user summaries preloaded.
func (r *GormTaskRepository) ListByProject(projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.
		Preload("AssignedTo").
		Preload("CreatedBy").
		Where("project_id = ?", projectID).
		Order("status ASC, position ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// UpdateOrder rewrites a single task's order value
func (r *GormTaskRepository) UpdateOrder(taskID uint64, order int) error {
	return r.db.Model(&models.Task{}).
		Where("id = ?", taskID).
		Update("position", order).Error
}

// Delete removes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// MaxOrder returns the highest order value in a (project, status) partition
func (r *GormTaskRepository) MaxOrder(projectID uint64, status models.TaskStatus) (int, bool, error) {
	var max sql.NullInt64
	row := r.db.Model(&models.Task{}).
		Where("project_id = ? AND status = ?", projectID, status).
		Select("MAX(position)").
		Row()
	if err := row.Scan(&max); err != nil {
		return 0, false, err
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

// ListPartition lists a partition's tasks in ascending order, excluding one task
func (r *GormTaskRepository) ListPartition(projectID uint64, status models.TaskStatus, excludeID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.
		Where("project_id = ? AND status = ? AND id <> ?", projectID, status, excludeID).
		Order("position ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
