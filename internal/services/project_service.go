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
	ErrProjectNotFound    = errors.New("project not found")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrMemberNotFound     = errors.New("user is not a member of this project")
	ErrCannotRemoveOwner  = errors.New("cannot remove project owner")
	ErrMemberUserNotFound = errors.New("user not found")
)

// ProjectService handles project and membership business logic.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Title       string
	Description string
	OwnerID     uint64
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Title       *string
	Description *string
}

// ListProjects returns projects the user owns or belongs to.
func (s *ProjectService) ListProjects(userID uint64) ([]models.Project, error) {
	projects, err := s.projectRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project with owner and member summaries.
func (s *ProjectService) GetProject(projectID uint64) (*models.Project, error) {
	return s.reload(projectID)
}

// CreateProject creates a project; the creator becomes owner and member.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	project := &models.Project{
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     input.OwnerID,
	}

	owner := &models.ProjectMember{
		UserID:   input.OwnerID,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.Create(project, owner); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.reload(project.ID)
}

// UpdateProject applies partial updates to title and description.
func (s *ProjectService) UpdateProject(projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if input.Title != nil {
		project.Title = *input.Title
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return s.reload(project.ID)
}

// DeleteProject removes the project with its memberships and tasks.
func (s *ProjectService) DeleteProject(projectID uint64) error {
	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// AddMember adds a user to the project's member set.
func (s *ProjectService) AddMember(projectID, userID uint64) (*models.Project, error) {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}

	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return s.reload(projectID)
}

// RemoveMember removes a user from the member set. The owner cannot be removed.
func (s *ProjectService) RemoveMember(projectID, userID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID == userID {
		return nil, ErrCannotRemoveOwner
	}

	if _, err := s.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	return s.reload(projectID)
}

// IsMember reports whether the user is the owner or a member of the project.
func (s *ProjectService) IsMember(projectID, userID uint64) (bool, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID == userID {
		return true, nil
	}

	if _, err := s.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return true, nil
}

func (s *ProjectService) reload(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Owner", "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to reload project: %w", err)
	}
	return project, nil
}
