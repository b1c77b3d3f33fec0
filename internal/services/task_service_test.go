package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TaskServiceTestSuite struct {
	suite.Suite
	db             *gorm.DB
	taskService    *TaskService
	projectService *ProjectService
	owner          models.User
	member         models.User
	outsider       models.User
	project        models.Project
}

func (s *TaskServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(&models.User{}, &models.Project{}, &models.ProjectMember{}, &models.Task{}))
	s.db = db

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	s.projectService = NewProjectService(projectRepo, userRepo)
	s.taskService = NewTaskService(taskRepo, projectRepo)

	s.owner = s.createUser("alice")
	s.member = s.createUser("bob")
	s.outsider = s.createUser("mallory")

	project, err := s.projectService.CreateProject(CreateProjectInput{
		Title:   "Sprint board",
		OwnerID: s.owner.ID,
	})
	s.Require().NoError(err)

	_, err = s.projectService.AddMember(project.ID, s.member.ID)
	s.Require().NoError(err)

	s.project = *project
}

func (s *TaskServiceTestSuite) createUser(name string) models.User {
	user := models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hashed",
	}
	s.Require().NoError(s.db.Create(&user).Error)
	return user
}

func (s *TaskServiceTestSuite) createTask(title string, status models.TaskStatus) *models.Task {
	task, err := s.taskService.CreateTask(CreateTaskInput{
		Title:     title,
		Status:    status,
		ProjectID: s.project.ID,
		CreatorID: s.owner.ID,
	})
	s.Require().NoError(err)
	return task
}

// columnOrders returns title -> order for every task in the given column.
func (s *TaskServiceTestSuite) columnOrders(status models.TaskStatus) map[string]int {
	var tasks []models.Task
	err := s.db.Where("project_id = ? AND status = ?", s.project.ID, status).Find(&tasks).Error
	s.Require().NoError(err)

	orders := make(map[string]int, len(tasks))
	for _, t := range tasks {
		orders[t.Title] = t.Order
	}
	return orders
}

func (s *TaskServiceTestSuite) TestCreateTask_AppendsToColumn() {
	a := s.createTask("First", models.TaskStatusTodo)
	b := s.createTask("Second", models.TaskStatusTodo)
	c := s.createTask("Third", models.TaskStatusTodo)

	s.Equal(0, a.Order)
	s.Equal(1, b.Order)
	s.Equal(2, c.Order)

	// Columns are ordered independently.
	d := s.createTask("Done first", models.TaskStatusDone)
	s.Equal(0, d.Order)
}

func (s *TaskServiceTestSuite) TestCreateTask_Defaults() {
	task, err := s.taskService.CreateTask(CreateTaskInput{
		Title:     "Untouched defaults",
		ProjectID: s.project.ID,
		CreatorID: s.member.ID,
	})
	s.Require().NoError(err)

	s.Equal(models.TaskStatusTodo, task.Status)
	s.Equal(models.TaskPriorityMedium, task.Priority)
	s.Nil(task.AssignedToID)
	s.Equal(s.member.ID, task.CreatedByID)
}

func (s *TaskServiceTestSuite) TestCreateTask_NonMemberCreator() {
	_, err := s.taskService.CreateTask(CreateTaskInput{
		Title:     "Sneaky",
		ProjectID: s.project.ID,
		CreatorID: s.outsider.ID,
	})
	s.Require().ErrorIs(err, ErrNotProjectMember)
}

func (s *TaskServiceTestSuite) TestCreateTask_OutsiderAssignee() {
	_, err := s.taskService.CreateTask(CreateTaskInput{
		Title:        "Misassigned",
		ProjectID:    s.project.ID,
		CreatorID:    s.owner.ID,
		AssignedToID: &s.outsider.ID,
	})
	s.Require().ErrorIs(err, ErrInvalidAssignee)
}

func (s *TaskServiceTestSuite) TestCreateTask_UnknownProject() {
	_, err := s.taskService.CreateTask(CreateTaskInput{
		Title:     "Orphan",
		ProjectID: 9999,
		CreatorID: s.owner.ID,
	})
	s.Require().ErrorIs(err, ErrTaskProjectAbsent)
}

func (s *TaskServiceTestSuite) TestMoveTask_AcrossColumns() {
	s.createTask("A", models.TaskStatusTodo)
	s.createTask("B", models.TaskStatusTodo)
	s.createTask("C", models.TaskStatusTodo)
	moved := s.createTask("D", models.TaskStatusDone)

	status := models.TaskStatusTodo
	result, err := s.taskService.MoveTask(moved.ID, &status, 1)
	s.Require().NoError(err)

	s.Equal(models.TaskStatusTodo, result.Status)
	s.Equal(1, result.Order)

	orders := s.columnOrders(models.TaskStatusTodo)
	s.Equal(0, orders["A"])
	s.Equal(1, orders["D"])
	s.Equal(2, orders["B"])
	s.Equal(3, orders["C"])

	s.Empty(s.columnOrders(models.TaskStatusDone))
}

func (s *TaskServiceTestSuite) TestMoveTask_SameColumnReorder() {
	s.createTask("A", models.TaskStatusTodo)
	s.createTask("B", models.TaskStatusTodo)
	c := s.createTask("C", models.TaskStatusTodo)

	result, err := s.taskService.MoveTask(c.ID, nil, 0)
	s.Require().NoError(err)

	s.Equal(models.TaskStatusTodo, result.Status)
	s.Equal(0, result.Order)

	orders := s.columnOrders(models.TaskStatusTodo)
	s.Equal(0, orders["C"])
	s.Equal(1, orders["A"])
	s.Equal(2, orders["B"])
}

func (s *TaskServiceTestSuite) TestMoveTask_NotFound() {
	_, err := s.taskService.MoveTask(9999, nil, 0)
	s.Require().ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestAssignTask() {
	task := s.createTask("Assignable", models.TaskStatusTodo)

	assigned, err := s.taskService.AssignTask(task.ID, &s.member.ID)
	s.Require().NoError(err)
	s.Require().NotNil(assigned.AssignedToID)
	s.Equal(s.member.ID, *assigned.AssignedToID)
	s.Equal("bob", assigned.AssignedTo.Username)

	// Clearing the assignee.
	cleared, err := s.taskService.AssignTask(task.ID, nil)
	s.Require().NoError(err)
	s.Nil(cleared.AssignedToID)
}

func (s *TaskServiceTestSuite) TestAssignTask_OutsiderRejected() {
	task := s.createTask("Guarded", models.TaskStatusTodo)

	_, err := s.taskService.AssignTask(task.ID, &s.member.ID)
	s.Require().NoError(err)

	_, err = s.taskService.AssignTask(task.ID, &s.outsider.ID)
	s.Require().ErrorIs(err, ErrInvalidAssignee)

	// The rejected assignment left the task untouched.
	current, err := s.taskService.GetTask(task.ID)
	s.Require().NoError(err)
	s.Require().NotNil(current.AssignedToID)
	s.Equal(s.member.ID, *current.AssignedToID)
}

func (s *TaskServiceTestSuite) TestUpdateTask_Partial() {
	task := s.createTask("Original title", models.TaskStatusTodo)

	title := "Renamed title"
	updated, err := s.taskService.UpdateTask(task.ID, UpdateTaskInput{Title: &title})
	s.Require().NoError(err)

	s.Equal("Renamed title", updated.Title)
	s.Equal(task.Status, updated.Status)
	s.Equal(task.Priority, updated.Priority)
	s.Equal(task.Order, updated.Order)
}

func (s *TaskServiceTestSuite) TestDeleteTask() {
	task := s.createTask("Doomed", models.TaskStatusTodo)

	s.Require().NoError(s.taskService.DeleteTask(task.ID))

	_, err := s.taskService.GetTask(task.ID)
	s.Require().ErrorIs(err, ErrTaskNotFound)

	s.Require().ErrorIs(s.taskService.DeleteTask(task.ID), ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestListProjectTasks_SortedByColumnAndOrder() {
	s.createTask("T1", models.TaskStatusTodo)
	s.createTask("D1", models.TaskStatusDone)
	s.createTask("T2", models.TaskStatusTodo)
	s.createTask("P1", models.TaskStatusInProgress)

	tasks, err := s.taskService.ListProjectTasks(s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(tasks, 4)

	titles := make([]string, len(tasks))
	for i, t := range tasks {
		titles[i] = t.Title
	}
	s.Equal([]string{"D1", "P1", "T1", "T2"}, titles)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
