package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/auth"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/realtime"
	"github.com/taskflow/taskflow-api/internal/repository"
	"github.com/taskflow/taskflow-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// relayConn records messages a websocket client would have received.
type relayConn struct {
	mu     sync.Mutex
	events []realtime.Message
}

func (r *relayConn) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := v.(realtime.Message); ok {
		r.events = append(r.events, msg)
	}
	return nil
}

func (r *relayConn) SetWriteDeadline(time.Time) error { return nil }
func (r *relayConn) Close() error                     { return nil }

func (r *relayConn) received() []realtime.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.Message, len(r.events))
	copy(out, r.events)
	return out
}

type TaskHandlerTestSuite struct {
	suite.Suite
	db  *gorm.DB
	r   *gin.Engine
	hub *realtime.Hub

	owner    models.User
	member   models.User
	outsider models.User

	ownerToken    string
	memberToken   string
	outsiderToken string

	project models.Project
}

func (s *TaskHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(&models.User{}, &models.Project{}, &models.ProjectMember{}, &models.Task{}))
	database.SetDB(db)
	auth.Init("test-secret")
	s.db = db

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	projectService := services.NewProjectService(projectRepo, userRepo)
	taskService := services.NewTaskService(taskRepo, projectRepo)
	s.hub = realtime.NewHub()

	handler := NewTaskHandler(taskService, s.hub)

	r := gin.New()
	tasks := r.Group("/api/tasks", middleware.RequireAuth())
	{
		tasks.GET("/project/:id", middleware.RequireProjectAccess(), handler.ListProjectTasks)
		tasks.POST("", handler.CreateTask)
		tasks.GET("/:id", middleware.RequireTaskAccess(), handler.GetTask)
		tasks.PUT("/:id", middleware.RequireTaskAccess(), handler.UpdateTask)
		tasks.PATCH("/:id/move", middleware.RequireTaskAccess(), handler.MoveTask)
		tasks.PATCH("/:id/assign", middleware.RequireTaskAccess(), handler.AssignTask)
		tasks.DELETE("/:id", middleware.RequireTaskAccess(), handler.DeleteTask)
	}
	s.r = r

	s.owner, s.ownerToken = s.newUser("alice")
	s.member, s.memberToken = s.newUser("bob")
	s.outsider, s.outsiderToken = s.newUser("mallory")

	project, err := projectService.CreateProject(services.CreateProjectInput{
		Title:   "Sprint board",
		OwnerID: s.owner.ID,
	})
	s.Require().NoError(err)
	_, err = projectService.AddMember(project.ID, s.member.ID)
	s.Require().NoError(err)
	s.project = *project
}

func (s *TaskHandlerTestSuite) newUser(name string) (models.User, string) {
	user := models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hashed",
	}
	s.Require().NoError(s.db.Create(&user).Error)

	token, err := auth.GenerateToken(user.ID, user.Username)
	s.Require().NoError(err)
	return user, token
}

// createTask creates a task through the API as the owner and returns its
// response representation.
func (s *TaskHandlerTestSuite) createTask(title, status string) map[string]interface{} {
	body := gin.H{"title": title, "project": s.project.ID}
	if status != "" {
		body["status"] = status
	}

	w := performJSON(s.r, http.MethodPost, "/api/tasks", body, s.ownerToken)
	s.Require().Equal(http.StatusCreated, w.Code)

	return decodeBody(s.T(), w)["data"].(map[string]interface{})["task"].(map[string]interface{})
}

func (s *TaskHandlerTestSuite) taskID(task map[string]interface{}) uint64 {
	return uint64(task["id"].(float64))
}

func (s *TaskHandlerTestSuite) TestCreateTask_Defaults() {
	task := s.createTask("Write docs", "")

	s.Equal("todo", task["status"])
	s.Equal("medium", task["priority"])
	s.Equal(float64(0), task["order"])
	s.Equal(float64(s.project.ID), task["projectId"])
	s.Equal(float64(s.owner.ID), task["createdById"])
	s.Nil(task["assignedToId"])
}

func (s *TaskHandlerTestSuite) TestCreateTask_AppendsToColumn() {
	s.createTask("First", "")
	second := s.createTask("Second", "")

	s.Equal(float64(1), second["order"])
}

func (s *TaskHandlerTestSuite) TestCreateTask_UnknownProject() {
	w := performJSON(s.r, http.MethodPost, "/api/tasks", gin.H{
		"title":   "Orphan",
		"project": 9999,
	}, s.ownerToken)
	s.Require().Equal(http.StatusNotFound, w.Code)
	s.Equal("Project not found", decodeBody(s.T(), w)["error"])
}

func (s *TaskHandlerTestSuite) TestCreateTask_OutsiderForbidden() {
	w := performJSON(s.r, http.MethodPost, "/api/tasks", gin.H{
		"title":   "Sneaky",
		"project": s.project.ID,
	}, s.outsiderToken)
	s.Require().Equal(http.StatusForbidden, w.Code)
}

func (s *TaskHandlerTestSuite) TestCreateTask_InvalidStatus() {
	w := performJSON(s.r, http.MethodPost, "/api/tasks", gin.H{
		"title":   "Odd one",
		"project": s.project.ID,
		"status":  "archived",
	}, s.ownerToken)
	s.Require().Equal(http.StatusBadRequest, w.Code)
}

func (s *TaskHandlerTestSuite) TestGetTask() {
	id := s.taskID(s.createTask("Readable", ""))

	w := performJSON(s.r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, s.memberToken)
	s.Require().Equal(http.StatusOK, w.Code)

	task := decodeBody(s.T(), w)["data"].(map[string]interface{})["task"].(map[string]interface{})
	s.Equal("Readable", task["title"])
}

func (s *TaskHandlerTestSuite) TestGetTask_OutsiderForbidden() {
	id := s.taskID(s.createTask("Guarded", ""))

	w := performJSON(s.r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, s.outsiderToken)
	s.Require().Equal(http.StatusForbidden, w.Code)
}

func (s *TaskHandlerTestSuite) TestGetTask_Unknown() {
	w := performJSON(s.r, http.MethodGet, "/api/tasks/9999", nil, s.ownerToken)
	s.Require().Equal(http.StatusNotFound, w.Code)
	s.Equal("Task not found", decodeBody(s.T(), w)["error"])
}

func (s *TaskHandlerTestSuite) TestUpdateTask() {
	id := s.taskID(s.createTask("Old title", ""))

	w := performJSON(s.r, http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), gin.H{
		"title":    "New title",
		"priority": "high",
	}, s.memberToken)
	s.Require().Equal(http.StatusOK, w.Code)

	task := decodeBody(s.T(), w)["data"].(map[string]interface{})["task"].(map[string]interface{})
	s.Equal("New title", task["title"])
	s.Equal("high", task["priority"])
	s.Equal("todo", task["status"])
}

func (s *TaskHandlerTestSuite) TestMoveTask() {
	s.createTask("A", "todo")
	s.createTask("B", "todo")
	s.createTask("C", "todo")
	id := s.taskID(s.createTask("D", "done"))

	w := performJSON(s.r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/move", id), gin.H{
		"status": "todo",
		"order":  1,
	}, s.ownerToken)
	s.Require().Equal(http.StatusOK, w.Code)

	task := decodeBody(s.T(), w)["data"].(map[string]interface{})["task"].(map[string]interface{})
	s.Equal("todo", task["status"])
	s.Equal(float64(1), task["order"])

	// Every task in the destination column keeps a distinct order.
	var tasks []models.Task
	s.Require().NoError(s.db.Where("project_id = ? AND status = ?", s.project.ID, models.TaskStatusTodo).Find(&tasks).Error)
	seen := make(map[int]string, len(tasks))
	for _, t := range tasks {
		s.NotContains(seen, t.Order)
		seen[t.Order] = t.Title
	}
	s.Equal("A", seen[0])
	s.Equal("D", seen[1])
	s.Equal("B", seen[2])
	s.Equal("C", seen[3])
}

func (s *TaskHandlerTestSuite) TestMoveTask_MissingOrder() {
	id := s.taskID(s.createTask("Stuck", ""))

	w := performJSON(s.r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/move", id), gin.H{
		"status": "done",
	}, s.ownerToken)
	s.Require().Equal(http.StatusBadRequest, w.Code)
}

func (s *TaskHandlerTestSuite) TestAssignTask() {
	id := s.taskID(s.createTask("Assignable", ""))

	w := performJSON(s.r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/assign", id), gin.H{
		"userId": s.member.ID,
	}, s.ownerToken)
	s.Require().Equal(http.StatusOK, w.Code)

	task := decodeBody(s.T(), w)["data"].(map[string]interface{})["task"].(map[string]interface{})
	s.Equal(float64(s.member.ID), task["assignedToId"])
	s.Equal("bob", task["assignedTo"].(map[string]interface{})["username"])

	// A null userId clears the assignee.
	w = performJSON(s.r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/assign", id), gin.H{
		"userId": nil,
	}, s.ownerToken)
	s.Require().Equal(http.StatusOK, w.Code)

	task = decodeBody(s.T(), w)["data"].(map[string]interface{})["task"].(map[string]interface{})
	s.Nil(task["assignedToId"])
}

func (s *TaskHandlerTestSuite) TestAssignTask_OutsiderRejected() {
	id := s.taskID(s.createTask("Guarded", ""))

	w := performJSON(s.r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/assign", id), gin.H{
		"userId": s.outsider.ID,
	}, s.ownerToken)
	s.Require().Equal(http.StatusBadRequest, w.Code)
	s.Equal("Cannot assign task to non-member", decodeBody(s.T(), w)["error"])
}

func (s *TaskHandlerTestSuite) TestDeleteTask() {
	id := s.taskID(s.createTask("Doomed", ""))

	w := performJSON(s.r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, s.ownerToken)
	s.Require().Equal(http.StatusOK, w.Code)

	w = performJSON(s.r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, s.ownerToken)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *TaskHandlerTestSuite) TestListProjectTasks_Sorted() {
	s.createTask("T1", "todo")
	s.createTask("D1", "done")
	s.createTask("T2", "todo")

	w := performJSON(s.r, http.MethodGet, fmt.Sprintf("/api/tasks/project/%d", s.project.ID), nil, s.memberToken)
	s.Require().Equal(http.StatusOK, w.Code)

	tasks := decodeBody(s.T(), w)["data"].(map[string]interface{})["tasks"].([]interface{})
	s.Require().Len(tasks, 3)

	titles := make([]string, len(tasks))
	for i, t := range tasks {
		titles[i] = t.(map[string]interface{})["title"].(string)
	}
	s.Equal([]string{"D1", "T1", "T2"}, titles)
}

func (s *TaskHandlerTestSuite) TestMutationsReachOtherMembers() {
	memberConn := &relayConn{}
	ownerConn := &relayConn{}
	s.hub.Join(s.project.ID, realtime.NewClient(memberConn, s.member.ID, "bob"))
	s.hub.Join(s.project.ID, realtime.NewClient(ownerConn, s.owner.ID, "alice"))

	id := s.taskID(s.createTask("Broadcast me", ""))

	events := memberConn.received()
	s.Require().Len(events, 1)
	s.Equal(realtime.EventTaskCreated, events[0].Event)
	s.Equal(s.project.ID, events[0].ProjectID)

	// The acting user's own connection stays quiet.
	s.Empty(ownerConn.received())

	w := performJSON(s.r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, s.ownerToken)
	s.Require().Equal(http.StatusOK, w.Code)

	events = memberConn.received()
	s.Require().Len(events, 2)
	s.Equal(realtime.EventTaskDeleted, events[1].Event)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
