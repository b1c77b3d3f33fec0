package realtime

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/taskflow/taskflow-api/internal/auth"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

// Handler authenticates websocket handshakes and runs the per-connection
// read loop. The bearer token is the same credential the HTTP API uses; a
// missing or invalid token refuses the connection before any room operation.
type Handler struct {
	hub            *Hub
	users          repository.UserRepository
	projects       repository.ProjectRepository
	allowedOrigins []string
}

// NewHandler creates a websocket Handler.
func NewHandler(hub *Hub, users repository.UserRepository, projects repository.ProjectRepository, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		users:          users,
		projects:       projects,
		allowedOrigins: allowedOrigins,
	}
}

// Serve handles GET /ws.
func (h *Handler) Serve(c *gin.Context) {
	token := handshakeToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization token is required"})
		return
	}

	claims, err := auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
		return
	}

	user, err := h.users.FindByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not found"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, user.ID, user.Username)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer func() {
		close(done)
		h.disconnect(client)
		conn.Close()
		log.Printf("WebSocket connection closed for user %s", user.Username)
	}()

	go h.ping(client, done)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %s: %v", user.Username, err)
			}
			return
		}

		switch msg.Event {
		case EventJoinProject:
			h.joinProject(client, msg.ProjectID)
		case EventLeaveProject:
			h.leaveProject(client, msg.ProjectID)
		}
	}
}

// joinProject adds the client to the project room after a membership check.
// Joins for unknown or foreign projects are ignored.
func (h *Handler) joinProject(c *Client, projectID uint64) {
	if projectID == 0 {
		return
	}

	if !h.canJoin(projectID, c.userID) {
		return
	}

	h.hub.Join(projectID, c)
	h.hub.broadcast(projectID, Message{
		Event:     EventUserJoined,
		ProjectID: projectID,
		Data:      gin.H{"userId": c.userID, "username": c.username},
	}, func(other *Client) bool {
		return other == c
	})
}

func (h *Handler) leaveProject(c *Client, projectID uint64) {
	if projectID == 0 {
		return
	}

	h.hub.Leave(projectID, c)
	h.hub.broadcast(projectID, Message{
		Event:     EventUserLeft,
		ProjectID: projectID,
		Data:      gin.H{"userId": c.userID, "username": c.username},
	}, func(other *Client) bool {
		return other == c
	})
}

// disconnect removes the client from every room and notifies each of them.
func (h *Handler) disconnect(c *Client) {
	for _, projectID := range h.hub.LeaveAll(c) {
		h.hub.broadcast(projectID, Message{
			Event:     EventUserLeft,
			ProjectID: projectID,
			Data:      gin.H{"userId": c.userID, "username": c.username},
		}, nil)
	}
}

func (h *Handler) canJoin(projectID, userID uint64) bool {
	project, err := h.projects.FindByID(projectID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load project %d for join: %v", projectID, err)
		}
		return false
	}

	if project.OwnerID == userID {
		return true
	}

	if _, err := h.projects.FindMember(projectID, userID); err != nil {
		return false
	}
	return true
}

func (h *Handler) ping(c *Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				if wc, ok := c.conn.(*websocket.Conn); ok {
					err = wc.WriteMessage(websocket.PingMessage, nil)
				}
			}
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handshakeToken pulls the bearer credential from the token query parameter
// or the Authorization header.
func handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
