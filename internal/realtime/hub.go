package realtime

import "sync"

// Event names on the wire. Inbound from clients:
const (
	EventJoinProject  = "join_project"
	EventLeaveProject = "leave_project"
)

// Outbound to clients:
const (
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventTaskMoved      = "task_moved"
	EventProjectUpdated = "project_updated"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
)

// Message is the envelope for every frame in either direction.
type Message struct {
	Event     string      `json:"event"`
	ProjectID uint64      `json:"project_id"`
	Data      interface{} `json:"data,omitempty"`
}

// Hub tracks which connections are in which project room. Membership is
// in-memory only; a restart empties every room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint64]map[*Client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uint64]map[*Client]struct{}),
	}
}

// Join adds the client to a project room.
func (h *Hub) Join(projectID uint64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[projectID] == nil {
		h.rooms[projectID] = make(map[*Client]struct{})
	}
	h.rooms[projectID][c] = struct{}{}
	c.rooms[projectID] = struct{}{}
}

// Leave removes the client from a project room.
func (h *Hub) Leave(projectID uint64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(projectID, c)
}

// LeaveAll removes the client from every room it had joined and returns the
// project IDs it was removed from.
func (h *Hub) LeaveAll(c *Client) []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	left := make([]uint64, 0, len(c.rooms))
	for projectID := range c.rooms {
		h.removeLocked(projectID, c)
		left = append(left, projectID)
	}
	return left
}

func (h *Hub) removeLocked(projectID uint64, c *Client) {
	if conns, ok := h.rooms[projectID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, projectID)
		}
	}
	delete(c.rooms, projectID)
}

// BroadcastToProject sends an event to every room member except connections
// belonging to the acting user, who already has the result from the HTTP
// response.
func (h *Hub) BroadcastToProject(projectID uint64, event string, data interface{}, actorID uint64) {
	h.broadcast(projectID, Message{Event: event, ProjectID: projectID, Data: data}, func(c *Client) bool {
		return c.userID == actorID
	})
}

// broadcast fans a message out to the room, skipping clients for which skip
// returns true. Failed connections are dropped from the room.
func (h *Hub) broadcast(projectID uint64, msg Message, skip func(*Client) bool) {
	h.mu.RLock()
	conns, ok := h.rooms[projectID]
	if !ok || len(conns) == 0 {
		h.mu.RUnlock()
		return
	}

	targets := make([]*Client, 0, len(conns))
	for c := range conns {
		if skip != nil && skip(c) {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(msg); err != nil {
			h.Leave(projectID, c)
			c.close()
		}
	}
}
