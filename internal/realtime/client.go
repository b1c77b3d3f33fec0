package realtime

import (
	"sync"
	"time"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// wsConn is the subset of *websocket.Conn the hub needs to deliver frames.
type wsConn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one authenticated websocket connection.
type Client struct {
	conn     wsConn
	userID   uint64
	username string

	writeMu sync.Mutex

	// rooms the client has joined, guarded by the hub's mutex.
	rooms map[uint64]struct{}
}

// NewClient wraps an upgraded connection for hub use.
func NewClient(conn wsConn, userID uint64, username string) *Client {
	return &Client{
		conn:     conn,
		userID:   userID,
		username: username,
		rooms:    make(map[uint64]struct{}),
	}
}

func (c *Client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) close() {
	_ = c.conn.Close()
}
