package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"griya/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one connected socket. A user may hold several clients at once
// (multiple tabs or devices), so sockets are identified by SocketID and
// grouped by UserID.
type Client struct {
	SocketID string
	UserID   string
	Role     string

	conn *websocket.Conn
	Send chan []byte
}

func NewClient(socketID, userID, role string, conn *websocket.Conn) *Client {
	return &Client{
		SocketID: socketID,
		UserID:   userID,
		Role:     role,
		conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
	}
}

func (c *Client) IsAuthenticated() bool {
	return c.UserID != ""
}

func (c *Client) IsAdmin() bool {
	return c.Role == "admin" || c.Role == "root-admin"
}

// ReadPump consumes inbound frames and hands each payload to handle. It
// unregisters the client from the manager on any read error, which covers
// both clean closes and dropped connections.
func (c *Client) ReadPump(manager *Manager, handle func(client *Client, payload []byte)) {
	defer func() {
		manager.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Unexpected close on socket %s: %v", c.SocketID, err)
			}
			return
		}
		handle(c, payload)
	}
}

// WritePump drains the Send channel onto the wire and keeps the connection
// alive with pings. Runs in its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
