package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Client is one websocket connection. It sits at one table at a time, either
// in a seat or as a watcher.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	user    string
	tableID string
	seat    *zone.Player

	sendMu sync.Mutex
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
	}
}

// User returns the name the client joined with.
func (c *Client) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Seat returns the client's seat, or nil for a watcher.
func (c *Client) Seat() *zone.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seat == nil {
		return nil
	}
	s := *c.seat
	return &s
}

// TableID returns the table the client has joined.
func (c *Client) TableID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tableID
}

func (c *Client) attach(user, tableID string, seat *zone.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	c.tableID = tableID
	c.seat = seat
}

func (c *Client) detach() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.tableID
	c.tableID = ""
	c.seat = nil
	return id
}

// reply queues r. A client that cannot keep up is disconnected.
func (c *Client) reply(r Reply) {
	b, err := json.Marshal(r)
	if err != nil {
		c.hub.logger.Error("failed to marshal reply", zap.String("type", r.Type), zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		c.hub.logger.Warn("client send buffer full, disconnecting", zap.String("user", c.User()))
		c.closeLocked()
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		if id := c.detach(); id != "" {
			c.hub.leave(c, id)
		}
		c.close()
		c.conn.Close()
	}()

	pongWait := c.hub.cfg.PingInterval * 10 / 9
	if c.hub.cfg.ReadLimit > 0 {
		c.conn.SetReadLimit(c.hub.cfg.ReadLimit)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(Reply{Type: MsgError, Error: "malformed message"})
			continue
		}
		c.hub.handle(context.Background(), c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
