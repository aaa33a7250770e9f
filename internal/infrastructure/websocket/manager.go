package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dragonflychat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Client is one websocket connection serving one subscription topic.
type Client struct {
	ID     string
	UserID string
	Topic  string
	Conn   *websocket.Conn
	Send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID, topic string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Topic:  topic,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

// Done is closed once the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Enqueue blocks until the writer accepts msg or the client closes.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case c.Send <- msg:
		return true
	case <-c.done:
		return false
	}
}

// Manager tracks open connections so they can be counted and closed on shutdown.
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Run serves registrations until ctx is done, then closes every client.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.stopped)

	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.ID] = client
			m.mutex.Unlock()
			logger.Debug("Client registered: %s user=%s topic=%s", client.ID, client.UserID, client.Topic)

		case client := <-m.unregister:
			m.mutex.Lock()
			delete(m.clients, client.ID)
			m.mutex.Unlock()
			client.Close()
			logger.Debug("Client unregistered: %s", client.ID)

		case <-ctx.Done():
			m.mutex.Lock()
			for id, client := range m.clients {
				client.Close()
				delete(m.clients, id)
			}
			m.mutex.Unlock()
			return nil
		}
	}
}

// Register reports false when the manager is no longer running.
func (m *Manager) Register(c *Client) bool {
	select {
	case m.register <- c:
		return true
	case <-m.stopped:
		c.Close()
		return false
	}
}

func (m *Manager) Unregister(c *Client) {
	select {
	case m.unregister <- c:
	case <-m.stopped:
		c.Close()
	}
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump only watches the connection: subscriptions are one-way, but reading is how
// close frames and pongs are noticed. Incoming pings are answered.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error for %s: %v", c.ID, err)
			}
			return
		}

		if reply, ok := handleClientMessage(message); ok {
			if !c.Enqueue(reply) {
				return
			}
		}
	}
}

// WritePump owns all writes to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.flush()
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write error for %s: %v", c.ID, err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// flush writes whatever is still queued, such as a final error frame.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.Send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}
