package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second // must be shorter than wsPongWait
)

// wsConn wraps one WebSocket connection behind the presence.Conn handle
// contract. Writes are serialized; gorilla connections allow one writer.
type wsConn struct {
	id   string
	conn *websocket.Conn

	mu sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.New().String(), conn: conn}
}

func (c *wsConn) ID() string { return c.id }

// Send marshals v and writes it as one text message. Fire and forget: the
// core never waits on acknowledgment.
func (c *wsConn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// startKeepalive pings on a fixed period until the returned cancel runs.
// The read side extends its deadline on pong.
func (c *wsConn) startKeepalive() func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				err := c.conn.WriteMessage(websocket.PingMessage, nil)
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
