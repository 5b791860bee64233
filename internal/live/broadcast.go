// Package live pushes session snapshots to websocket dashboards.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"spatial-radio/internal/radio"
)

const sendBuffer = 16

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster fans session lists out to every connected client. It implements
// radio.SnapshotSink: Publish never blocks, slow clients are dropped.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	snapshot func() []radio.SessionSnapshot
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewBroadcaster returns a Broadcaster. snapshot supplies the list sent to a
// client when it connects.
func NewBroadcaster(snapshot func() []radio.SessionSnapshot, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			// Dashboards are served from anywhere; the API carries no secrets.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeWS handles GET /ws.
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Debug("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	b.log.Info("ws client connected", slog.String("remote", r.RemoteAddr))
	c := b.AddClient(conn)

	go func() {
		defer func() {
			b.RemoveClient(c)
			b.log.Info("ws client disconnected", slog.String("remote", r.RemoteAddr))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// AddClient registers conn and queues the current snapshot for it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, b: b, send: make(chan []byte, sendBuffer)}

	var sessions []radio.SessionSnapshot
	if b.snapshot != nil {
		sessions = b.snapshot()
	}
	if data, err := encode(MsgSnapshot, sessions); err == nil {
		c.send <- data
	}

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()
	return c
}

// RemoveClient unregisters c and closes its send queue. Safe to call twice.
func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Publish implements radio.SnapshotSink.
func (b *Broadcaster) Publish(sessions []radio.SessionSnapshot) {
	data, err := encode(MsgSessions, sessions)
	if err != nil {
		b.log.Warn("ws marshal failed", slog.String("error", err.Error()))
		return
	}

	// Sends happen under the read lock so RemoveClient cannot close a queue
	// mid-send.
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.log.Info("ws client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
	}
}

func encode(t MessageType, sessions []radio.SessionSnapshot) ([]byte, error) {
	if sessions == nil {
		sessions = []radio.SessionSnapshot{}
	}
	return json.Marshal(Message{Type: t, Payload: SessionsPayload{Sessions: sessions}})
}

var _ radio.SnapshotSink = (*Broadcaster)(nil)
