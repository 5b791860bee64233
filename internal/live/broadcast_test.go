package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"spatial-radio/internal/radio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func dial(t *testing.T, b *Broadcaster) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.ServeWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) (MessageType, []radio.SessionSnapshot) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type    MessageType     `json:"type"`
		Payload SessionsPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg.Type, msg.Payload.Sessions
}

func waitClients(t *testing.T, b *Broadcaster, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount = %d, want %d", b.ClientCount(), want)
}

func TestBroadcaster_snapshotThenUpdates(t *testing.T) {
	initial := []radio.SessionSnapshot{{URL: "https://radio.example.com/a.mp3", State: "active", Decoding: true}}
	b := NewBroadcaster(func() []radio.SessionSnapshot { return initial }, testLogger())
	conn, done := dial(t, b)
	defer done()

	typ, sessions := readMessage(t, conn)
	if typ != MsgSnapshot || len(sessions) != 1 || sessions[0].State != "active" {
		t.Fatalf("first message = %s %+v, want the snapshot", typ, sessions)
	}
	waitClients(t, b, 1)

	b.Publish([]radio.SessionSnapshot{{URL: "https://radio.example.com/a.mp3", State: "fading_out"}})
	typ, sessions = readMessage(t, conn)
	if typ != MsgSessions || len(sessions) != 1 || sessions[0].State != "fading_out" {
		t.Errorf("update = %s %+v", typ, sessions)
	}

	b.Publish(nil)
	if _, sessions = readMessage(t, conn); sessions == nil || len(sessions) != 0 {
		t.Errorf("empty publish should send an empty list, got %+v", sessions)
	}
}

func TestBroadcaster_disconnectRemovesClient(t *testing.T) {
	b := NewBroadcaster(nil, testLogger())
	conn, done := dial(t, b)
	readMessage(t, conn)
	waitClients(t, b, 1)

	done()
	waitClients(t, b, 0)
}

func TestBroadcaster_slowClientIsDropped(t *testing.T) {
	b := NewBroadcaster(nil, testLogger())
	// No writePump: the queue fills and is never drained.
	c := &client{b: b, send: make(chan []byte, 1)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	b.Publish(nil)
	if b.ClientCount() != 1 {
		t.Fatal("client dropped while its queue had room")
	}
	b.Publish(nil)
	if b.ClientCount() != 0 {
		t.Errorf("slow client still registered")
	}
	if _, ok := <-c.send; !ok {
		t.Error("queued message should still be readable")
	}
	if _, ok := <-c.send; ok {
		t.Error("send queue should be closed")
	}
}
