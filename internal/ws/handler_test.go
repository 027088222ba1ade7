package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// newTestConn returns the server side of a real upgraded websocket.
func newTestConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		upgraded <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return <-upgraded
}

func TestClientCloseConcurrentSends(t *testing.T) {
	c := &Client{
		conn:   newTestConn(t),
		userID: "u1",
		duelID: "duel_1",
		send:   make(chan []byte, 4),
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				c.trySend([]byte(`{"type":"USER_STATUS"}`))
				c.sendError("busy")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		c.close()
	}()

	close(start)
	wg.Wait()

	if c.trySend([]byte("late")) {
		t.Error("trySend after close should report failure")
	}

	// Repeat close must not panic on the already-closed send channel.
	c.close()
}

func TestHubReconnectReplacement(t *testing.T) {
	h := NewHub()

	first := &Client{conn: newTestConn(t), userID: "u1", duelID: "duel_1", send: make(chan []byte, 4)}
	second := &Client{conn: newTestConn(t), userID: "u1", duelID: "duel_1", send: make(chan []byte, 4)}

	h.register(first)
	h.register(second)

	if h.unregister(first) {
		t.Error("replaced socket should not unregister the current one")
	}
	if !h.unregister(second) {
		t.Error("current socket should unregister")
	}
	if len(h.clients) != 0 || len(h.duelRooms) != 0 {
		t.Errorf("hub not empty after unregister: %d clients, %d rooms", len(h.clients), len(h.duelRooms))
	}
}
