package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the WebSocketCORSCheck middleware
	},
}

// Client represents one connected duel participant
type Client struct {
	conn    *websocket.Conn
	userID  string
	duelID  string
	send    chan []byte
	stopSub func()

	sendMu sync.Mutex
	closed bool
}

// Hub tracks which participant socket belongs to which duel. One socket per
// user per duel; a reconnect replaces the previous socket.
type Hub struct {
	clients   map[string]*Client            // userID -> Client
	duelRooms map[string]map[string]*Client // duelID -> userID -> Client
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		duelRooms: make(map[string]map[string]*Client),
	}
}

// register attaches a client, replacing any previous socket for the same user.
func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.clients[client.userID]; exists {
		log.Printf("[WS] User %s reconnecting - closing old connection", client.userID)
		old.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
			time.Now().Add(5*time.Second))
		old.close()
		delete(h.clients, client.userID)
		if room, ok := h.duelRooms[old.duelID]; ok {
			delete(room, client.userID)
		}
	}

	h.clients[client.userID] = client
	if _, ok := h.duelRooms[client.duelID]; !ok {
		h.duelRooms[client.duelID] = make(map[string]*Client)
	}
	h.duelRooms[client.duelID][client.userID] = client
	log.Printf("[WS] User %s connected to duel %s", client.userID, client.duelID)
}

// unregister detaches a client if it is still the current socket for its user.
// Returns true when the client was actually removed (not already replaced).
func (h *Hub) unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.clients[client.userID]
	if !ok || cur != client {
		return false
	}
	delete(h.clients, client.userID)
	if room, exists := h.duelRooms[client.duelID]; exists {
		delete(room, client.userID)
		if len(room) == 0 {
			delete(h.duelRooms, client.duelID)
		}
	}
	log.Printf("[WS] User %s disconnected from duel %s", client.userID, client.duelID)
	client.close()
	return true
}

func (c *Client) close() {
	if c.stopSub != nil {
		c.stopSub()
	}
	c.conn.Close()
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.sendMu.Unlock()
}

// trySend queues a frame for writePump without blocking. Returns false when
// the client is closed or the buffer is full; the mutex keeps a late sender
// off a freshly closed channel.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writePump writes channel events to the socket and keeps the ping cycle.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for user %s: %v", c.userID, err)
				return
			}
		}
	}
}

// sendError sends an error frame to the client
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	c.trySend(data)
}
