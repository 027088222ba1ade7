package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/coinclash/backend/internal/channel"
	"github.com/coinclash/backend/internal/duel"
)

// DuelHub is the single hub for all duel sockets.
var DuelHub = NewHub()

// HandleDuelWebSocket upgrades a participant's socket and bridges it to the
// duel's channel: events published by either side flow to every subscriber,
// and frames sent by this client are published on its behalf. The server
// never interprets round content; both coordinators run client-side.
func HandleDuelWebSocket(ch channel.Channel, store *duel.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		duelID := c.Param("id")
		userID := c.GetString("user_id")

		session, err := store.Get(c.Request.Context(), duelID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "duel not found"})
			return
		}
		if session.Player1ID != userID && session.Player2ID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		events, stopSub := ch.Subscribe(ctx, duel.DuelChannelID(duelID))

		client := &Client{
			conn:   conn,
			userID: userID,
			duelID: duelID,
			send:   make(chan []byte, 256),
			stopSub: func() {
				stopSub()
				cancel()
			},
		}
		DuelHub.register(client)

		go client.writePump()
		go client.forwardEvents(events)
		go client.readPump(ctx, ch)
	}
}

// forwardEvents pumps channel events into the socket send buffer.
func (c *Client) forwardEvents(events <-chan channel.Event) {
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if !c.trySend(data) {
			log.Printf("[WS] dropping %s for user %s in duel %s (closed or buffer full)", ev.Type, c.userID, c.duelID)
		}
	}
}

// readPump publishes client frames onto the duel channel. The sender id is
// always overwritten with the authenticated user so a client cannot speak for
// its opponent.
func (c *Client) readPump(ctx context.Context, ch channel.Channel) {
	defer func() {
		replaced := !DuelHub.unregister(c)
		c.conn.Close()
		if !replaced {
			// Let the remaining peer claim a forfeit without waiting out the
			// full liveness window
			left := channel.Event{Type: channel.EventLeft, SenderID: c.userID}
			if err := ch.Publish(context.Background(), duel.DuelChannelID(c.duelID), left); err != nil {
				log.Printf("[WS] LEFT publish failed for user %s: %v", c.userID, err)
			}
		}
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error (unexpected) for user %s: %v", c.userID, err)
			}
			break
		}

		var ev channel.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			c.sendError("invalid event")
			continue
		}
		switch ev.Type {
		case channel.EventJoined, channel.EventNextRound, channel.EventUserStatus, channel.EventLeft:
		default:
			c.sendError("unknown event type")
			continue
		}
		ev.SenderID = c.userID

		if err := ch.Publish(ctx, duel.DuelChannelID(c.duelID), ev); err != nil {
			log.Printf("[WS] publish %s failed for user %s: %v", ev.Type, c.userID, err)
		}
	}
}
