package channel

import (
	"context"
	"encoding/json"
)

// Event types carried on a duel channel
const (
	EventJoined     = "JOINED"
	EventNextRound  = "NEXT_ROUND"
	EventUserStatus = "USER_STATUS"
	EventLeft       = "LEFT"
)

// Event is the wire envelope for all duel channel traffic. Payload stays raw
// so transports never need to know the per-type shapes.
type Event struct {
	Type     string          `json:"type"`
	SenderID string          `json:"sender_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Channel is a best-effort pub/sub transport scoped per duel. Publishes reach
// only currently subscribed peers; there is no durability and no replay for
// late subscribers. A single publisher's events arrive in order at a given
// subscriber; nothing is guaranteed across publishers.
type Channel interface {
	Publish(ctx context.Context, channelID string, ev Event) error
	// Subscribe returns a stream of events and a stop function. The stream is
	// closed after stop is called (or the context is cancelled).
	Subscribe(ctx context.Context, channelID string) (<-chan Event, func())
}
