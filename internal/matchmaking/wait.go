package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// ErrWaitTimeout means no opponent arrived within the leader's bounded wait.
var ErrWaitTimeout = errors.New("matchmaking wait timed out")

// WaitForMatch blocks until the entry is claimed by an opponent, the timeout
// expires, or the context is cancelled. It listens on the entry's own
// notification channel, then re-reads the entry once to close the race where
// the claim committed before the subscription was live.
func (m *Matcher) WaitForMatch(ctx context.Context, entryID string, timeout time.Duration) (string, error) {
	if m.rdb == nil {
		return "", errors.New("matcher has no redis client")
	}

	pubsub := m.rdb.Subscribe(ctx, NotifyChannel(entryID))
	defer pubsub.Close()
	msgs := pubsub.Channel()

	// The claim may have landed between Join returning and the subscribe
	if entry, err := m.Entry(ctx, entryID); err == nil && entry.DuelID.Valid {
		return entry.DuelID.String, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", ErrWaitTimeout
		case msg, ok := <-msgs:
			if !ok {
				return "", errors.New("notification stream closed")
			}
			var payload struct {
				DuelID string `json:"duel_id"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil || payload.DuelID == "" {
				log.Printf("[MATCH] ignoring malformed pairing notification for entry %s", entryID)
				continue
			}
			return payload.DuelID, nil
		}
	}
}
