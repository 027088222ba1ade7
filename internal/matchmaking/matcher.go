package matchmaking

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/coinclash/backend/internal/models"
)

var (
	// ErrEntryNotFound is returned when a queue entry id is unknown.
	ErrEntryNotFound = errors.New("queue entry not found")
	// ErrInvalidStake rejects non-positive stakes before touching the store.
	ErrInvalidStake = errors.New("stake must be positive")
)

// JoinResult tells the caller which side of the pairing it landed on. DuelID
// set means the caller matched an existing entry (follower); empty means the
// caller is now waiting in the queue (leader).
type JoinResult struct {
	DuelID  string
	EntryID string
}

// Matcher pairs join requests at the same stake against the durable queue.
// The whole find-and-claim runs inside one transaction so two concurrent
// joins can never both claim the same WAITING entry.
type Matcher struct {
	db     *sqlx.DB
	rdb    *redis.Client
	window time.Duration
}

func NewMatcher(db *sqlx.DB, rdb *redis.Client, freshnessWindow time.Duration) *Matcher {
	return &Matcher{db: db, rdb: rdb, window: freshnessWindow}
}

// generateID returns a short random hex token with the given prefix
func generateID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(b)
}

// NotifyChannel is the Redis channel carrying pairing notifications for one
// queue entry. The waiting leader subscribes here; the claiming follower's
// Join publishes the duel id after commit.
func NotifyChannel(entryID string) string {
	return "queue:entry:" + entryID
}

// Join looks for the oldest fresh WAITING entry at the same stake from a
// different user and claims it atomically: the candidate row is locked with
// FOR UPDATE SKIP LOCKED, the duel session is created, the candidate flips to
// MATCHED and a MATCHED entry is inserted for the caller, all in one commit.
// A racing join either claims a different candidate or falls through to
// creating its own WAITING entry.
func (m *Matcher) Join(ctx context.Context, userID string, stake int) (*JoinResult, error) {
	if stake <= 0 {
		return nil, ErrInvalidStake
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin join tx: %w", err)
	}
	defer tx.Rollback()

	var candidate models.QueueEntry
	err = tx.GetContext(ctx, &candidate, `
		SELECT id, user_id, stake, status, duel_id, created_at
		FROM queue_entries
		WHERE stake = $1
		  AND status = $2
		  AND user_id <> $3
		  AND created_at > NOW() - $4::interval
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, stake, models.QueueWaiting, userID, fmt.Sprintf("%d seconds", int(m.window.Seconds())))

	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("candidate search: %w", err)
	}

	if err == nil {
		// Claim path: caller is the follower, candidate's owner leads.
		duelID := generateID("duel")
		entryID := generateID("q")

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO duel_sessions (id, player1_id, player2_id, leader_id, stake, created_at)
			VALUES ($1, $2, $3, $2, $4, NOW())
		`, duelID, candidate.UserID, userID, stake); err != nil {
			return nil, fmt.Errorf("create duel session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE queue_entries SET status = $1, duel_id = $2
			WHERE id = $3
		`, models.QueueMatched, duelID, candidate.ID); err != nil {
			return nil, fmt.Errorf("claim queue entry: %w", err)
		}

		// Symmetric MATCHED entry for the caller, kept for audit
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO queue_entries (id, user_id, stake, status, duel_id, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, entryID, userID, stake, models.QueueMatched, duelID); err != nil {
			return nil, fmt.Errorf("insert matched entry: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit join: %w", err)
		}

		log.Printf("[MATCH] Paired: duel=%s leader=%s follower=%s stake=%d", duelID, candidate.UserID, userID, stake)
		m.notifyMatched(ctx, candidate.ID, duelID)

		return &JoinResult{DuelID: duelID, EntryID: entryID}, nil
	}

	// No candidate: caller becomes the leader and waits.
	entryID := generateID("q")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_entries (id, user_id, stake, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, entryID, userID, stake, models.QueueWaiting); err != nil {
		return nil, fmt.Errorf("insert waiting entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}

	log.Printf("[QUEUE] User queued: user=%s stake=%d entry=%s", userID, stake, entryID)
	return &JoinResult{EntryID: entryID}, nil
}

// Cancel marks a WAITING entry CANCELLED. Calling it again, or after the
// entry was claimed, changes nothing.
func (m *Matcher) Cancel(ctx context.Context, entryID string) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE queue_entries SET status = $2
		WHERE id = $1 AND status = $3
	`, entryID, models.QueueCancelled, models.QueueWaiting)
	if err != nil {
		return fmt.Errorf("cancel entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[QUEUE] Entry cancelled: entry=%s", entryID)
	}
	return nil
}

// Entry reads one queue entry, used by the status polling endpoint.
func (m *Matcher) Entry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := m.db.GetContext(ctx, &e, `
		SELECT id, user_id, stake, status, duel_id, created_at
		FROM queue_entries WHERE id = $1
	`, entryID)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// notifyMatched publishes the pairing to the claimed entry's channel so the
// waiting leader learns its duel id without polling. Best-effort: the leader
// also has the polling endpoint and its own wait timeout.
func (m *Matcher) notifyMatched(ctx context.Context, entryID, duelID string) {
	if m.rdb == nil {
		return
	}
	payload := fmt.Sprintf(`{"duel_id":%q}`, duelID)
	if err := m.rdb.Publish(ctx, NotifyChannel(entryID), payload).Err(); err != nil {
		log.Printf("[MATCH] notify publish failed for entry %s: %v", entryID, err)
	}
}
