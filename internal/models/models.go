package models

import (
	"database/sql"
	"time"
)

// Queue entry statuses
const (
	QueueWaiting   = "WAITING"
	QueueMatched   = "MATCHED"
	QueueCancelled = "CANCELLED"
)

// User represents a player identity plus their points wallet
type User struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Balance     int       `db:"balance" json:"balance"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// QueueEntry represents a join request waiting for (or claimed by) a match.
// Entries are never deleted; stale WAITING rows simply stop being candidates.
type QueueEntry struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Stake     int            `db:"stake" json:"stake"`
	Status    string         `db:"status" json:"status"`
	DuelID    sql.NullString `db:"duel_id" json:"duel_id,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// DuelSession is the durable pairing record for one duel.
// LeaderID is stored at creation so a client can recover its role without
// re-deriving it from the shape of the join response.
type DuelSession struct {
	ID          string         `db:"id" json:"id"`
	Player1ID   string         `db:"player1_id" json:"player1_id"`
	Player2ID   string         `db:"player2_id" json:"player2_id"`
	LeaderID    string         `db:"leader_id" json:"leader_id"`
	Stake       int            `db:"stake" json:"stake"`
	WinnerID    sql.NullString `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// WalletTransaction is the audit row written alongside a balance change
type WalletTransaction struct {
	ID            int            `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"user_id"`
	Amount        int            `db:"amount" json:"amount"`
	ReferenceType string         `db:"reference_type" json:"reference_type"`
	ReferenceID   sql.NullString `db:"reference_id" json:"reference_id,omitempty"`
	Description   string         `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
