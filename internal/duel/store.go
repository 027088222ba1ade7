package duel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/coinclash/backend/internal/models"
)

// ErrDuelNotFound is returned when a duel session id is unknown.
var ErrDuelNotFound = errors.New("duel session not found")

// Store reads duel sessions and writes their one-shot completion. Creation
// happens inside the matcher's transaction, not here.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, duelID string) (*models.DuelSession, error) {
	var d models.DuelSession
	err := s.db.GetContext(ctx, &d, `
		SELECT id, player1_id, player2_id, leader_id, stake, winner_id, created_at, completed_at
		FROM duel_sessions WHERE id = $1
	`, duelID)
	if err == sql.ErrNoRows {
		return nil, ErrDuelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Complete records the winner and credits their balance by the stake, once.
// The conditional update is the write-once guard: whichever coordinator
// detects the terminal condition first wins the write, and a repeat call
// (including the loser-side race where both report the same winner) is a
// no-op that returns false. Stakes are never debited up front; the winner's
// credit is the only balance movement.
func (s *Store) Complete(ctx context.Context, duelID, winnerID string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback()

	var stake int
	err = tx.GetContext(ctx, &stake, `
		UPDATE duel_sessions SET winner_id = $2, completed_at = NOW()
		WHERE id = $1 AND winner_id IS NULL
		  AND $2 IN (player1_id, player2_id)
		RETURNING stake
	`, duelID, winnerID)
	if err == sql.ErrNoRows {
		// Already completed, or winner is not a participant
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("complete duel: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET balance = balance + $1 WHERE id = $2
	`, stake, winnerID); err != nil {
		return false, fmt.Errorf("credit winner: %w", err)
	}

	credit := models.WalletTransaction{
		UserID:        winnerID,
		Amount:        stake,
		ReferenceType: "DUEL_WIN",
		ReferenceID:   sql.NullString{String: duelID, Valid: true},
		Description:   "Duel stake won",
	}
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO wallet_transactions (user_id, amount, reference_type, reference_id, description, created_at)
		VALUES (:user_id, :amount, :reference_type, :reference_id, :description, NOW())
	`, credit); err != nil {
		return false, fmt.Errorf("record credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit complete: %w", err)
	}

	log.Printf("[DUEL] Completed: duel=%s winner=%s stake=%d", duelID, winnerID, stake)
	return true, nil
}
