package duel

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/coinclash/backend/internal/models"
)

// Mirrors migrations/000001_init.up.sql so the suite can run against a bare
// test database.
const duelSchema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    balance INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS duel_sessions (
    id TEXT PRIMARY KEY,
    player1_id TEXT NOT NULL REFERENCES users(id),
    player2_id TEXT NOT NULL REFERENCES users(id),
    leader_id TEXT NOT NULL REFERENCES users(id),
    stake INTEGER NOT NULL CHECK (stake > 0),
    winner_id TEXT REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS wallet_transactions (
    id SERIAL PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    amount INTEGER NOT NULL,
    reference_type TEXT NOT NULL,
    reference_id TEXT,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(duelSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE wallet_transactions, duel_sessions, users CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func seedDuel(t *testing.T, db *sqlx.DB, duelID string, stake int) {
	t.Helper()
	for _, u := range []string{"u1", "u2"} {
		if _, err := db.Exec(`INSERT INTO users (id, display_name, balance) VALUES ($1, $1, 100)`, u); err != nil {
			t.Fatalf("seed user %s: %v", u, err)
		}
	}
	if _, err := db.Exec(`
		INSERT INTO duel_sessions (id, player1_id, player2_id, leader_id, stake)
		VALUES ($1, 'u1', 'u2', 'u1', $2)
	`, duelID, stake); err != nil {
		t.Fatalf("seed duel: %v", err)
	}
}

func TestCompleteCreditsWinnerOnce(t *testing.T) {
	db := testDB(t)
	seedDuel(t, db, "d1", 40)
	store := NewStore(db)
	ctx := context.Background()

	applied, err := store.Complete(ctx, "d1", "u1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !applied {
		t.Fatal("first completion should apply")
	}

	session, err := store.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !session.WinnerID.Valid || session.WinnerID.String != "u1" || !session.CompletedAt.Valid {
		t.Errorf("session = %+v, want winner u1 with completed_at set", session)
	}

	var balance int
	db.Get(&balance, `SELECT balance FROM users WHERE id = 'u1'`)
	if balance != 140 {
		t.Errorf("winner balance = %d, want 140 (100 + stake)", balance)
	}

	var credits []models.WalletTransaction
	if err := db.Select(&credits, `SELECT id, user_id, amount, reference_type, reference_id, description, created_at FROM wallet_transactions`); err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	if len(credits) != 1 {
		t.Fatalf("got %d wallet rows, want 1", len(credits))
	}
	c := credits[0]
	if c.UserID != "u1" || c.Amount != 40 || c.ReferenceType != "DUEL_WIN" || c.ReferenceID.String != "d1" {
		t.Errorf("wallet row = %+v, want u1/40/DUEL_WIN/d1", c)
	}

	// The loser-side race reports the same terminal result; it must not
	// credit again or flip the winner.
	applied, err = store.Complete(ctx, "d1", "u2")
	if err != nil {
		t.Fatalf("repeat Complete: %v", err)
	}
	if applied {
		t.Error("second completion should be a no-op")
	}
	session, _ = store.Get(ctx, "d1")
	if session.WinnerID.String != "u1" {
		t.Errorf("repeat completion flipped winner to %s", session.WinnerID.String)
	}
	var count int
	db.Get(&count, `SELECT COUNT(*) FROM wallet_transactions`)
	if count != 1 {
		t.Errorf("repeat completion wrote %d wallet rows total", count)
	}
}

func TestCompleteRejectsNonParticipant(t *testing.T) {
	db := testDB(t)
	seedDuel(t, db, "d1", 40)
	store := NewStore(db)

	applied, err := store.Complete(context.Background(), "d1", "intruder")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if applied {
		t.Error("non-participant winner should be a no-op")
	}
	session, _ := store.Get(context.Background(), "d1")
	if session.WinnerID.Valid {
		t.Errorf("session completed by non-participant: %+v", session)
	}
}

func TestGetUnknownDuel(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrDuelNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrDuelNotFound", err)
	}
}
