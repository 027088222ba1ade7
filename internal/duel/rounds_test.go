package duel

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/coinclash/backend/internal/catalog"
)

func TestBuildOptionsDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	symbols := []string{"btc", "eth", "sol", "doge", "xrp", "ada", "matic", "link"}
	for _, sym := range symbols {
		options := BuildOptions(sym, rng)

		if len(options) != 4 {
			t.Fatalf("BuildOptions(%q) returned %d options, want 4", sym, len(options))
		}

		seen := map[string]bool{}
		correctCount := 0
		for _, o := range options {
			if seen[o] {
				t.Errorf("BuildOptions(%q) returned duplicate option %q", sym, o)
			}
			seen[o] = true
			if o == strings.ToUpper(sym) {
				correctCount++
			}
		}
		if correctCount != 1 {
			t.Errorf("BuildOptions(%q) contains correct answer %d times, want exactly 1", sym, correctCount)
		}
	}
}

func TestBuildOptionsDegenerateSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	// Palindromes and short symbols make reverse and both rotations collide
	// with the answer or each other; collisions must be perturbed, not dropped.
	for _, sym := range []string{"x", "ab", "aaa", "ana", "oo"} {
		options := BuildOptions(sym, rng)
		if len(options) != 4 {
			t.Fatalf("BuildOptions(%q) returned %d options, want 4", sym, len(options))
		}
		seen := map[string]bool{}
		for _, o := range options {
			if seen[o] {
				t.Errorf("BuildOptions(%q) returned duplicate option %q", sym, o)
			}
			seen[o] = true
		}
		if !seen[strings.ToUpper(sym)] {
			t.Errorf("BuildOptions(%q) is missing the correct answer", sym)
		}
	}
}

func TestBuildOptionsDistractorShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	options := BuildOptions("BTC", rng)
	want := map[string]bool{"BTC": true, "CTB": true, "TCB": true, "CBT": true}
	for _, o := range options {
		if !want[o] {
			t.Errorf("unexpected option %q for BTC, want one of CTB/TCB/CBT plus BTC", o)
		}
	}
}

func TestPickSubjectEmptyPool(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	if _, err := PickSubject(nil, 100, 10, rng); err != ErrEmptyPool {
		t.Errorf("PickSubject(nil) error = %v, want ErrEmptyPool", err)
	}
}

func TestPickSubjectPrefersRankedSubpool(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	coins := make([]catalog.Coin, 0, 30)
	for i := 1; i <= 15; i++ {
		coins = append(coins, catalog.Coin{ID: "ranked", Symbol: "rk", MarketCapRank: i})
	}
	for i := 500; i < 515; i++ {
		coins = append(coins, catalog.Coin{ID: "longtail", Symbol: "lt", MarketCapRank: i})
	}

	for i := 0; i < 50; i++ {
		c, err := PickSubject(coins, 100, 10, rng)
		if err != nil {
			t.Fatalf("PickSubject failed: %v", err)
		}
		if c.ID != "ranked" {
			t.Fatalf("drew long-tail coin %q despite a large enough ranked subpool", c.ID)
		}
	}
}

func TestPickSubjectFallsBackOnThinPool(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	// Only 3 ranked coins: below the minimum, so draws cover the full pool.
	coins := []catalog.Coin{
		{ID: "a", Symbol: "a", MarketCapRank: 1},
		{ID: "b", Symbol: "b", MarketCapRank: 2},
		{ID: "c", Symbol: "c", MarketCapRank: 3},
		{ID: "d", Symbol: "d", MarketCapRank: 900},
	}

	sawLongTail := false
	for i := 0; i < 200; i++ {
		c, err := PickSubject(coins, 100, 10, rng)
		if err != nil {
			t.Fatalf("PickSubject failed: %v", err)
		}
		if c.ID == "d" {
			sawLongTail = true
			break
		}
	}
	if !sawLongTail {
		t.Error("thin ranked subpool should fall back to the full pool, but never drew the long-tail coin")
	}
}
