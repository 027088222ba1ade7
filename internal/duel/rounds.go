package duel

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/coinclash/backend/internal/catalog"
)

// ErrEmptyPool means the catalog produced no subjects to draw from.
var ErrEmptyPool = errors.New("subject pool is empty")

// PickSubject draws a random subject. When the rank-bounded subpool is large
// enough it draws from that, otherwise from the full pool, so a thin catalog
// still produces rounds.
func PickSubject(coins []catalog.Coin, rankLimit, minRankedPool int, rng *rand.Rand) (catalog.Coin, error) {
	if len(coins) == 0 {
		return catalog.Coin{}, ErrEmptyPool
	}

	ranked := make([]catalog.Coin, 0, len(coins))
	for _, c := range coins {
		if c.MarketCapRank > 0 && c.MarketCapRank <= rankLimit {
			ranked = append(ranked, c)
		}
	}

	pool := coins
	if len(ranked) >= minRankedPool {
		pool = ranked
	}
	return pool[rng.Intn(len(pool))], nil
}

// BuildOptions returns four distinct shuffled answers containing exactly one
// copy of the correct symbol. Distractors are the reversed symbol and its
// one-character rotations; any collision (palindromes, two-letter symbols
// where all three derivations coincide) is perturbed with a filler character
// until unique.
func BuildOptions(correct string, rng *rand.Rand) []string {
	correct = strings.ToUpper(correct)

	candidates := []string{
		reverse(correct),
		rotateLeft(correct),
		rotateRight(correct),
	}

	used := map[string]bool{correct: true}
	options := []string{correct}
	for _, d := range candidates {
		for used[d] {
			d += "X"
		}
		used[d] = true
		options = append(options, d)
	}

	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func rotateLeft(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return s
	}
	return string(append(r[1:], r[0]))
}

func rotateRight(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return s
	}
	return string(append([]rune{r[len(r)-1]}, r[:len(r)-1]...))
}
