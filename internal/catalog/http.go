package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "catalog:coins"

// HTTPProvider fetches the markets listing from a CoinGecko-compatible
// endpoint and caches the decoded list in Redis. Any failure falls back to
// the last cached list, then to FallbackCoins, so a catalog outage never
// blocks a duel.
type HTTPProvider struct {
	baseURL  string
	cacheTTL time.Duration
	rdb      *redis.Client
	client   *http.Client
}

func NewHTTPProvider(baseURL string, cacheTTL time.Duration, rdb *redis.Client) *HTTPProvider {
	return &HTTPProvider{
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		rdb:      rdb,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) Coins(ctx context.Context) ([]Coin, error) {
	if coins := p.fromCache(ctx); len(coins) > 0 {
		return coins, nil
	}

	coins, err := p.fetch(ctx)
	if err != nil {
		log.Printf("[CATALOG] fetch failed, using fallback list: %v", err)
		return FallbackCoins, nil
	}

	p.toCache(ctx, coins)
	return coins, nil
}

func (p *HTTPProvider) fetch(ctx context.Context) ([]Coin, error) {
	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=250&page=1", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var raw []struct {
		ID            string `json:"id"`
		Symbol        string `json:"symbol"`
		Name          string `json:"name"`
		Image         string `json:"image"`
		MarketCapRank int    `json:"market_cap_rank"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	coins := make([]Coin, 0, len(raw))
	for _, c := range raw {
		if c.Symbol == "" {
			continue
		}
		coins = append(coins, Coin{
			ID:            c.ID,
			Symbol:        c.Symbol,
			Name:          c.Name,
			Image:         c.Image,
			MarketCapRank: c.MarketCapRank,
		})
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("catalog returned no coins")
	}
	return coins, nil
}

func (p *HTTPProvider) fromCache(ctx context.Context) []Coin {
	if p.rdb == nil {
		return nil
	}
	data, err := p.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil
	}
	var coins []Coin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil
	}
	return coins
}

func (p *HTTPProvider) toCache(ctx context.Context, coins []Coin) {
	if p.rdb == nil {
		return
	}
	data, err := json.Marshal(coins)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, cacheKey, data, p.cacheTTL).Err(); err != nil {
		log.Printf("[CATALOG] cache write failed: %v", err)
	}
}
