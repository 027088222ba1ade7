package catalog

import "context"

// Coin is one guessable subject. Rank bounds the random draw so early duels
// stay on well-known symbols.
type Coin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// Provider supplies the candidate subject pool. Consumed as a black box by
// the duel logic; only the leader ever draws from it.
type Provider interface {
	Coins(ctx context.Context) ([]Coin, error)
}

// FallbackCoins are the top-20 subjects used when no catalog service is
// configured or reachable.
var FallbackCoins = []Coin{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Image: "https://assets.coingecko.com/coins/images/1/large/bitcoin.png", MarketCapRank: 1},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Image: "https://assets.coingecko.com/coins/images/279/large/ethereum.png", MarketCapRank: 2},
	{ID: "tether", Symbol: "USDT", Name: "Tether", Image: "https://assets.coingecko.com/coins/images/325/large/tether.png", MarketCapRank: 3},
	{ID: "solana", Symbol: "SOL", Name: "Solana", Image: "https://assets.coingecko.com/coins/images/4128/large/solana.png", MarketCapRank: 4},
	{ID: "binancecoin", Symbol: "BNB", Name: "BNB", Image: "https://assets.coingecko.com/coins/images/825/large/bnb-icon2_2x.png", MarketCapRank: 5},
	{ID: "ripple", Symbol: "XRP", Name: "XRP", Image: "https://assets.coingecko.com/coins/images/44/large/xrp-symbol-white-128.png", MarketCapRank: 6},
	{ID: "usd-coin", Symbol: "USDC", Name: "USDC", Image: "https://assets.coingecko.com/coins/images/6319/large/usdc.png", MarketCapRank: 7},
	{ID: "staked-ether", Symbol: "STETH", Name: "Lido Staked Ether", Image: "https://assets.coingecko.com/coins/images/13442/large/steth_logo.png", MarketCapRank: 8},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano", Image: "https://assets.coingecko.com/coins/images/975/large/cardano.png", MarketCapRank: 9},
	{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Image: "https://assets.coingecko.com/coins/images/5/large/dogecoin.png", MarketCapRank: 10},
	{ID: "tron", Symbol: "TRX", Name: "TRON", Image: "https://assets.coingecko.com/coins/images/1094/large/tron-logo.png", MarketCapRank: 11},
	{ID: "avalanche-2", Symbol: "AVAX", Name: "Avalanche", Image: "https://assets.coingecko.com/coins/images/12559/large/Avalanche_Circle_RedWhite_Trans.png", MarketCapRank: 12},
	{ID: "chainlink", Symbol: "LINK", Name: "Chainlink", Image: "https://assets.coingecko.com/coins/images/877/large/chainlink-new-logo.png", MarketCapRank: 13},
	{ID: "polkadot", Symbol: "DOT", Name: "Polkadot", Image: "https://assets.coingecko.com/coins/images/12171/large/polkadot.png", MarketCapRank: 14},
	{ID: "matic-network", Symbol: "MATIC", Name: "Polygon", Image: "https://assets.coingecko.com/coins/images/4713/large/matic-token-icon.png", MarketCapRank: 15},
	{ID: "litecoin", Symbol: "LTC", Name: "Litecoin", Image: "https://assets.coingecko.com/coins/images/2/large/litecoin.png", MarketCapRank: 16},
	{ID: "shiba-inu", Symbol: "SHIB", Name: "Shiba Inu", Image: "https://assets.coingecko.com/coins/images/11939/large/shiba.png", MarketCapRank: 17},
	{ID: "uniswap", Symbol: "UNI", Name: "Uniswap", Image: "https://assets.coingecko.com/coins/images/12504/large/uni.jpg", MarketCapRank: 18},
	{ID: "stellar", Symbol: "XLM", Name: "Stellar", Image: "https://assets.coingecko.com/coins/images/100/large/Stellar_symbol_black_RGB.png", MarketCapRank: 19},
	{ID: "monero", Symbol: "XMR", Name: "Monero", Image: "https://assets.coingecko.com/coins/images/69/large/monero_logo.png", MarketCapRank: 20},
}

// StaticProvider serves a fixed coin list.
type StaticProvider struct {
	coins []Coin
}

func NewStaticProvider(coins []Coin) *StaticProvider {
	if len(coins) == 0 {
		coins = FallbackCoins
	}
	return &StaticProvider{coins: coins}
}

func (s *StaticProvider) Coins(_ context.Context) ([]Coin, error) {
	return s.coins, nil
}
