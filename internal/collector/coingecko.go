package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"Watchtower/internal/model"
)

// DefaultCoinGeckoURL is the CoinGecko v3 API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoIDs maps ticker symbols to CoinGecko coin ids.
var CoinGeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"DOGE": "dogecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"AVAX": "avalanche-2",
	"LINK": "chainlink",
	"RNDR": "render-token",
	"NEAR": "near",
}

// CoinGeckoFetcher implements QuoteFetcher using the CoinGecko markets
// endpoint. Prices are quoted in USD.
type CoinGeckoFetcher struct {
	Client  *http.Client
	BaseURL string
	IDs     map[string]string
}

// NewCoinGeckoFetcher creates a CoinGecko fetcher.
func NewCoinGeckoFetcher(baseURL, proxyURL string) *CoinGeckoFetcher {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: strings.TrimRight(baseURL, "/"),
		IDs:     CoinGeckoIDs,
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

type coinMarket struct {
	ID                       string   `json:"id"`
	CurrentPrice             *float64 `json:"current_price"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	PriceChange24h           *float64 `json:"price_change_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	TotalVolume              *float64 `json:"total_volume"`
	MarketCap                *float64 `json:"market_cap"`
}

func (f *CoinGeckoFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	id, ok := f.IDs[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("coingecko %s: %w", symbol, ErrUnsupportedSymbol)
	}

	u := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s&price_change_percentage=24h",
		f.BaseURL, url.QueryEscape(id))

	var markets []coinMarket
	if err := getJSON(ctx, f.Client, "coingecko", u, &markets); err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("coingecko: no data returned for %s", symbol)
	}

	coin := markets[0]
	return &model.Quote{
		CurrentPrice:   finite(coin.CurrentPrice),
		DailyHigh:      finite(coin.High24h),
		DailyLow:       finite(coin.Low24h),
		DailyChange:    finite(coin.PriceChange24h),
		DailyChangePct: finite(coin.PriceChangePercentage24h),
		VolumeAvg:      finite(coin.TotalVolume),
		MarketCap:      finite(coin.MarketCap),
		DataDelay:      model.Float(0),
		Source:         "coingecko",
	}, nil
}
