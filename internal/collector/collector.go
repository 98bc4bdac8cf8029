package collector

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"Watchtower/internal/calculator"
	"Watchtower/internal/common"
	"Watchtower/internal/model"
)

// DefaultRequestsPerMinute throttles outbound quote requests.
const DefaultRequestsPerMinute = 60

// Collector routes quote requests to the adapter for each asset type and
// throttles them with a shared limiter.
type Collector struct {
	Equities QuoteFetcher
	Crypto   QuoteFetcher
	FX       RatesFetcher

	limiter *rate.Limiter
	logger  *common.Logger
}

// NewCollector creates a new Collector. A nil crypto fetcher routes crypto to
// the equity fetcher. A nil fx fetcher always yields the default rates.
func NewCollector(equities, crypto QuoteFetcher, fx RatesFetcher, requestsPerMinute int, logger *common.Logger) *Collector {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}
	if crypto == nil {
		crypto = equities
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Collector{
		Equities: equities,
		Crypto:   crypto,
		FX:       fx,
		limiter:  rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		logger:   logger.Component("collector"),
	}
}

// Quote fetches the latest quote for symbol. Failures return (nil, err); the
// caller decides whether to fall back to stored data.
func (c *Collector) Quote(ctx context.Context, assetType, symbol string) (*model.Quote, error) {
	fetcher := c.Equities
	if assetType == model.AssetTypeCrypto {
		fetcher = c.Crypto
	}
	if fetcher == nil {
		return nil, fmt.Errorf("no fetcher for %s %s", assetType, symbol)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	q, err := fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s quote %s: %w", fetcher.Name(), symbol, err)
	}
	return q, nil
}

// Rates returns live FX rates, or the default rates when they cannot be fetched.
func (c *Collector) Rates(ctx context.Context) model.FxRates {
	if c.FX == nil {
		return calculator.DefaultFxRates
	}
	rates, err := c.FX.FetchRates(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("FX fetch failed, using fallback rates")
		return calculator.DefaultFxRates
	}
	return rates
}
