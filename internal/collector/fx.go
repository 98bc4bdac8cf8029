package collector

import (
	"context"
	"fmt"
	"net/http"

	"Watchtower/internal/model"
)

// DefaultFxURL returns GBP-based USD and EUR rates.
const DefaultFxURL = "https://api.exchangerate.host/latest?base=GBP&symbols=USD,EUR"

// FxFetcher implements RatesFetcher against an exchangerate.host style endpoint.
type FxFetcher struct {
	Client *http.Client
	URL    string
}

// NewFxFetcher creates an FX fetcher.
func NewFxFetcher(u, proxyURL string) *FxFetcher {
	if u == "" {
		u = DefaultFxURL
	}
	return &FxFetcher{Client: newHTTPClient(proxyURL), URL: u}
}

func (f *FxFetcher) FetchRates(ctx context.Context) (model.FxRates, error) {
	var body struct {
		Rates struct {
			USD *float64 `json:"USD"`
			EUR *float64 `json:"EUR"`
		} `json:"rates"`
	}
	if err := getJSON(ctx, f.Client, "fx", f.URL, &body); err != nil {
		return model.FxRates{}, err
	}
	usd, eur := finite(body.Rates.USD), finite(body.Rates.EUR)
	if usd == nil || eur == nil || *usd <= 0 || *eur <= 0 {
		return model.FxRates{}, fmt.Errorf("fx: missing USD or EUR rate")
	}
	return model.FxRates{USD: *usd, EUR: *eur}, nil
}
