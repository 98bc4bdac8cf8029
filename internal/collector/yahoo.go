package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"Watchtower/internal/calculator"
	"Watchtower/internal/model"
)

// DefaultYahooURL is the Yahoo Finance chart API root.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// volumeAvgBars approximates a three month average daily volume.
const volumeAvgBars = 63

// YahooFetcher implements QuoteFetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, proxyURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	return &YahooFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: strings.TrimRight(baseURL, "/"),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency              string   `json:"currency"`
				RegularMarketPrice    *float64 `json:"regularMarketPrice"`
				RegularMarketDayHigh  *float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow   *float64 `json:"regularMarketDayLow"`
				ChartPreviousClose    *float64 `json:"chartPreviousClose"`
				PreviousClose         *float64 `json:"previousClose"`
				FiftyTwoWeekHigh      *float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow       *float64 `json:"fiftyTwoWeekLow"`
				ExchangeDataDelayedBy *float64 `json:"exchangeDataDelayedBy"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

// FetchQuote pulls one year of daily bars with the quote metadata and maps
// them onto a model.Quote. Fields the chart API does not carry stay nil.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1y",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)))

	var chart yahooChart
	if err := getJSON(ctx, f.Client, "yahoo", u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	var bars []model.OHLCV
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		bars = make([]model.OHLCV, 0, len(result.Timestamp))
		for i, ts := range result.Timestamp {
			o, h, l, c := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
			if o == 0 && h == 0 && l == 0 && c == 0 {
				continue // skip null bars (holidays etc.)
			}
			bars = append(bars, model.OHLCV{
				Time:   time.Unix(ts, 0),
				Open:   o,
				High:   h,
				Low:    l,
				Close:  c,
				Volume: at(q.Volume, i),
			})
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	}

	meta := result.Meta
	quote := &model.Quote{
		CurrentPrice: finite(meta.RegularMarketPrice),
		DailyHigh:    finite(meta.RegularMarketDayHigh),
		DailyLow:     finite(meta.RegularMarketDayLow),
		CloseYest:    finite(model.Coalesce(meta.PreviousClose, meta.ChartPreviousClose)),
		High52:       finite(meta.FiftyTwoWeekHigh),
		Low52:        finite(meta.FiftyTwoWeekLow),
		DataDelay:    model.Float(0),
		Source:       "yahoo-chart",
	}
	if meta.ExchangeDataDelayedBy != nil {
		quote.DataDelay = finite(meta.ExchangeDataDelayedBy)
	}

	if len(bars) > 0 {
		last := bars[len(bars)-1]
		if quote.CurrentPrice == nil {
			quote.CurrentPrice = model.Float(last.Close)
		}
		if quote.DailyHigh == nil && last.High > 0 {
			quote.DailyHigh = model.Float(last.High)
		}
		if quote.DailyLow == nil && last.Low > 0 {
			quote.DailyLow = model.Float(last.Low)
		}
		if quote.High52 == nil || quote.Low52 == nil {
			h, l := calculator.Range52Week(bars)
			quote.High52 = model.Coalesce(quote.High52, h)
			quote.Low52 = model.Coalesce(quote.Low52, l)
		}
		quote.VolumeAvg = averageVolume(bars, volumeAvgBars)
	}

	if quote.CurrentPrice != nil && quote.CloseYest != nil {
		change := *quote.CurrentPrice - *quote.CloseYest
		quote.DailyChange = &change
		if *quote.CloseYest != 0 {
			pct := (*quote.CurrentPrice / *quote.CloseYest - 1) * 100
			quote.DailyChangePct = &pct
		}
	}
	return quote, nil
}

// averageVolume averages the volume of the last n bars that report one.
func averageVolume(bars []model.OHLCV, n int) *float64 {
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	var sum float64
	var count int
	for _, b := range bars[start:] {
		if b.Volume > 0 {
			sum += b.Volume
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}
