package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FxRates holds GBP-based conversion rates: units of foreign currency per 1 GBP.
type FxRates struct {
	USD float64 `json:"USD"`
	EUR float64 `json:"EUR"`
}

// Quote is a raw market observation from a data adapter. Every numeric field
// is optional.
type Quote struct {
	CurrentPrice   *float64
	DailyHigh      *float64
	DailyLow       *float64
	CloseYest      *float64
	DailyChange    *float64
	DailyChangePct *float64
	Beta           *float64
	Low52          *float64
	High52         *float64
	VolumeAvg      *float64
	PE             *float64
	MarketCap      *float64
	DataDelay      *float64
	Source         string
}

// AssetType groups assets for routing and rollups.
const (
	AssetTypeEquity = "EQUITY"
	AssetTypeCrypto = "CRYPTO"
)

// Asset is a tracked watchlist entry together with its trading rule and the
// last known reference data.
type Asset struct {
	ID          string
	Symbol      string
	Name        string
	Reason      string
	AssetType   string
	Currency    string
	IsActive    bool
	Shares      *float64
	EntryPrice  *float64
	TargetEntry *float64
	TargetExit  *float64

	CloseYest *float64
	Beta      *float64
	Low52     *float64
	High52    *float64
	VolumeAvg *float64
	PE        *float64
	MarketCap *float64
	DataDelay *float64

	CurrentCostGBP  *float64
	CurrentValueGBP *float64
	WeightPct       *float64
	ReturnPct       *float64
	UpdatedAt       time.Time
}

// SignalInput builds the classifier input from this asset's rule and a snapshot.
// A nil snapshot yields an input with no range.
func (a *Asset) SignalInput(s *Snapshot) SignalInput {
	in := SignalInput{TargetEntry: a.TargetEntry, TargetExit: a.TargetExit}
	if s != nil {
		in.DailyLow = s.DailyLow
		in.DailyHigh = s.DailyHigh
	}
	return in
}

// Snapshot is one timestamped observation of an asset's market data.
type Snapshot struct {
	ID             string
	AssetID        string
	CapturedAt     time.Time
	CurrentPrice   *float64
	DailyHigh      *float64
	DailyLow       *float64
	CloseYest      *float64
	DailyChange    *float64
	DailyChangePct *float64
	Beta           *float64
	Low52          *float64
	High52         *float64
	VolumeAvg      *float64
	PE             *float64
	MarketCap      *float64
	DataDelay      *float64
	SignalState    SignalState
	Source         string
	Parity         *SpreadsheetDerived
}

// AssetDerived holds the portfolio fields written back to an asset after a refresh.
type AssetDerived struct {
	CloseYest       *float64
	Beta            *float64
	Low52           *float64
	High52          *float64
	VolumeAvg       *float64
	PE              *float64
	MarketCap       *float64
	DataDelay       *float64
	CurrentCostGBP  *float64
	CurrentValueGBP *float64
	WeightPct       *float64
	ReturnPct       *float64
}
