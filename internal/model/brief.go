package model

import "time"

// MoverRow is one asset's daily change used in top gainers/losers.
type MoverRow struct {
	Symbol    string  `json:"symbol"`
	AssetType string  `json:"assetType"`
	ChangePct float64 `json:"changePct"`
}

// AssetTypeRollup counts signals per asset type.
type AssetTypeRollup struct {
	AssetType     string `json:"assetType"`
	Total         int    `json:"total"`
	ActiveSignals int    `json:"activeSignals"`
	BuySignals    int    `json:"buySignals"`
	SellSignals   int    `json:"sellSignals"`
}

// MarketBreadth aggregates the day's price moves across the watchlist.
type MarketBreadth struct {
	TotalAssets   int               `json:"totalAssets"`
	ActiveSignals int               `json:"activeSignals"`
	Advancers     int               `json:"advancers"`
	Decliners     int               `json:"decliners"`
	Flat          int               `json:"flat"`
	AvgChangePct  float64           `json:"avgChangePct"`
	TopGainers    []MoverRow        `json:"topGainers"`
	TopLosers     []MoverRow        `json:"topLosers"`
	ByAssetType   []AssetTypeRollup `json:"byAssetType"`
}

// DailySignalSummary is the portfolio-level view for one day.
type DailySignalSummary struct {
	Date       string         `json:"date"`
	Buy        []string       `json:"buy"`
	Sell       []string       `json:"sell"`
	NewToday   []string       `json:"newToday"`
	DroppedOff []string       `json:"droppedOff"`
	Market     *MarketBreadth `json:"market,omitempty"`
}

// ActiveSignalRow is an asset currently in a BUY, SELL or BOTH state.
type ActiveSignalRow struct {
	AssetID        string      `json:"assetId"`
	Symbol         string      `json:"symbol"`
	Name           string      `json:"name"`
	State          SignalState `json:"state"`
	CurrentPrice   *float64    `json:"currentPrice"`
	DailyChangePct *float64    `json:"dailyChangePct"`
	TargetEntry    *float64    `json:"targetEntry"`
	TargetExit     *float64    `json:"targetExit"`
	CapturedAt     time.Time   `json:"capturedAt"`
}

// BriefPayload is the daily brief, either model-written or the deterministic fallback.
type BriefPayload struct {
	Summary    string   `json:"summary"`
	Buy        []string `json:"buy"`
	Sell       []string `json:"sell"`
	NewToday   []string `json:"newToday"`
	DroppedOff []string `json:"droppedOff"`
	Insights   []string `json:"insights"`
	Model      string   `json:"model"`
	IsFallback bool     `json:"isFallback"`
}

// DailyBrief is a persisted brief for one calendar day in a time zone.
type DailyBrief struct {
	ID          string
	BriefDate   time.Time
	Timezone    string
	Payload     BriefPayload
	GeneratedAt time.Time
}
