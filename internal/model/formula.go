package model

// SpreadsheetInputs are the raw per-asset fields the parity calculator needs.
type SpreadsheetInputs struct {
	Symbol        string
	Name          string
	Currency      string
	PortfolioSize float64
	Shares        *float64
	EntryPrice    *float64
	CurrentPrice  *float64
	CloseYest     *float64
	DailyHigh     *float64
	DailyLow      *float64
	Low52         *float64
	TargetEntry   *float64
	TargetExit    *float64
	Fx            FxRates
}

// SpreadsheetDerived mirrors the spreadsheet's computed columns. Percentages
// are already multiplied by 100 and money is in GBP.
type SpreadsheetDerived struct {
	CurrentCostGBP    *float64    `json:"currentCostGBP"`
	CurrentValueGBP   *float64    `json:"currentValueGBP"`
	WeightPct         *float64    `json:"weightPct"`
	ReturnPct         *float64    `json:"returnPct"`
	DailyChange       *float64    `json:"dailyChange"`
	DailyChangePct    *float64    `json:"dailyChangePct"`
	RangeVsYClosePct  *float64    `json:"rangeVsYClosePct"`
	PriceVsYearLowPct *float64    `json:"priceVsYearLowPct"`
	SignalState       SignalState `json:"signalState"`
	TradeAlertText    string      `json:"tradeAlertText"`
}
