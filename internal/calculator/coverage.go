package calculator

import (
	"fmt"

	"Watchtower/internal/model"
)

// Formula describes one spreadsheet column the calculator reproduces.
type Formula struct {
	ID      string
	Label   string
	Pattern string
	Output  string
}

// FormulaCoverage lists the spreadsheet formulas and the derived field each
// one maps to.
var FormulaCoverage = []Formula{
	{"current_cost_gbp", "Current Cost (GBP)", "if(CCY=GBX,F*G/100,if(EUR,F*G/GBPEUR,F*G/GBPUSD))", "currentCostGBP"},
	{"current_value_gbp", "Current Value (GBP)", "if(CCY=GBX,D*G/100,if(EUR,D*G/GBPEUR,D*G/GBPUSD))", "currentValueGBP"},
	{"weight_pct", "Weight %", "H / PortfolioSize", "weightPct"},
	{"return_pct", "Return %", "I / H - 1", "returnPct"},
	{"daily_change_pct", "Daily Change %", "round(CurrentPrice / CloseYest - 1,4)", "dailyChangePct"},
	{"range_vs_close_pct", "Range vs Yesterday Close %", "abs(DailyHigh-DailyLow)/CloseYest", "rangeVsYClosePct"},
	{"price_vs_year_low_pct", "Price vs Year Low %", "CurrentPrice / low52 - 1", "priceVsYearLowPct"},
	{"trade_alert_logic", "Trade Alert Logic", "AND(low<=target<=high) / targetEntry>high => TRADE ALERT", "tradeAlertText"},
}

// ProofRow pairs a formula with the value computed for a sample asset.
type ProofRow struct {
	Formula
	Value string
}

// ParityProof renders every covered formula's value from d. Numbers use four
// decimals and missing values are empty.
func ParityProof(d model.SpreadsheetDerived) []ProofRow {
	rows := make([]ProofRow, 0, len(FormulaCoverage))
	for _, f := range FormulaCoverage {
		rows = append(rows, ProofRow{Formula: f, Value: outputValue(d, f.Output)})
	}
	return rows
}

func outputValue(d model.SpreadsheetDerived, output string) string {
	var v *float64
	switch output {
	case "currentCostGBP":
		v = d.CurrentCostGBP
	case "currentValueGBP":
		v = d.CurrentValueGBP
	case "weightPct":
		v = d.WeightPct
	case "returnPct":
		v = d.ReturnPct
	case "dailyChangePct":
		v = d.DailyChangePct
	case "rangeVsYClosePct":
		v = d.RangeVsYClosePct
	case "priceVsYearLowPct":
		v = d.PriceVsYearLowPct
	case "tradeAlertText":
		return d.TradeAlertText
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *v)
}
