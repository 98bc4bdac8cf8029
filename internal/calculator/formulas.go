package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"Watchtower/internal/model"
	"Watchtower/internal/signals"
)

// ErrNegativePortfolioSize rejects a portfolio size below zero.
var ErrNegativePortfolioSize = errors.New("portfolio size must not be negative")

// ValidateInputs checks contract violations that ComputeDerived does not
// guard against on its own.
func ValidateInputs(in model.SpreadsheetInputs) error {
	if in.PortfolioSize < 0 || math.IsNaN(in.PortfolioSize) {
		return fmt.Errorf("%s: %w", in.Symbol, ErrNegativePortfolioSize)
	}
	return nil
}

func mul(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a * *b
	return &v
}

// pctRatio returns (num/den - 1) * 100, or nil when den is missing or zero.
func pctRatio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := (*num / *den - 1) * 100
	return &v
}

// ComputeDerived reproduces the spreadsheet's computed columns for one asset.
// A formula whose inputs are missing yields nil, and so does any formula
// whose divisor is zero.
func ComputeDerived(in model.SpreadsheetInputs) model.SpreadsheetDerived {
	cost := ToBase(mul(in.EntryPrice, in.Shares), in.Currency, in.Fx)
	value := ToBase(mul(in.CurrentPrice, in.Shares), in.Currency, in.Fx)

	var weight *float64
	if cost != nil && in.PortfolioSize > 0 {
		weight = model.Float(*cost / in.PortfolioSize * 100)
	}

	returnPct := pctRatio(value, cost)

	var dailyChange *float64
	if in.CurrentPrice != nil && in.CloseYest != nil {
		dailyChange = model.Float(*in.CurrentPrice - *in.CloseYest)
	}
	dailyChangePct := pctRatio(in.CurrentPrice, in.CloseYest)

	var rangeVsClose *float64
	if in.DailyHigh != nil && in.DailyLow != nil && in.CloseYest != nil && *in.CloseYest != 0 {
		rangeVsClose = model.Float(math.Abs(*in.DailyHigh-*in.DailyLow) / *in.CloseYest * 100)
	}

	priceVsLow := pctRatio(in.CurrentPrice, in.Low52)

	state := signals.Classify(model.SignalInput{
		DailyLow:    in.DailyLow,
		DailyHigh:   in.DailyHigh,
		TargetEntry: in.TargetEntry,
		TargetExit:  in.TargetExit,
	})

	return model.SpreadsheetDerived{
		CurrentCostGBP:    round6(cost),
		CurrentValueGBP:   round6(value),
		WeightPct:         round6(weight),
		ReturnPct:         round6(returnPct),
		DailyChange:       round6(dailyChange),
		DailyChangePct:    round6(dailyChangePct),
		RangeVsYClosePct:  round6(rangeVsClose),
		PriceVsYearLowPct: round6(priceVsLow),
		SignalState:       state,
		TradeAlertText:    tradeAlertText(state, in),
	}
}

func tradeAlertText(state model.SignalState, in model.SpreadsheetInputs) string {
	if !signals.IsActive(state) {
		return ""
	}
	price := "N/A"
	if in.CurrentPrice != nil {
		price = strconv.FormatFloat(*in.CurrentPrice, 'f', -1, 64)
	}
	return fmt.Sprintf("TRADE ALERT - Price level hit for %s currently at %s %s", in.Symbol, price, in.Name)
}
