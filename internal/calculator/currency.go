package calculator

import (
	"strings"

	"Watchtower/internal/model"
)

// Currency codes understood by ToBase. GBX is pence, quoted at 1/100 GBP.
const (
	BaseCurrency  = "GBP"
	MinorCurrency = "GBX"
)

// DefaultFxRates are used when live rates cannot be fetched.
var DefaultFxRates = model.FxRates{USD: 1.27, EUR: 1.17}

// ToBase converts amount into GBP. Rates are foreign units per 1 GBP, so
// foreign amounts are divided by the rate. An unrecognised currency code is
// assumed to already be in GBP and the amount is returned unchanged.
func ToBase(amount *float64, currency string, rates model.FxRates) *float64 {
	if amount == nil {
		return nil
	}
	v := *amount
	switch strings.ToUpper(currency) {
	case BaseCurrency:
	case MinorCurrency:
		v /= 100
	case "USD":
		v /= rates.USD
	case "EUR":
		v /= rates.EUR
	}
	return &v
}

// IsKnownCurrency reports whether ToBase converts code rather than passing
// the amount through.
func IsKnownCurrency(code string) bool {
	switch strings.ToUpper(code) {
	case BaseCurrency, MinorCurrency, "USD", "EUR":
		return true
	}
	return false
}
