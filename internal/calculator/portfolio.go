package calculator

import "Watchtower/internal/model"

// PortfolioSummary totals the GBP cost and value of the watchlist against
// the configured portfolio size.
type PortfolioSummary struct {
	PortfolioSize float64 `json:"portfolioSize"`
	Invested      float64 `json:"invested"`
	Value         float64 `json:"value"`
	Cash          float64 `json:"cash"`
	ReturnPct     float64 `json:"retPct"`
}

// SummarizePortfolio adds up asset cost and value. Assets without a cost or
// value contribute zero. ReturnPct is measured against the whole portfolio,
// not the invested amount.
func SummarizePortfolio(assets []model.Asset, portfolioSize float64) PortfolioSummary {
	s := PortfolioSummary{PortfolioSize: portfolioSize}
	for _, a := range assets {
		if a.CurrentCostGBP != nil {
			s.Invested += *a.CurrentCostGBP
		}
		if a.CurrentValueGBP != nil {
			s.Value += *a.CurrentValueGBP
		}
	}
	s.Cash = portfolioSize - s.Invested
	if portfolioSize != 0 {
		s.ReturnPct = (s.Value - s.Invested) / portfolioSize * 100
	}
	return s
}
