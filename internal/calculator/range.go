package calculator

import (
	"math"

	"Watchtower/internal/model"
)

// tradingDaysPerYear is the 52-week lookback in daily bars.
const tradingDaysPerYear = 252

// Range52Week scans the most recent 252 daily bars and returns the high and
// low. Both are nil when there are no usable bars.
func Range52Week(dailyBars []model.OHLCV) (high, low *float64) {
	n := len(dailyBars)
	start := n - tradingDaysPerYear
	if start < 0 {
		start = 0
	}
	h := math.Inf(-1)
	l := math.Inf(1)
	for i := start; i < n; i++ {
		if dailyBars[i].High > h {
			h = dailyBars[i].High
		}
		// zero lows come from bars with a missing field
		if dailyBars[i].Low > 0 && dailyBars[i].Low < l {
			l = dailyBars[i].Low
		}
	}
	if math.IsInf(h, 0) || math.IsInf(l, 0) {
		return nil, nil
	}
	return &h, &l
}
