package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Watchtower/internal/model"
)

func TestRange52Week(t *testing.T) {
	bars := make([]model.OHLCV, 300)
	for i := range bars {
		bars[i] = model.OHLCV{High: float64(100 + i), Low: float64(50 + i)}
	}
	high, low := Range52Week(bars)
	require.NotNil(t, high)
	require.NotNil(t, low)
	assert.Equal(t, 399.0, *high)
	// the window starts at bar 48
	assert.Equal(t, 98.0, *low)
}

func TestRange52Week_SkipsZeroLows(t *testing.T) {
	bars := []model.OHLCV{{High: 10, Low: 0}, {High: 12, Low: 8}}
	high, low := Range52Week(bars)
	assert.Equal(t, 12.0, *high)
	assert.Equal(t, 8.0, *low)
}

func TestRange52Week_Empty(t *testing.T) {
	high, low := Range52Week(nil)
	assert.Nil(t, high)
	assert.Nil(t, low)
}
