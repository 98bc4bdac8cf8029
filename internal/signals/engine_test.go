package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Watchtower/internal/model"
)

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   model.SignalInput
		want model.SignalState
	}{
		{
			name: "entry inside range",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetEntry: f(100), TargetExit: f(150)},
			want: model.StateBuy,
		},
		{
			name: "exit inside range",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetEntry: f(10), TargetExit: f(100)},
			want: model.StateSell,
		},
		{
			name: "entry and exit inside range",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetEntry: f(95), TargetExit: f(105)},
			want: model.StateBoth,
		},
		{
			name: "entry above daily high",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(100), TargetEntry: f(120)},
			want: model.StateBuy,
		},
		{
			name: "no targets",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110)},
			want: model.StateNone,
		},
		{
			name: "targets outside range",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetEntry: f(50), TargetExit: f(200)},
			want: model.StateNone,
		},
		{
			name: "entry equals daily low",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetEntry: f(90)},
			want: model.StateBuy,
		},
		{
			name: "entry equals daily high",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetEntry: f(110)},
			want: model.StateBuy,
		},
		{
			name: "exit equals bounds",
			in:   model.SignalInput{DailyLow: f(90), DailyHigh: f(110), TargetExit: f(110)},
			want: model.StateSell,
		},
		{
			name: "only high known, entry above it",
			in:   model.SignalInput{DailyHigh: f(100), TargetEntry: f(120), TargetExit: f(100)},
			want: model.StateBuy,
		},
		{
			name: "only high known, entry below it",
			in:   model.SignalInput{DailyHigh: f(100), TargetEntry: f(80)},
			want: model.StateNone,
		},
		{
			name: "only low known",
			in:   model.SignalInput{DailyLow: f(90), TargetEntry: f(120), TargetExit: f(95)},
			want: model.StateNone,
		},
		{
			name: "inverted range is not a range hit",
			in:   model.SignalInput{DailyLow: f(110), DailyHigh: f(90), TargetExit: f(100)},
			want: model.StateNone,
		},
		{
			name: "no data at all",
			in:   model.SignalInput{},
			want: model.StateNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_NilTargetsAlwaysNone(t *testing.T) {
	ranges := [][2]*float64{{nil, nil}, {f(1), nil}, {nil, f(1)}, {f(1), f(2)}, {f(5), f(1)}}
	for _, r := range ranges {
		assert.Equal(t, model.StateNone, Classify(model.SignalInput{DailyLow: r[0], DailyHigh: r[1]}))
	}
}

func TestTransitionEvent(t *testing.T) {
	tests := []struct {
		from, to model.SignalState
		want     model.SignalEventType
		ok       bool
	}{
		{model.StateBuy, model.StateBuy, "", false},
		{model.StateNone, model.StateNone, "", false},
		{model.StateNone, model.StateBuy, model.EventEnterBuy, true},
		{model.StateNone, model.StateSell, model.EventEnterSell, true},
		{model.StateNone, model.StateBoth, model.EventEnterBoth, true},
		{model.StateBuy, model.StateBoth, model.EventEnterBoth, true},
		{model.StateSell, model.StateBoth, model.EventEnterBoth, true},
		{model.StateBoth, model.StateBuy, model.EventEnterBuy, true},
		{model.StateBuy, model.StateNone, model.EventExitBuy, true},
		{model.StateSell, model.StateNone, model.EventExitSell, true},
		{model.StateBoth, model.StateNone, model.EventExitBoth, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, ok := TransitionEvent(tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// A direct BUY to SELL move records only the entry into SELL. No EXIT_BUY is
// emitted, so consumers counting exits miss it.
func TestTransitionEvent_DirectBuyToSellIsSingleEvent(t *testing.T) {
	got, ok := TransitionEvent(model.StateBuy, model.StateSell)
	assert.True(t, ok)
	assert.Equal(t, model.EventEnterSell, got)

	got, ok = TransitionEvent(model.StateSell, model.StateBuy)
	assert.True(t, ok)
	assert.Equal(t, model.EventEnterBuy, got)
}

func TestTransitionEvent_UnknownStates(t *testing.T) {
	_, ok := TransitionEvent(model.SignalState("HOLD"), model.StateNone)
	assert.False(t, ok)
	_, ok = TransitionEvent(model.StateNone, model.SignalState("HOLD"))
	assert.False(t, ok)
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsBuyLike(model.StateBuy))
	assert.True(t, IsBuyLike(model.StateBoth))
	assert.False(t, IsBuyLike(model.StateSell))
	assert.True(t, IsSellLike(model.StateSell))
	assert.True(t, IsSellLike(model.StateBoth))
	assert.False(t, IsSellLike(model.StateNone))
	assert.False(t, IsActive(model.StateNone))
	assert.True(t, IsActive(model.StateBoth))
}
