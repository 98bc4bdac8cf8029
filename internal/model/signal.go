package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownState is returned when a persisted or user-supplied state string
// does not name a SignalState.
var ErrUnknownState = errors.New("unknown signal state")

// SignalState is the alert classification of an asset against its targets.
type SignalState string

const (
	StateNone SignalState = "NONE"
	StateBuy  SignalState = "BUY"
	StateSell SignalState = "SELL"
	StateBoth SignalState = "BOTH"
)

// ParseSignalState converts a stored value into a SignalState.
func ParseSignalState(s string) (SignalState, error) {
	switch st := SignalState(strings.ToUpper(strings.TrimSpace(s))); st {
	case StateNone, StateBuy, StateSell, StateBoth:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
}

// SignalEventType names a change between two consecutive states.
type SignalEventType string

const (
	EventEnterBuy  SignalEventType = "ENTER_BUY"
	EventEnterSell SignalEventType = "ENTER_SELL"
	EventEnterBoth SignalEventType = "ENTER_BOTH"
	EventExitBuy   SignalEventType = "EXIT_BUY"
	EventExitSell  SignalEventType = "EXIT_SELL"
	EventExitBoth  SignalEventType = "EXIT_BOTH"
)

// SignalInput is one asset's intraday range and configured trigger levels.
// A nil field means the value is not available.
type SignalInput struct {
	DailyLow    *float64
	DailyHigh   *float64
	TargetEntry *float64
	TargetExit  *float64
}

// SignalEvent is a recorded transition between two signal states.
type SignalEvent struct {
	ID          string
	AssetID     string
	Symbol      string
	EventType   SignalEventType
	FromState   SignalState
	ToState     SignalState
	Price       *float64
	TargetEntry *float64
	TargetExit  *float64
	OccurredAt  time.Time
}
