// Package signals classifies an asset's daily range against its target
// levels and maps state changes to transition events.
package signals

import "Watchtower/internal/model"

// Classify computes the signal state for one asset.
//
// Entry fires when the target sits inside the day's range, or above the
// day's high. Exit fires only inside the range. Both bounds are inclusive and
// a range needs both a low and a high.
func Classify(in model.SignalInput) model.SignalState {
	hasRange := in.DailyLow != nil && in.DailyHigh != nil

	entryHit := false
	if in.TargetEntry != nil {
		entry := *in.TargetEntry
		switch {
		case hasRange && *in.DailyLow <= entry && entry <= *in.DailyHigh:
			entryHit = true
		case in.DailyHigh != nil && entry > *in.DailyHigh:
			entryHit = true
		}
	}

	exitHit := in.TargetExit != nil && hasRange &&
		*in.DailyLow <= *in.TargetExit && *in.TargetExit <= *in.DailyHigh

	switch {
	case entryHit && exitHit:
		return model.StateBoth
	case entryHit:
		return model.StateBuy
	case exitHit:
		return model.StateSell
	default:
		return model.StateNone
	}
}

// TransitionEvent maps a state change to the event it records. The target
// state wins: entering BUY, SELL or BOTH is always an ENTER event, whatever
// the previous state was. Falling back to NONE is an EXIT keyed on the
// previous state. ok is false when no event applies.
func TransitionEvent(from, to model.SignalState) (evt model.SignalEventType, ok bool) {
	if from == to {
		return "", false
	}

	switch to {
	case model.StateBuy:
		return model.EventEnterBuy, true
	case model.StateSell:
		return model.EventEnterSell, true
	case model.StateBoth:
		return model.EventEnterBoth, true
	case model.StateNone:
		switch from {
		case model.StateBuy:
			return model.EventExitBuy, true
		case model.StateSell:
			return model.EventExitSell, true
		case model.StateBoth:
			return model.EventExitBoth, true
		}
	}
	return "", false
}

// IsBuyLike reports whether the state includes an entry hit.
func IsBuyLike(s model.SignalState) bool {
	return s == model.StateBuy || s == model.StateBoth
}

// IsSellLike reports whether the state includes an exit hit.
func IsSellLike(s model.SignalState) bool {
	return s == model.StateSell || s == model.StateBoth
}

// IsActive reports whether any target was hit.
func IsActive(s model.SignalState) bool {
	return s == model.StateBuy || s == model.StateSell || s == model.StateBoth
}
