// Package overdue computes subscription overdue escalation stages and when
// a reminder should go out.
package overdue

import (
	"math"
	"time"

	"Watchtower/internal/model"
)

const day = 24 * time.Hour

// ReminderInterval is how often a chronic (stage 3) overdue subscription is
// reminded about.
const ReminderInterval = 7 * day

// Stage thresholds in whole days past due.
const (
	stage1Days = 1
	stage2Days = 3
	stage3Days = 10
)

// MaxStage is the chronic overdue stage.
const MaxStage = 3

// DaysBetween returns the whole days from a to b, rounded down.
func DaysBetween(a, b time.Time) int {
	return int(math.Floor(float64(b.Sub(a)) / float64(day)))
}

// StageFor maps the time elapsed since dueAt to an escalation stage 0-3.
func StageFor(dueAt, now time.Time) int {
	days := DaysBetween(dueAt, now)
	switch {
	case days < stage1Days:
		return 0
	case days < stage2Days:
		return 1
	case days < stage3Days:
		return 2
	default:
		return MaxStage
	}
}

// ShouldNotify reports whether moving from previous to next deserves a
// notification. Escalations always notify once. Stage 3 also repeats weekly.
func ShouldNotify(previous, next int, lastNotifiedAt *time.Time, now time.Time) bool {
	if next > previous {
		return true
	}
	if next < MaxStage {
		return false
	}
	return lastNotifiedAt == nil || now.Sub(*lastNotifiedAt) >= ReminderInterval
}

// Decision is the outcome of checking one subscription.
type Decision struct {
	Stage  int
	Days   int
	Status model.SubscriptionStatus
	Notify bool
	// Changed is true when status or stage differ from the stored values.
	Changed bool
}

// Decide evaluates sub at now. A subscription without a due date, or one
// that is cancelled, keeps its state and is never notified.
func Decide(sub model.Subscription, now time.Time) Decision {
	if sub.DueAt == nil || sub.Status == model.SubscriptionCancelled {
		return Decision{Stage: sub.OverdueStage, Status: sub.Status}
	}

	stage := StageFor(*sub.DueAt, now)
	days := DaysBetween(*sub.DueAt, now)

	if stage == 0 {
		// back within terms: clear without notifying
		if sub.Status == model.SubscriptionOverdue {
			return Decision{Stage: 0, Days: days, Status: model.SubscriptionActive, Changed: true}
		}
		return Decision{Stage: sub.OverdueStage, Days: days, Status: sub.Status}
	}

	d := Decision{Stage: stage, Days: days}
	d.Status = model.SubscriptionOverdue
	d.Notify = ShouldNotify(sub.OverdueStage, stage, sub.LastOverdueNotifiedAt, now)
	d.Changed = sub.Status != model.SubscriptionOverdue || sub.OverdueStage != stage
	return d
}
