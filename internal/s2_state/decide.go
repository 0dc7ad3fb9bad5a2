package s2_state

import (
	"time"

	"github.com/dkwon/vigil/backend/internal/contracts"
)

// Lifecycle windows, in calendar days.
// ⭐ SSOT: 수명주기 상수는 여기서만 정의
//
// Day counting uses calendar-day subtraction, not trading days: a signal
// first seen Friday and still present Monday has been live 3 days.
const (
	// MinActiveDays consecutive presence before NEW promotes to ACTIVE
	MinActiveDays = 2

	// GracePeriodDays consecutive absence before a live instance ENDs
	GracePeriodDays = 2

	// CooldownDays minimum gap before the same key may fire again
	CooldownDays = 5
)

// decision is the reconciler's verdict for one live instance
type decision int

const (
	decideNone decision = iota
	decideTouch
	decidePromote
	decideEnd
)

// calendarDays returns whole calendar days from a to b, ignoring
// time-of-day
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	at := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bt := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bt.Sub(at).Hours() / 24)
}

// reconcilePresent decides what happens to a live instance whose key
// appeared in today's facts. Promotion fires on the day the instance has
// been live for exactly MinActiveDays, not before.
func reconcilePresent(inst *contracts.SignalInstance, asOf time.Time) decision {
	if inst.State == contracts.InstanceNew && calendarDays(inst.FirstDate, asOf) >= MinActiveDays {
		return decidePromote
	}
	return decideTouch
}

// reconcileAbsent decides what happens to a live instance whose key is
// missing from today's facts. Returns the new days_absent alongside the
// verdict; ENDED fires on the day absence reaches exactly GracePeriodDays.
func reconcileAbsent(inst *contracts.SignalInstance) (decision, int) {
	absent := inst.DaysAbsent + 1
	if absent >= GracePeriodDays {
		return decideEnd, absent
	}
	return decideTouch, absent
}
