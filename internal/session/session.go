// Package session classifies wall-clock time into the exchange trading
// phase, optionally reconciling a remote session hint against the local
// timetable.
package session

import (
	"time"

	"SignalDesk/internal/domain/models"
)

// HintMaxAge is how long a remote session hint stays trustworthy.
const HintMaxAge = 30 * time.Second

var exchangeTZ = mustLoadTZ("America/New_York")

func mustLoadTZ(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

// Classify returns the market session for the given instant. A hint younger
// than HintMaxAge is trusted, except that a REG hint is re-validated against
// local exchange hours: on a weekend or outside 09:30-16:00 it is downgraded
// to CLOSED rather than trusted. The function is pure and stateless per call.
func Classify(now time.Time, hint *models.SessionHint) models.MarketSession {
	local := now.In(exchangeTZ)

	if hint != nil && now.Sub(hint.At) >= 0 && now.Sub(hint.At) < HintMaxAge {
		if hint.State != models.SessionRegular {
			return hint.State
		}
		if withinRegularHours(local) {
			return models.SessionRegular
		}
		return models.SessionClosed
	}

	return fromTimetable(local)
}

func withinRegularHours(local time.Time) bool {
	if isWeekend(local) {
		return false
	}
	m := minuteOfDay(local)
	return m >= 9*60+30 && m < 16*60
}

func isWeekend(local time.Time) bool {
	wd := local.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func minuteOfDay(local time.Time) int {
	return local.Hour()*60 + local.Minute()
}

func fromTimetable(local time.Time) models.MarketSession {
	if isWeekend(local) {
		return models.SessionClosed
	}
	m := minuteOfDay(local)
	switch {
	case m >= 4*60 && m < 9*60+30:
		return models.SessionPre
	case m >= 9*60+30 && m < 16*60:
		return models.SessionRegular
	case m >= 16*60 && m < 20*60:
		return models.SessionPost
	default:
		return models.SessionClosed
	}
}
