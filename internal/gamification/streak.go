package gamification

import "time"

// TickStreak returns the new streak count. Gaps are measured in UTC calendar
// dates, not 24-hour windows, so a session at 23:59 followed by one at 00:01
// counts as consecutive days.
func TickStreak(prev int, lastActiveAt *time.Time, now time.Time, activeToday bool) int {
	if prev < 0 {
		prev = 0
	}
	if lastActiveAt == nil {
		if activeToday {
			return 1
		}
		return 0
	}

	gap := daysBetween(*lastActiveAt, now)
	switch {
	case gap < 0:
		// clock skew: keep what we have
		return prev
	case gap == 0:
		if activeToday && prev == 0 {
			return 1
		}
		return prev
	case gap == 1:
		if activeToday {
			return prev + 1
		}
		return prev
	default:
		if activeToday {
			return 1
		}
		return 0
	}
}

func daysBetween(from, to time.Time) int {
	return int(calendarDate(to).Sub(calendarDate(from)).Hours() / 24)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight is when the current UTC calendar day ends.
func NextUTCMidnight(now time.Time) time.Time {
	return calendarDate(now).AddDate(0, 0, 1)
}

// StartOfUTCDay is the first instant of now's UTC calendar day.
func StartOfUTCDay(now time.Time) time.Time {
	return calendarDate(now)
}
