// Package timeutil provides timezone-aware date arithmetic for the Bilim
// platform (Asia/Almaty, UTC+5). Streaks, cooldowns and activity windows are
// all computed in platform-local calendar days, so every "same day" and
// "days since" decision goes through this package.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// AlmatyTZ is the platform timezone (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so the offset is constant year-round.
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in the platform timezone.
func Now() time.Time {
	return time.Now().In(AlmatyTZ)
}

// ToLocal converts a time to the platform timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(AlmatyTZ)
}

// StartOfDay returns the start of the day (00:00:00) in the platform timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, AlmatyTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the platform timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, AlmatyTZ)
}

// SameDay reports whether two times fall on the same platform-local calendar day.
func SameDay(a, b time.Time) bool {
	la, lb := ToLocal(a), ToLocal(b)
	return la.Year() == lb.Year() && la.Month() == lb.Month() && la.Day() == lb.Day()
}

// IsToday checks if the given time is today in the platform timezone.
func IsToday(t time.Time) bool {
	return SameDay(t, Now())
}

// IsYesterday checks if the given time is yesterday in the platform timezone.
func IsYesterday(t time.Time) bool {
	return SameDay(t, Now().AddDate(0, 0, -1))
}

// DaysBetween returns the number of whole calendar days between two times,
// comparing platform-local dates only. The result is negative when to is
// before from.
func DaysBetween(from, to time.Time) int {
	f := StartOfDay(from)
	t := StartOfDay(to)
	return int(t.Sub(f).Hours() / 24)
}

// DaysSince returns the number of whole calendar days elapsed since t.
func DaysSince(t time.Time) int {
	return DaysBetween(t, Now())
}

// WholeDaysSince returns the floor of full 24-hour periods elapsed between
// t and now. Unlike DaysSince this counts elapsed duration, not calendar
// boundaries: 23 hours ago is 0 days, 25 hours ago is 1 day.
func WholeDaysSince(t, now time.Time) int {
	if now.Before(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}
