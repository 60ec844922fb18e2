package signals

import (
	"time"

	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

// Streak tracks a student's run of consecutive active calendar days.
// Days are platform-local (Asia/Almaty); a streak survives as long as no
// full calendar day is skipped.
type Streak struct {
	// UserID identifies the student.
	UserID string

	// CurrentStreak is the current run of consecutive active days.
	CurrentStreak int

	// LongestStreak is the historical maximum of CurrentStreak.
	LongestStreak int

	// TotalActiveDays is the lifetime count of distinct active days.
	TotalActiveDays int

	// LastActivityAt is the timestamp of the most recent recorded activity.
	// Zero when no activity was ever recorded.
	LastActivityAt time.Time

	// StreakStartDate is the first day of the current streak.
	StreakStartDate time.Time
}

// NewStreak creates an empty streak tracker for a student.
func NewStreak(userID string) *Streak {
	return &Streak{UserID: userID}
}

// RecordActivity updates the streak for an activity happening at now.
// It is idempotent per calendar day: a second call on the same day reports
// false and changes nothing. On any counted day it maintains LongestStreak,
// increments TotalActiveDays and moves LastActivityAt forward.
func (s *Streak) RecordActivity(now time.Time) bool {
	// First ever activity starts a fresh streak.
	if s.LastActivityAt.IsZero() {
		s.CurrentStreak = 1
		s.StreakStartDate = timeutil.StartOfDay(now)
		s.finishActiveDay(now)
		return true
	}

	switch {
	case timeutil.SameDay(s.LastActivityAt, now):
		// Already counted today.
		return false
	case timeutil.DaysBetween(s.LastActivityAt, now) == 1:
		// Consecutive day: the streak continues.
		s.CurrentStreak++
	default:
		// Gap of two or more days: the streak restarts.
		s.CurrentStreak = 1
		s.StreakStartDate = timeutil.StartOfDay(now)
	}

	s.finishActiveDay(now)
	return true
}

func (s *Streak) finishActiveDay(now time.Time) {
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.TotalActiveDays++
	s.LastActivityAt = now
}

// IsBroken reports whether the streak has lapsed (yesterday was missed).
func (s *Streak) IsBroken(now time.Time) bool {
	if s.LastActivityAt.IsZero() {
		return false
	}
	return timeutil.DaysBetween(s.LastActivityAt, now) > 1
}

// EffectiveCurrent returns the streak value rules should see at now: a
// lapsed streak counts as zero even before the next activity resets it.
func (s *Streak) EffectiveCurrent(now time.Time) int {
	if s.IsBroken(now) {
		return 0
	}
	return s.CurrentStreak
}
