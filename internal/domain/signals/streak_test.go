package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

func almaty(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, timeutil.AlmatyTZ)
}

func TestStreak_FirstActivity(t *testing.T) {
	s := NewStreak("user-1")
	now := almaty(2026, 3, 10, 14)

	updated := s.RecordActivity(now)

	assert.True(t, updated)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	assert.Equal(t, 1, s.TotalActiveDays)
	assert.Equal(t, timeutil.StartOfDay(now), s.StreakStartDate)
}

func TestStreak_SameDayIsIdempotent(t *testing.T) {
	s := NewStreak("user-1")
	s.RecordActivity(almaty(2026, 3, 10, 9))

	updated := s.RecordActivity(almaty(2026, 3, 10, 22))

	assert.False(t, updated)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.TotalActiveDays)
}

func TestStreak_ConsecutiveDaysIncrement(t *testing.T) {
	s := NewStreak("user-1")
	s.RecordActivity(almaty(2026, 3, 10, 23))

	// Поздний вечер и раннее утро - всё равно соседние календарные дни.
	updated := s.RecordActivity(almaty(2026, 3, 11, 0))

	assert.True(t, updated)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 2, s.TotalActiveDays)
}

func TestStreak_GapResetsCurrentButKeepsLongest(t *testing.T) {
	s := NewStreak("user-1")
	s.RecordActivity(almaty(2026, 3, 10, 12))
	s.RecordActivity(almaty(2026, 3, 11, 12))
	s.RecordActivity(almaty(2026, 3, 12, 12))
	assert.Equal(t, 3, s.CurrentStreak)

	// Пропущено два дня.
	updated := s.RecordActivity(almaty(2026, 3, 15, 12))

	assert.True(t, updated)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 3, s.LongestStreak)
	assert.Equal(t, 4, s.TotalActiveDays)
	assert.Equal(t, timeutil.StartOfDay(almaty(2026, 3, 15, 12)), s.StreakStartDate)
}

func TestStreak_IsBroken(t *testing.T) {
	s := NewStreak("user-1")
	assert.False(t, s.IsBroken(almaty(2026, 3, 10, 12)))

	s.RecordActivity(almaty(2026, 3, 10, 12))
	assert.False(t, s.IsBroken(almaty(2026, 3, 10, 20)))
	assert.False(t, s.IsBroken(almaty(2026, 3, 11, 20)))
	assert.True(t, s.IsBroken(almaty(2026, 3, 12, 1)))
}

func TestStreak_EffectiveCurrentZeroWhenLapsed(t *testing.T) {
	s := NewStreak("user-1")
	s.RecordActivity(almaty(2026, 3, 10, 12))
	s.RecordActivity(almaty(2026, 3, 11, 12))

	assert.Equal(t, 2, s.EffectiveCurrent(almaty(2026, 3, 12, 12)))
	assert.Equal(t, 0, s.EffectiveCurrent(almaty(2026, 3, 14, 12)))
	// Само поле при этом не обнуляется до следующей активности.
	assert.Equal(t, 2, s.CurrentStreak)
}
