package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

type fakeStreakRepo struct {
	mu      sync.Mutex
	streaks map[string]*signals.Streak
	saves   int
}

func newFakeStreakRepo() *fakeStreakRepo {
	return &fakeStreakRepo{streaks: make(map[string]*signals.Streak)}
}

func (f *fakeStreakRepo) Get(_ context.Context, userID string) (*signals.Streak, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streaks[userID]
	if !ok {
		return nil, signals.ErrStreakNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStreakRepo) Save(_ context.Context, s *signals.Streak) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *s
	f.streaks[s.UserID] = &copied
	f.saves++
	return nil
}

func almatyNoon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, timeutil.AlmatyTZ)
}

func TestUpdateStreak_FirstActivityCreatesRecord(t *testing.T) {
	repo := newFakeStreakRepo()
	h := NewUpdateStreakHandler(repo, nil, nil).
		WithClock(func() time.Time { return almatyNoon(2026, 3, 10) })

	result, err := h.Handle(context.Background(), UpdateStreakCommand{UserID: "user-1"})
	require.NoError(t, err)

	assert.True(t, result.Updated)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, result.TotalActiveDays)
	assert.Equal(t, 1, repo.saves)
}

func TestUpdateStreak_SameDayDoesNotSave(t *testing.T) {
	repo := newFakeStreakRepo()
	now := almatyNoon(2026, 3, 10)
	h := NewUpdateStreakHandler(repo, nil, nil).
		WithClock(func() time.Time { return now })

	_, err := h.Handle(context.Background(), UpdateStreakCommand{UserID: "user-1"})
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), UpdateStreakCommand{UserID: "user-1"})
	require.NoError(t, err)

	assert.False(t, result.Updated)
	assert.Equal(t, 1, result.CurrentStreak)
	// Повторный вызов в тот же день не пишет в хранилище.
	assert.Equal(t, 1, repo.saves)
}

func TestUpdateStreak_ConsecutiveDays(t *testing.T) {
	repo := newFakeStreakRepo()
	now := almatyNoon(2026, 3, 10)
	h := NewUpdateStreakHandler(repo, nil, nil).
		WithClock(func() time.Time { return now })

	for day := 0; day < 3; day++ {
		now = almatyNoon(2026, 3, 10+day)
		_, err := h.Handle(context.Background(), UpdateStreakCommand{UserID: "user-1"})
		require.NoError(t, err)
	}

	result, err := h.Handle(context.Background(), UpdateStreakCommand{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.CurrentStreak)
	assert.Equal(t, 3, result.LongestStreak)
}

func TestUpdateStreak_Validation(t *testing.T) {
	h := NewUpdateStreakHandler(newFakeStreakRepo(), nil, nil)

	_, err := h.Handle(context.Background(), UpdateStreakCommand{})
	assert.Error(t, err)
}
