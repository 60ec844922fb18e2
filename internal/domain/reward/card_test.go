package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

func TestNewCard_FreezesStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := &signals.StudentSignals{
		UserID:                "user-1",
		LessonsCompleted:      15,
		CourseProgressPercent: 50,
		StreakCount:           4,
	}

	card := NewCard("user-1", CardTypeProgress, "", snap, "rule-1", now)

	assert.NotEmpty(t, card.ID)
	assert.NotEmpty(t, card.PublicID)
	assert.NotEqual(t, card.ID, card.PublicID)
	assert.Equal(t, CardTypeProgress, card.Type)
	assert.NotEmpty(t, card.Title)
	assert.NotEmpty(t, card.Subtitle)
	assert.Equal(t, 15, card.Stats.LessonsCompleted)
	assert.Equal(t, 50.0, card.Stats.ProgressPercent)
	assert.Equal(t, 4, card.Stats.StreakCount)
	assert.False(t, card.Viewed)
}

func TestNewCard_CustomMessageOverridesSubtitle(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := &signals.StudentSignals{UserID: "user-1"}

	card := NewCard("user-1", CardTypeStreak, "Неделя без пропусков!", snap, "rule-1", now)
	assert.Equal(t, "Неделя без пропусков!", card.Subtitle)
}

func TestNewCard_UnknownTypeFallsBackToGeneric(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	snap := &signals.StudentSignals{UserID: "user-1"}

	card := NewCard("user-1", CardType("legend"), "", snap, "rule-1", now)
	assert.NotEmpty(t, card.Title)
	assert.NotEmpty(t, card.Subtitle)
}

func TestNotification_MarkRead(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	n := NewNotification("user-1", "Bilim", "текст", NotificationKindNudge, "rule-1", now)

	assert.False(t, n.Read)
	n.MarkRead()
	assert.True(t, n.Read)
}
