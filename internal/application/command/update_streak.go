package command

import (
	"context"
	"errors"
	"time"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STREAK COMMAND
// Засчитывает активность студента за сегодняшний день. Идемпотентна в
// пределах календарного дня: повторный вызов ничего не меняет.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakCommand содержит параметры обновления серии.
type UpdateStreakCommand struct {
	// UserID - студент, чья активность засчитывается.
	UserID string
}

// Validate проверяет корректность команды.
func (c *UpdateStreakCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID cannot be empty")
	}
	return nil
}

// UpdateStreakResult - состояние серии после обновления.
type UpdateStreakResult struct {
	// CurrentStreak - текущая серия активных дней.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - исторический максимум серии.
	LongestStreak int `json:"longest_streak"`

	// TotalActiveDays - всего активных дней за всё время.
	TotalActiveDays int `json:"total_active_days"`

	// Updated - изменилось ли что-то (false при повторном вызове за день).
	Updated bool `json:"updated"`
}

// UpdateStreakHandler обрабатывает засчёт дневной активности.
type UpdateStreakHandler struct {
	streaks signals.StreakRepository
	events  shared.EventPublisher
	log     *logger.Logger
	now     func() time.Time
}

// NewUpdateStreakHandler создаёт обработчик обновления серии.
func NewUpdateStreakHandler(streaks signals.StreakRepository, events shared.EventPublisher, log *logger.Logger) *UpdateStreakHandler {
	return &UpdateStreakHandler{
		streaks: streaks,
		events:  events,
		log:     log,
		now:     timeutil.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (h *UpdateStreakHandler) WithClock(now func() time.Time) *UpdateStreakHandler {
	h.now = now
	return h
}

// Handle засчитывает активность. Отсутствие записи серии - это первый
// активный день, а не ошибка.
func (h *UpdateStreakHandler) Handle(ctx context.Context, cmd UpdateStreakCommand) (*UpdateStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("streak", "Update", shared.ErrValidation, err.Error(), err)
	}

	streak, err := h.streaks.Get(ctx, cmd.UserID)
	if err != nil {
		if !errors.Is(err, signals.ErrStreakNotFound) {
			return nil, shared.WrapError("streak", "Update", shared.ErrExternalService, "failed to load streak", err)
		}
		streak = signals.NewStreak(cmd.UserID)
	}

	updated := streak.RecordActivity(h.now())
	if updated {
		if err := h.streaks.Save(ctx, streak); err != nil {
			return nil, shared.WrapError("streak", "Update", shared.ErrExternalService, "failed to save streak", err)
		}
		h.publishUpdated(streak)
	}

	return &UpdateStreakResult{
		CurrentStreak:   streak.CurrentStreak,
		LongestStreak:   streak.LongestStreak,
		TotalActiveDays: streak.TotalActiveDays,
		Updated:         updated,
	}, nil
}

func (h *UpdateStreakHandler) publishUpdated(streak *signals.Streak) {
	if h.events == nil {
		return
	}
	event := shared.NewStreakUpdatedEvent(streak.UserID, streak.CurrentStreak, streak.LongestStreak)
	if err := h.events.Publish(event); err != nil && h.log != nil {
		h.log.Warn("failed to publish streak updated event",
			logger.UserID(streak.UserID),
			logger.Err(err),
		)
	}
}
