// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLECT SIGNALS QUERY
// Собирает единый снимок активности студента для прогона правил.
// Все счётчики читаются конкурентно; снимок замораживается на время прогона.
// ══════════════════════════════════════════════════════════════════════════════

// CollectSignalsQuery содержит параметры сбора сигналов.
type CollectSignalsQuery struct {
	// UserID - студент, для которого строится снимок.
	UserID string

	// CourseID - необязательный курс, ограничивающий счётчики.
	CourseID string
}

// Validate проверяет корректность параметров запроса.
func (q *CollectSignalsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID cannot be empty")
	}
	return nil
}

// CollectSignalsHandler строит снимок StudentSignals из источников данных.
//
// Источник ранга (RankReader) трактуется как обогащение: его отказ понижает
// снимок до значения по умолчанию, но никогда не проваливает сбор.
type CollectSignalsHandler struct {
	activity signals.ActivityReader
	streaks  signals.StreakRepository
	ranks    signals.RankReader
	log      *logger.Logger
	now      func() time.Time
}

// NewCollectSignalsHandler создаёт новый обработчик сбора сигналов.
// ranks может быть nil - тогда перцентиль всегда берётся по умолчанию.
func NewCollectSignalsHandler(
	activity signals.ActivityReader,
	streaks signals.StreakRepository,
	ranks signals.RankReader,
	log *logger.Logger,
) *CollectSignalsHandler {
	return &CollectSignalsHandler{
		activity: activity,
		streaks:  streaks,
		ranks:    ranks,
		log:      log,
		now:      timeutil.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (h *CollectSignalsHandler) WithClock(now func() time.Time) *CollectSignalsHandler {
	h.now = now
	return h
}

// Handle собирает снимок сигналов. Отказ любого обязательного чтения
// проваливает сбор целиком: правила не должны работать с частичным снимком.
func (h *CollectSignalsHandler) Handle(ctx context.Context, query CollectSignalsQuery) (*signals.StudentSignals, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("signals", "Collect", shared.ErrValidation, err.Error(), err)
	}

	snap := &signals.StudentSignals{
		UserID:   query.UserID,
		CourseID: query.CourseID,
	}

	var lastActivity *time.Time

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := h.activity.CountLessonsCompleted(gctx, query.UserID, query.CourseID)
		snap.LessonsCompleted = n
		return err
	})
	g.Go(func() error {
		n, err := h.activity.CountTestsCompleted(gctx, query.UserID, query.CourseID)
		snap.TestsCompleted = n
		return err
	})
	g.Go(func() error {
		n, err := h.activity.CountProjectsSubmitted(gctx, query.UserID, query.CourseID)
		snap.ProjectsSubmitted = n
		return err
	})
	g.Go(func() error {
		n, err := h.activity.CountCertificates(gctx, query.UserID, query.CourseID)
		snap.CertificatesEarned = n
		return err
	})
	g.Go(func() error {
		n, err := h.activity.CountEnrollments(gctx, query.UserID)
		snap.CoursesEnrolled = n
		return err
	})
	g.Go(func() error {
		n, err := h.activity.CountCompletedCourses(gctx, query.UserID)
		snap.CoursesCompleted = n
		return err
	})
	g.Go(func() error {
		p, err := h.activity.CourseProgressPercent(gctx, query.UserID, query.CourseID)
		snap.CourseProgressPercent = p
		return err
	})
	g.Go(func() error {
		s, err := h.activity.AverageTestScore(gctx, query.UserID, query.CourseID)
		snap.AvgTestScore = s
		return err
	})
	g.Go(func() error {
		t, err := h.activity.LastActivityAt(gctx, query.UserID)
		lastActivity = t
		return err
	})
	g.Go(func() error {
		return h.fillStreak(gctx, query.UserID, snap)
	})
	g.Go(func() error {
		h.fillRank(gctx, query.UserID, snap)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, shared.WrapError("signals", "Collect", shared.ErrExternalService, "failed to collect activity signals", err)
	}

	if lastActivity != nil {
		snap.DaysSinceLastActivity = timeutil.WholeDaysSince(*lastActivity, h.now())
	}

	return snap, nil
}

// fillStreak читает запись серии. Отсутствие записи - это нули, не ошибка.
func (h *CollectSignalsHandler) fillStreak(ctx context.Context, userID string, snap *signals.StudentSignals) error {
	streak, err := h.streaks.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, signals.ErrStreakNotFound) {
			return nil
		}
		return err
	}
	snap.StreakCount = streak.EffectiveCurrent(h.now())
	snap.TotalActiveDays = streak.TotalActiveDays
	return nil
}

// fillRank читает перцентиль ранга. Любой отказ деградирует до значения
// по умолчанию, прогон правил от ранга не зависит.
func (h *CollectSignalsHandler) fillRank(ctx context.Context, userID string, snap *signals.StudentSignals) {
	if h.ranks == nil {
		return
	}
	rank, err := h.ranks.PercentileRank(ctx, userID)
	if err != nil {
		if h.log != nil {
			h.log.Debug("rank unavailable, using default percentile",
				logger.UserID(userID),
				logger.Err(err),
			)
		}
		return
	}
	snap.PercentileRank = &rank
}
