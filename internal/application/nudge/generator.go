// Package nudge generates short motivational messages from templates.
// The generator is pure: it touches no storage, only the signals snapshot
// and an injected randomness source.
package nudge

import (
	"fmt"
	"math"
	"strings"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// Type классифицирует мотивационное сообщение.
type Type string

const (
	// TypeComeback - возвращение после перерыва.
	TypeComeback Type = "comeback"

	// TypeStreak - поддержание серии активных дней.
	TypeStreak Type = "streak"

	// TypeCelebration - празднование достижения.
	TypeCelebration Type = "celebration"

	// TypeProgress - близость к завершению курса.
	TypeProgress Type = "progress"

	// TypeReminder - мягкое напоминание о занятиях.
	TypeReminder Type = "reminder"

	// TypeEncouragement - общее подбадривание.
	TypeEncouragement Type = "encouragement"
)

// String возвращает строковое представление типа.
func (t Type) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE POOLS
// Пулы фиксированы; шаблон выбирается равномерно случайно внутри пула.
// Плейсхолдеры в фигурных скобках подставляются из снимка сигналов.
// ══════════════════════════════════════════════════════════════════════════════

var templates = map[Type][]string{
	TypeComeback: {
		"Мы скучали! Твой курс ждёт тебя - осталось всего {remaining} уроков до цели 🎯",
		"С возвращением! Продолжи с того места, где остановился - прогресс {courseProgressPercent}% никуда не делся 💪",
		"Перерыв - это нормально. Один урок сегодня, и ты снова в игре 🚀",
	},
	TypeStreak: {
		"Серия {streakCount} дней подряд! Не останавливайся 🔥",
		"{streakCount} дней без пропусков - ты машина! Ещё один день? 🔥",
		"Твоя серия растёт: {streakCount} дней. Завтра будет ещё больше 💪",
	},
	TypeCelebration: {
		"Ты в топ-{percentileRank}% студентов платформы! Так держать 🏆",
		"Отличная работа! {lessonsCompleted} уроков и {testsCompleted} тестов позади 🎉",
		"Твои результаты впечатляют - {certificatesEarned} сертификатов уже в копилке ⭐",
	},
	TypeProgress: {
		"Финишная прямая: {courseProgressPercent}% курса пройдено, осталось {remaining} уроков 🏁",
		"Ты почти у цели! Ещё {remaining} уроков - и курс твой 🎓",
		"{courseProgressPercent}% позади. Самое сложное уже сделано 💪",
	},
	TypeReminder: {
		"Сегодня ещё не занимался? Один короткий урок - и день засчитан 📚",
		"Пара минут на урок сегодня сохранит твой прогресс 🕐",
		"Небольшое напоминание: знания любят регулярность 📖",
	},
	TypeEncouragement: {
		"Каждый урок приближает тебя к цели. Продолжай! 💪",
		"Учёба - это марафон, а не спринт. Ты отлично справляешься 🌱",
		"Маленькие шаги каждый день дают большой результат 🚀",
	},
}

// fallbackMessage возвращается для неизвестного типа или пустого пула.
const fallbackMessage = "Продолжай учиться - у тебя отлично получается! 💪"

// assumedCourseLessons используется в формуле {remaining}, когда прогресс
// по курсу ещё нулевой и общее число уроков оценить нельзя.
const assumedCourseLessons = 10

// Generator выбирает шаблон и подставляет значения из снимка сигналов.
type Generator struct {
	rnd shared.Rand
}

// NewGenerator создаёт генератор с заданным источником случайности.
func NewGenerator(rnd shared.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Generate возвращает текст сообщения заданного типа. customMessage, если
// задан, используется вместо шаблона (но плейсхолдеры всё равно
// подставляются). Результат никогда не бывает пустым.
func (g *Generator) Generate(t Type, snap *signals.StudentSignals, customMessage string) string {
	if customMessage != "" {
		return g.interpolate(customMessage, snap)
	}

	pool, ok := templates[t]
	if !ok || len(pool) == 0 {
		return fallbackMessage
	}

	tpl := pool[g.rnd.Intn(len(pool))]
	msg := g.interpolate(tpl, snap)
	if msg == "" {
		return fallbackMessage
	}
	return msg
}

// SelectType подбирает тип сообщения под состояние студента. Правила
// проверяются по порядку, срабатывает первое подходящее: долгий перерыв
// важнее серии, серия важнее празднования.
func (g *Generator) SelectType(snap *signals.StudentSignals) Type {
	switch {
	case snap.DaysSinceLastActivity > 3:
		return TypeComeback
	case snap.StreakCount >= 3:
		return TypeStreak
	case snap.PercentileRankOrDefault() >= 80:
		return TypeCelebration
	case snap.CourseProgressPercent >= 80:
		return TypeProgress
	case snap.DaysSinceLastActivity >= 1:
		return TypeReminder
	default:
		return TypeEncouragement
	}
}

func (g *Generator) interpolate(tpl string, snap *signals.StudentSignals) string {
	r := strings.NewReplacer(
		"{streakCount}", fmt.Sprintf("%d", snap.StreakCount),
		"{percentileRank}", formatPercent(snap.PercentileRankOrDefault()),
		"{courseProgressPercent}", formatPercent(snap.CourseProgressPercent),
		"{lessonsCompleted}", fmt.Sprintf("%d", snap.LessonsCompleted),
		"{testsCompleted}", fmt.Sprintf("%d", snap.TestsCompleted),
		"{certificatesEarned}", fmt.Sprintf("%d", snap.CertificatesEarned),
		"{remaining}", fmt.Sprintf("%d", remainingLessons(snap)),
	)
	return r.Replace(tpl)
}

// remainingLessons оценивает, сколько уроков осталось до конца курса:
// общее число уроков экстраполируется из текущего прогресса.
func remainingLessons(snap *signals.StudentSignals) int {
	if snap.CourseProgressPercent <= 0 {
		remaining := assumedCourseLessons - snap.LessonsCompleted
		if remaining < 0 {
			return 0
		}
		return remaining
	}

	total := int(math.Round(float64(snap.LessonsCompleted) / (snap.CourseProgressPercent / 100)))
	remaining := total - snap.LessonsCompleted
	if remaining < 0 {
		return 0
	}
	return remaining
}

// formatPercent печатает процент без хвостовых нулей (75, 87.5).
func formatPercent(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f", v)
}
