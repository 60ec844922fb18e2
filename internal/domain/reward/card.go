package reward

import (
	"time"

	"github.com/google/uuid"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// CardType categorizes motivation cards. Each type has a fixed
// title/subtitle pair in the card catalog.
type CardType string

const (
	CardTypeStreak      CardType = "streak"
	CardTypeMilestone   CardType = "milestone"
	CardTypeProgress    CardType = "progress"
	CardTypeAchievement CardType = "achievement"
	CardTypeComeback    CardType = "comeback"
)

// cardCatalog maps card types to their display texts.
// An unknown type falls back to the generic entry.
var cardCatalog = map[CardType]struct {
	Title    string
	Subtitle string
}{
	CardTypeStreak:      {"Серия в огне! 🔥", "Ни дня без учёбы"},
	CardTypeMilestone:   {"Новая вершина! 🏔", "Важный рубеж позади"},
	CardTypeProgress:    {"Отличный темп! 🚀", "Курс сдаётся шаг за шагом"},
	CardTypeAchievement: {"Блестящий результат! ⭐", "Знания на высоте"},
	CardTypeComeback:    {"С возвращением! 👋", "Главное - продолжать"},
}

var genericCard = struct {
	Title    string
	Subtitle string
}{"Так держать! 💪", "Каждый шаг приближает к цели"}

// CardStats is the activity snapshot frozen into a card at creation time.
type CardStats struct {
	LessonsCompleted int     `json:"lessons_completed"`
	ProgressPercent  float64 `json:"progress_percent"`
	StreakCount      int     `json:"streak_count"`
}

// Card is a shareable motivation card. PublicID is the unguessable
// identifier used in share links.
type Card struct {
	// ID is the internal identifier.
	ID string

	// PublicID is the shareable identifier.
	PublicID string

	// UserID identifies the student the card was generated for.
	UserID string

	// Type determines the catalog texts.
	Type CardType

	// Title is the card headline.
	Title string

	// Subtitle is the supporting line. A rule's custom message overrides
	// the catalog subtitle.
	Subtitle string

	// Stats is the frozen activity snapshot.
	Stats CardStats

	// RuleID references the rule that generated the card.
	RuleID string

	// Viewed is the bounded read-state flag.
	Viewed bool

	// CreatedAt is when the card was generated.
	CreatedAt time.Time
}

// NewCard creates a motivation card, freezing the relevant stats from the
// signals snapshot. customMessage overrides the catalog subtitle when
// non-empty.
func NewCard(userID string, cardType CardType, customMessage string, s *signals.StudentSignals, ruleID string, now time.Time) *Card {
	texts, ok := cardCatalog[cardType]
	if !ok {
		texts = genericCard
	}

	subtitle := texts.Subtitle
	if customMessage != "" {
		subtitle = customMessage
	}

	return &Card{
		ID:       uuid.NewString(),
		PublicID: uuid.NewString(),
		UserID:   userID,
		Type:     cardType,
		Title:    texts.Title,
		Subtitle: subtitle,
		Stats: CardStats{
			LessonsCompleted: s.LessonsCompleted,
			ProgressPercent:  s.CourseProgressPercent,
			StreakCount:      s.StreakCount,
		},
		RuleID:    ruleID,
		CreatedAt: now,
	}
}

// MarkViewed sets the read-state flag.
func (c *Card) MarkViewed() {
	c.Viewed = true
}
