package rule

import (
	"errors"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULE ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// ID представляет уникальный идентификатор правила.
type ID string

// IsValid проверяет, что ID правила не пустой.
func (id ID) IsValid() bool {
	return len(id) > 0
}

// String возвращает строковое представление ID.
func (id ID) String() string {
	return string(id)
}

// Type определяет категорию правила.
type Type string

const (
	// TypeMilestone - достижение рубежа (первый урок, прогресс курса).
	TypeMilestone Type = "milestone"

	// TypeStreak - награда за серию активных дней.
	TypeStreak Type = "streak"

	// TypeComeback - возвращение после перерыва.
	TypeComeback Type = "comeback"

	// TypePerformance - награда за результаты (средний балл).
	TypePerformance Type = "performance"

	// TypeCustom - правило, созданное вручную через каталог.
	TypeCustom Type = "custom"
)

// IsValid проверяет корректность типа правила.
func (t Type) IsValid() bool {
	switch t {
	case TypeMilestone, TypeStreak, TypeComeback, TypePerformance, TypeCustom:
		return true
	default:
		return false
	}
}

// DefaultCooldownHours - период охлаждения по умолчанию.
const DefaultCooldownHours = 24

// Rule определяет декларативное правило мотивации: условия над сигналами
// студента и действия, выполняемые при срабатывании.
type Rule struct {
	// ID - уникальный идентификатор правила.
	ID ID

	// Name - человекочитаемое название.
	Name string

	// Type - категория правила.
	Type Type

	// Conditions - упорядоченный список условий (все должны выполняться - AND).
	Conditions []Condition

	// Actions - упорядоченный список действий при срабатывании.
	Actions []Action

	// Priority - приоритет: правила проверяются по убыванию.
	Priority int

	// CooldownHours - минимальный интервал в часах между срабатываниями
	// для одного студента.
	CooldownHours int

	// MaxTriggerCount - максимум срабатываний на студента.
	// nil - без ограничения.
	MaxTriggerCount *int

	// IsGlobal - правило действует на всей платформе.
	IsGlobal bool

	// CourseID - привязка к курсу для не-глобальных правил.
	CourseID string

	// IsActive - правило участвует в эвалюации. Деактивация - это
	// мягкое удаление.
	IsActive bool

	// CreatedAt - время создания.
	CreatedAt time.Time

	// UpdatedAt - время обновления.
	UpdatedAt time.Time
}

// NewRuleParams содержит параметры для создания правила.
type NewRuleParams struct {
	ID              ID
	Name            string
	Type            Type
	Conditions      []Condition
	Actions         []Action
	Priority        int
	CooldownHours   int
	MaxTriggerCount *int
	IsGlobal        bool
	CourseID        string
}

// NewRule создаёт новое правило с валидацией.
func NewRule(params NewRuleParams) (*Rule, error) {
	if !params.ID.IsValid() {
		return nil, ErrInvalidRuleID
	}
	if params.Name == "" {
		return nil, ErrEmptyRuleName
	}
	if !params.Type.IsValid() {
		return nil, ErrInvalidRuleType
	}
	if len(params.Actions) == 0 {
		return nil, ErrNoActions
	}
	for _, a := range params.Actions {
		if !a.Type.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidActionType, a.Type)
		}
	}
	if !params.IsGlobal && params.CourseID == "" {
		return nil, ErrMissingCourseScope
	}
	if params.MaxTriggerCount != nil && *params.MaxTriggerCount <= 0 {
		return nil, ErrInvalidTriggerLimit
	}

	cooldown := params.CooldownHours
	if cooldown <= 0 {
		cooldown = DefaultCooldownHours
	}

	now := time.Now().UTC()

	return &Rule{
		ID:              params.ID,
		Name:            params.Name,
		Type:            params.Type,
		Conditions:      params.Conditions,
		Actions:         params.Actions,
		Priority:        params.Priority,
		CooldownHours:   cooldown,
		MaxTriggerCount: params.MaxTriggerCount,
		IsGlobal:        params.IsGlobal,
		CourseID:        params.CourseID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// AppliesTo проверяет область действия: глобальное правило подходит всегда,
// курсовое - только при совпадении курса.
func (r *Rule) AppliesTo(courseID string) bool {
	if r.IsGlobal {
		return true
	}
	return r.CourseID != "" && r.CourseID == courseID
}

// Cooldown возвращает период охлаждения как Duration.
func (r *Rule) Cooldown() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

// HasTriggerLimit проверяет, ограничено ли число срабатываний.
func (r *Rule) HasTriggerLimit() bool {
	return r.MaxTriggerCount != nil
}

// LimitReached проверяет, исчерпан ли лимит срабатываний.
func (r *Rule) LimitReached(triggerCount int) bool {
	return r.MaxTriggerCount != nil && triggerCount >= *r.MaxTriggerCount
}

// Deactivate выполняет мягкое удаление правила.
func (r *Rule) Deactivate() {
	r.IsActive = false
	r.UpdatedAt = time.Now().UTC()
}

// Activate возвращает правило в эвалюацию.
func (r *Rule) Activate() {
	r.IsActive = true
	r.UpdatedAt = time.Now().UTC()
}

// Clone создаёт глубокую копию правила.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}

	clone := *r

	if r.Conditions != nil {
		clone.Conditions = make([]Condition, len(r.Conditions))
		for i, c := range r.Conditions {
			clone.Conditions[i] = c.Clone()
		}
	}
	if r.Actions != nil {
		clone.Actions = make([]Action, len(r.Actions))
		copy(clone.Actions, r.Actions)
	}
	if r.MaxTriggerCount != nil {
		limit := *r.MaxTriggerCount
		clone.MaxTriggerCount = &limit
	}

	return &clone
}

// String возвращает строковое представление для логирования.
func (r *Rule) String() string {
	return fmt.Sprintf(
		"Rule{ID: %s, Name: %s, Type: %s, Priority: %d, Active: %v, Conditions: %d, Actions: %d}",
		r.ID, r.Name, r.Type, r.Priority, r.IsActive, len(r.Conditions), len(r.Actions),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// RULE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidRuleID - невалидный ID правила.
	ErrInvalidRuleID = errors.New("rule: invalid rule id: cannot be empty")

	// ErrEmptyRuleName - пустое название правила.
	ErrEmptyRuleName = errors.New("rule: name cannot be empty")

	// ErrInvalidRuleType - невалидный тип правила.
	ErrInvalidRuleType = errors.New("rule: invalid rule type")

	// ErrNoActions - правило без действий.
	ErrNoActions = errors.New("rule: at least one action is required")

	// ErrInvalidActionType - невалидный тип действия.
	ErrInvalidActionType = errors.New("rule: invalid action type")

	// ErrMissingCourseScope - не-глобальное правило без курса.
	ErrMissingCourseScope = errors.New("rule: non-global rule requires a course id")

	// ErrInvalidTriggerLimit - неположительный лимит срабатываний.
	ErrInvalidTriggerLimit = errors.New("rule: max trigger count must be positive")

	// ErrRuleNotFound - правило не найдено.
	ErrRuleNotFound = errors.New("rule: rule not found")

	// ErrRuleAlreadyExists - правило с таким ID уже существует.
	ErrRuleAlreadyExists = errors.New("rule: rule already exists")
)
