package rule

import "github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT RULES CATALOG
// Базовый набор правил, засеиваемый один раз при пустом каталоге.
// ID фиксированы, чтобы дефолтные правила можно было узнать и править
// через каталог, не создавая дубликатов.
// ══════════════════════════════════════════════════════════════════════════════

func limit(n int) *int {
	return &n
}

func scalar(field signals.Field, op Operator, value float64) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

func between(field signals.Field, low, high float64) Condition {
	return Condition{Field: field, Operator: OpBetween, Value: low, Value2: &high}
}

// NewFirstLessonRule - первый завершённый урок.
func NewFirstLessonRule() *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       "default-first-lesson",
		Name:     "First Lesson Completed",
		Type:     TypeMilestone,
		IsGlobal: true,
		Conditions: []Condition{
			scalar(signals.FieldLessonsCompleted, OpEqual, 1),
		},
		Actions: []Action{
			{Type: ActionAddCoins, Value: "10", Amount: 10},
			{Type: ActionSendNudge, Value: "celebration"},
		},
		Priority:        100,
		MaxTriggerCount: limit(1),
	})
	return r
}

// NewCourseHalfwayRule - половина курса пройдена.
func NewCourseHalfwayRule() *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       "default-course-halfway",
		Name:     "Halfway Through the Course",
		Type:     TypeMilestone,
		IsGlobal: true,
		Conditions: []Condition{
			scalar(signals.FieldCourseProgressPercent, OpGreaterOrEqual, 50),
		},
		Actions: []Action{
			{Type: ActionAddCoins, Value: "25", Amount: 25},
			{Type: ActionGenerateCard, Value: "progress"},
		},
		Priority:        90,
		MaxTriggerCount: limit(1),
	})
	return r
}

// NewCourseCompletedRule - курс завершён полностью.
func NewCourseCompletedRule() *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       "default-course-completed",
		Name:     "Course Completed",
		Type:     TypeMilestone,
		IsGlobal: true,
		Conditions: []Condition{
			scalar(signals.FieldCourseProgressPercent, OpGreaterOrEqual, 100),
		},
		Actions: []Action{
			{Type: ActionAddCoins, Value: "100", Amount: 100},
			{Type: ActionGenerateCard, Value: "milestone"},
			{Type: ActionCreateMysteryBox},
		},
		Priority:        95,
		MaxTriggerCount: limit(1),
	})
	return r
}

// NewStreakRule - награда за серию активных дней заданной длины.
func NewStreakRule(id ID, days int, actions []Action) *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       id,
		Name:     "Activity Streak",
		Type:     TypeStreak,
		IsGlobal: true,
		Conditions: []Condition{
			scalar(signals.FieldStreakCount, OpEqual, float64(days)),
		},
		Actions:  actions,
		Priority: 80,
	})
	return r
}

// NewComebackRule - студент вернулся после перерыва.
func NewComebackRule() *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       "default-comeback",
		Name:     "Welcome Back",
		Type:     TypeComeback,
		IsGlobal: true,
		Conditions: []Condition{
			between(signals.FieldDaysSinceLastActivity, 3, 14),
		},
		Actions: []Action{
			{Type: ActionSendNudge, Value: "comeback"},
		},
		Priority:      40,
		CooldownHours: 72,
	})
	return r
}

// NewTopPerformerRule - стабильно высокий средний балл.
func NewTopPerformerRule() *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       "default-top-performer",
		Name:     "Top Performer",
		Type:     TypePerformance,
		IsGlobal: true,
		Conditions: []Condition{
			scalar(signals.FieldAvgTestScore, OpGreaterOrEqual, 90),
			scalar(signals.FieldTestsCompleted, OpGreaterOrEqual, 5),
		},
		Actions: []Action{
			{Type: ActionAddCoins, Value: "50", Amount: 50},
			{Type: ActionGenerateCard, Value: "achievement"},
		},
		Priority:        60,
		CooldownHours:   7 * 24,
		MaxTriggerCount: limit(3),
	})
	return r
}

// NewGraduateDrawRule - розыгрыш за первый завершённый курс.
func NewGraduateDrawRule() *Rule {
	r, _ := NewRule(NewRuleParams{
		ID:       "default-graduate-draw",
		Name:     "Graduate Mystery Draw",
		Type:     TypeMilestone,
		IsGlobal: true,
		Conditions: []Condition{
			scalar(signals.FieldCoursesCompleted, OpGreaterOrEqual, 1),
		},
		Actions: []Action{
			{Type: ActionCreateMysteryBox},
			{Type: ActionSendNotification, Message: "Сіз курсты аяқтадыңыз! Загадочная коробка ждёт вас в профиле 🎁"},
		},
		Priority:        85,
		MaxTriggerCount: limit(1),
	})
	return r
}

// DefaultRules возвращает полный базовый каталог.
func DefaultRules() []*Rule {
	streak3 := NewStreakRule("default-streak-3", 3, []Action{
		{Type: ActionAddCoins, Value: "15", Amount: 15},
		{Type: ActionSendNudge, Value: "streak"},
	})
	streak3.Name = "Three Day Streak"

	streak7 := NewStreakRule("default-streak-7", 7, []Action{
		{Type: ActionAddCoins, Value: "50", Amount: 50},
		{Type: ActionGenerateCard, Value: "streak"},
	})
	streak7.Name = "Week of Fire"

	streak30 := NewStreakRule("default-streak-30", 30, []Action{
		{Type: ActionAddCoins, Value: "250", Amount: 250},
		{Type: ActionCreateMysteryBox},
		{Type: ActionSendNudge, Value: "streak"},
	})
	streak30.Name = "Month of Fire"

	return []*Rule{
		NewFirstLessonRule(),
		NewCourseHalfwayRule(),
		NewCourseCompletedRule(),
		NewGraduateDrawRule(),
		streak3,
		streak7,
		streak30,
		NewTopPerformerRule(),
		NewComebackRule(),
	}
}
