// Package rule содержит доменную модель правил мотивации Bilim Platform.
// Правила определяют, когда и за что студент получает награды и поддержку.
// Это позволяет гибко настраивать мотивационную логику без изменения кода.
package rule

import (
	"math"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPARISON OPERATOR
// ══════════════════════════════════════════════════════════════════════════════

// Operator определяет оператор сравнения для условий.
type Operator string

const (
	// OpEqual - равно.
	OpEqual Operator = "eq"

	// OpNotEqual - не равно.
	OpNotEqual Operator = "neq"

	// OpGreaterThan - больше.
	OpGreaterThan Operator = "gt"

	// OpGreaterOrEqual - больше или равно.
	OpGreaterOrEqual Operator = "gte"

	// OpLessThan - меньше.
	OpLessThan Operator = "lt"

	// OpLessOrEqual - меньше или равно.
	OpLessOrEqual Operator = "lte"

	// OpBetween - между (включительно с обеих сторон).
	OpBetween Operator = "between"

	// OpIn - входит в список.
	OpIn Operator = "in"

	// OpNotIn - не входит в список.
	OpNotIn Operator = "not_in"
)

// IsValid проверяет корректность оператора.
func (op Operator) IsValid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterOrEqual,
		OpLessThan, OpLessOrEqual, OpBetween, OpIn, OpNotIn:
		return true
	default:
		return false
	}
}

// compare вычисляет скалярное сравнение. Любое сравнение с NaN ложно,
// включая neq - нечисловое значение никогда не удовлетворяет условию.
func (op Operator) compare(actual, expected float64) bool {
	if math.IsNaN(actual) || math.IsNaN(expected) {
		return false
	}

	switch op {
	case OpEqual:
		return actual == expected
	case OpNotEqual:
		return actual != expected
	case OpGreaterThan:
		return actual > expected
	case OpGreaterOrEqual:
		return actual >= expected
	case OpLessThan:
		return actual < expected
	case OpLessOrEqual:
		return actual <= expected
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONDITION
// Условия проверяются над снимком сигналов студента. Неизвестное поле или
// нечисловое значение всегда дают false (fail-closed) - правило с плохим
// условием просто не срабатывает, эвалюация не прерывается.
// ══════════════════════════════════════════════════════════════════════════════

// Condition представляет одно условие срабатывания правила.
type Condition struct {
	// Field - атрибут снимка сигналов, который проверяется.
	Field signals.Field

	// Operator - оператор сравнения.
	Operator Operator

	// Value - значение для сравнения. NaN, если исходное значение
	// не удалось привести к числу.
	Value float64

	// Value2 - верхняя граница для OpBetween. nil, если не задана.
	Value2 *float64

	// List - список значений для OpIn / OpNotIn.
	List []float64

	// IsList - исходное значение было массивом.
	IsList bool
}

// Evaluate вычисляет условие над снимком сигналов.
func (c Condition) Evaluate(s *signals.StudentSignals) bool {
	actual, ok := s.Value(c.Field)
	if !ok {
		// Неизвестное поле: fail-closed.
		return false
	}

	switch c.Operator {
	case OpBetween:
		if c.Value2 == nil {
			return false
		}
		if math.IsNaN(actual) || math.IsNaN(c.Value) || math.IsNaN(*c.Value2) {
			return false
		}
		return actual >= c.Value && actual <= *c.Value2

	case OpIn:
		// Требует массив значений.
		if !c.IsList {
			return false
		}
		return c.contains(actual)

	case OpNotIn:
		// Без массива условие считается выполненным.
		if !c.IsList {
			return true
		}
		return !c.contains(actual)

	default:
		return c.Operator.compare(actual, c.Value)
	}
}

// contains проверяет вхождение значения в список.
func (c Condition) contains(actual float64) bool {
	if math.IsNaN(actual) {
		return false
	}
	for _, v := range c.List {
		if actual == v {
			return true
		}
	}
	return false
}

// Clone создаёт копию условия.
func (c Condition) Clone() Condition {
	clone := c
	if c.Value2 != nil {
		v2 := *c.Value2
		clone.Value2 = &v2
	}
	if c.List != nil {
		clone.List = make([]float64, len(c.List))
		copy(clone.List, c.List)
	}
	return clone
}

// EvaluateAll вычисляет логическое И по списку условий.
// Пустой список истинен: правило без условий срабатывает всегда,
// ограничителями остаются cooldown и лимит срабатываний.
func EvaluateAll(conditions []Condition, s *signals.StudentSignals) bool {
	for _, c := range conditions {
		if !c.Evaluate(s) {
			return false
		}
	}
	return true
}
