package rule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORED LIST PARSING
// Условия и действия хранятся в каталоге как сериализованный JSON.
// Разбор явный и терпимый: структурно битый JSON возвращается как
// диагностика, вызывающий логирует её и деградирует до пустого списка -
// одно испорченное правило не должно ронять всю эвалюацию.
// ══════════════════════════════════════════════════════════════════════════════

// conditionDTO - сырое представление условия в хранилище.
type conditionDTO struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
	Value2   json.RawMessage `json:"value2,omitempty"`
}

// actionDTO - сырое представление действия в хранилище.
type actionDTO struct {
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value"`
	Message string          `json:"message,omitempty"`
}

// ParseConditions разбирает сериализованный список условий.
// Пустой ввод и JSON null дают пустой список. Семантический мусор
// (неизвестное поле, нечисловое значение) сохраняется как есть и
// отсекается на эвалюации (fail-closed); ошибкой считается только
// структурно некорректный JSON.
func ParseConditions(raw []byte) ([]Condition, error) {
	if isEmptyJSON(raw) {
		return []Condition{}, nil
	}

	var dtos []conditionDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("rule: malformed conditions list: %w", err)
	}

	conditions := make([]Condition, 0, len(dtos))
	for _, dto := range dtos {
		c := Condition{
			Field:    signals.Field(dto.Field),
			Operator: Operator(dto.Operator),
		}

		value, list, isList := coerceValue(dto.Value)
		c.Value = value
		c.List = list
		c.IsList = isList

		if len(dto.Value2) > 0 && !isEmptyJSON(dto.Value2) {
			v2, _, v2IsList := coerceValue(dto.Value2)
			if !v2IsList {
				c.Value2 = &v2
			}
		}

		conditions = append(conditions, c)
	}

	return conditions, nil
}

// ParseActions разбирает сериализованный список действий.
// Терпимость та же, что и у ParseConditions: структурная ошибка -
// диагностика, всё остальное решается при выполнении действия.
func ParseActions(raw []byte) ([]Action, error) {
	if isEmptyJSON(raw) {
		return []Action{}, nil
	}

	var dtos []actionDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("rule: malformed actions list: %w", err)
	}

	actions := make([]Action, 0, len(dtos))
	for _, dto := range dtos {
		a := Action{
			Type:    ActionType(dto.Type),
			Message: dto.Message,
		}
		a.Value, a.Amount = coerceActionValue(dto.Value)
		actions = append(actions, a)
	}

	return actions, nil
}

// MarshalConditions сериализует условия для хранения.
func MarshalConditions(conditions []Condition) ([]byte, error) {
	dtos := make([]conditionDTO, 0, len(conditions))
	for _, c := range conditions {
		dto := conditionDTO{
			Field:    c.Field.String(),
			Operator: string(c.Operator),
		}

		if c.IsList {
			dto.Value = marshalNumber(0, c.List, true)
		} else {
			dto.Value = marshalNumber(c.Value, nil, false)
		}
		if c.Value2 != nil {
			dto.Value2 = marshalNumber(*c.Value2, nil, false)
		}

		dtos = append(dtos, dto)
	}
	return json.Marshal(dtos)
}

// MarshalActions сериализует действия для хранения.
func MarshalActions(actions []Action) ([]byte, error) {
	dtos := make([]actionDTO, 0, len(actions))
	for _, a := range actions {
		dto := actionDTO{
			Type:    string(a.Type),
			Message: a.Message,
		}
		if !math.IsNaN(a.Amount) && a.Type == ActionAddCoins {
			dto.Value = marshalNumber(a.Amount, nil, false)
		} else {
			dto.Value, _ = json.Marshal(a.Value)
		}
		dtos = append(dtos, dto)
	}
	return json.Marshal(dtos)
}

// ─────────────────────────────────────────────────────────────────────────────
// Coercion helpers
// ─────────────────────────────────────────────────────────────────────────────

// coerceValue приводит сырое JSON-значение к числу или списку чисел.
// Неприводимые значения становятся NaN и никогда не совпадают.
func coerceValue(raw json.RawMessage) (value float64, list []float64, isList bool) {
	if isEmptyJSON(raw) {
		return math.NaN(), nil, false
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return math.NaN(), nil, false
		}
		list = make([]float64, 0, len(items))
		for _, item := range items {
			n, _, nested := coerceValue(item)
			if !nested {
				list = append(list, n)
			}
		}
		return math.NaN(), list, true
	}

	return coerceScalar(trimmed), nil, false
}

// coerceScalar приводит скалярный JSON к числу.
func coerceScalar(raw []byte) float64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return parsed
		}
	}

	return math.NaN()
}

// coerceActionValue возвращает строковую и числовую формы значения действия.
func coerceActionValue(raw json.RawMessage) (string, float64) {
	if isEmptyJSON(raw) {
		return "", math.NaN()
	}

	trimmed := bytes.TrimSpace(raw)

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return s, math.NaN()
		}
		return s, parsed
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), n
	}

	return string(trimmed), math.NaN()
}

// isEmptyJSON проверяет, что значение отсутствует: пусто или JSON null.
func isEmptyJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// marshalNumber сериализует число или список чисел, заменяя NaN на null.
func marshalNumber(value float64, list []float64, isList bool) json.RawMessage {
	if isList {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			if math.IsNaN(v) {
				parts = append(parts, "null")
				continue
			}
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
		}
		return json.RawMessage("[" + strings.Join(parts, ",") + "]")
	}

	if math.IsNaN(value) {
		return json.RawMessage("null")
	}
	return json.RawMessage(strconv.FormatFloat(value, 'f', -1, 64))
}
