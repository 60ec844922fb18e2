package rule

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// ACTION
// Действия выполняются диспетчером при срабатывании правила. Каждое действие
// изолировано: ошибка одного не прерывает остальные.
// ══════════════════════════════════════════════════════════════════════════════

// ActionType определяет тип действия награды или поддержки.
type ActionType string

const (
	// ActionAddCoins - начислить монеты на кошелёк студента.
	ActionAddCoins ActionType = "add_coins"

	// ActionGenerateCard - создать мотивационную карточку.
	ActionGenerateCard ActionType = "generate_card"

	// ActionAwardScholarship - выдать грант на скидку.
	ActionAwardScholarship ActionType = "award_scholarship"

	// ActionCreateMysteryBox - создать загадочную коробку.
	ActionCreateMysteryBox ActionType = "create_mystery_box"

	// ActionSendNudge - отправить мотивационное сообщение.
	ActionSendNudge ActionType = "send_nudge"

	// ActionSendNotification - отправить обычное уведомление.
	ActionSendNotification ActionType = "send_notification"
)

// IsValid проверяет корректность типа действия.
func (at ActionType) IsValid() bool {
	switch at {
	case ActionAddCoins, ActionGenerateCard, ActionAwardScholarship,
		ActionCreateMysteryBox, ActionSendNudge, ActionSendNotification:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа.
func (at ActionType) String() string {
	return string(at)
}

// Action представляет одно действие правила.
type Action struct {
	// Type - тип действия.
	Type ActionType

	// Value - строковое значение действия: тип карточки, ID гранта,
	// тип сообщения. Для add_coins содержит исходный текст значения.
	Value string

	// Amount - числовое значение действия (сумма монет).
	// NaN, если значение нечисловое.
	Amount float64

	// Message - необязательный текст, переопределяющий шаблон.
	Message string
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTION RESULT
// ══════════════════════════════════════════════════════════════════════════════

// ActionResult содержит результат выполнения одного действия.
// Ошибки выполнения не поднимаются наверх - они фиксируются здесь,
// и диспетчер продолжает со следующим действием.
type ActionResult struct {
	// ActionType - тип выполненного действия.
	ActionType ActionType `json:"action_type"`

	// Success - действие выполнено успешно.
	Success bool `json:"success"`

	// Details - детали результата (ID созданных сущностей, суммы).
	Details map[string]any `json:"details,omitempty"`

	// Error - текст ошибки при Success == false.
	Error string `json:"error,omitempty"`

	// ExecutedAt - время выполнения.
	ExecutedAt time.Time `json:"executed_at"`
}

// Failed создаёт результат неуспешного действия.
func Failed(actionType ActionType, errText string, now time.Time) ActionResult {
	return ActionResult{
		ActionType: actionType,
		Success:    false,
		Error:      errText,
		ExecutedAt: now,
	}
}

// Succeeded создаёт результат успешного действия.
func Succeeded(actionType ActionType, details map[string]any, now time.Time) ActionResult {
	return ActionResult{
		ActionType: actionType,
		Success:    true,
		Details:    details,
		ExecutedAt: now,
	}
}
