package command

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE RULE COMMAND
// Добавляет правило в каталог. Условия и действия приходят уже типизированными:
// разбор сырого JSON - забота хранилища, а не каталога.
// ══════════════════════════════════════════════════════════════════════════════

// CreateRuleCommand содержит параметры нового правила.
type CreateRuleCommand struct {
	// ID - необязательный идентификатор; пустой генерируется автоматически.
	ID string

	// Name - человекочитаемое название.
	Name string

	// Type - категория правила.
	Type string

	// Conditions - условия срабатывания (AND).
	Conditions []rule.Condition

	// Actions - действия при срабатывании.
	Actions []rule.Action

	// Priority - приоритет проверки.
	Priority int

	// CooldownHours - период охлаждения; 0 означает значение по умолчанию.
	CooldownHours int

	// MaxTriggerCount - лимит срабатываний; nil - без лимита.
	MaxTriggerCount *int

	// IsGlobal - правило действует на всей платформе.
	IsGlobal bool

	// CourseID - привязка к курсу для не-глобальных правил.
	CourseID string
}

// Validate проверяет корректность команды.
func (c *CreateRuleCommand) Validate() error {
	if c.Name == "" {
		return errors.New("rule name cannot be empty")
	}
	return nil
}

// CreateRuleHandler обрабатывает создание правил каталога.
type CreateRuleHandler struct {
	rules rule.Repository
	log   *logger.Logger
}

// NewCreateRuleHandler создаёт обработчик.
func NewCreateRuleHandler(rules rule.Repository, log *logger.Logger) *CreateRuleHandler {
	return &CreateRuleHandler{rules: rules, log: log}
}

// Handle создаёт и сохраняет правило.
func (h *CreateRuleHandler) Handle(ctx context.Context, cmd CreateRuleCommand) (*rule.Rule, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("rule", "Create", shared.ErrValidation, err.Error(), err)
	}

	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}
	ruleType := rule.Type(cmd.Type)
	if cmd.Type == "" {
		ruleType = rule.TypeCustom
	}

	r, err := rule.NewRule(rule.NewRuleParams{
		ID:              rule.ID(id),
		Name:            cmd.Name,
		Type:            ruleType,
		Conditions:      cmd.Conditions,
		Actions:         cmd.Actions,
		Priority:        cmd.Priority,
		CooldownHours:   cmd.CooldownHours,
		MaxTriggerCount: cmd.MaxTriggerCount,
		IsGlobal:        cmd.IsGlobal,
		CourseID:        cmd.CourseID,
	})
	if err != nil {
		return nil, shared.WrapError("rule", "Create", shared.ErrValidation, "invalid rule definition", err)
	}

	if err := h.rules.Create(ctx, r); err != nil {
		if errors.Is(err, rule.ErrRuleAlreadyExists) {
			return nil, shared.WrapError("rule", "Create", shared.ErrAlreadyExists, "rule already exists", err)
		}
		return nil, shared.WrapError("rule", "Create", shared.ErrExternalService, "failed to store rule", err)
	}

	if h.log != nil {
		h.log.Info("rule created",
			logger.RuleID(string(r.ID)),
			logger.RuleName(r.Name),
		)
	}

	return r, nil
}
