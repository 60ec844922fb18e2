// Package command contains write operations following CQRS pattern.
// Commands modify state and return structured results.
// Each command is a self-contained use case with its own request/response types.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bilimhub/bilim-motivation-engine/internal/application/query"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/trigger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE RULES COMMAND
// Прогоняет все активные правила для студента против одного замороженного
// снимка сигналов. Правила обрабатываются строго последовательно, по
// убыванию приоритета; взаимодействуют они только через журнал срабатываний.
// ══════════════════════════════════════════════════════════════════════════════

// Причины пропуска правила. Это часть контракта результата: вызывающая
// сторона различает их по точному тексту.
const (
	SkipScopeMismatch    = "scope mismatch"
	SkipCooldown         = "cooldown"
	SkipLimitReached     = "limit reached"
	SkipConditionsNotMet = "conditions not met"
)

// EvaluateRulesCommand содержит параметры прогона правил.
type EvaluateRulesCommand struct {
	// UserID - студент, для которого выполняется прогон.
	UserID string

	// CourseID - необязательный курс, задающий область прогона.
	CourseID string
}

// Validate проверяет корректность команды.
func (c *EvaluateRulesCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID cannot be empty")
	}
	return nil
}

// RuleOutcome - результат прогона одного правила.
type RuleOutcome struct {
	// RuleID - идентификатор правила.
	RuleID string `json:"rule_id"`

	// RuleName - человекочитаемое имя правила.
	RuleName string `json:"rule_name"`

	// Triggered - сработало ли правило.
	Triggered bool `json:"triggered"`

	// ActionsExecuted - результаты действий (только при срабатывании).
	ActionsExecuted []rule.ActionResult `json:"actions_executed,omitempty"`

	// Skipped - причина пропуска (только при Triggered == false).
	Skipped string `json:"skipped,omitempty"`
}

// EvaluateRulesResult - агрегированный результат прогона.
type EvaluateRulesResult struct {
	// UserID - студент прогона.
	UserID string `json:"user_id"`

	// CourseID - область прогона.
	CourseID string `json:"course_id,omitempty"`

	// Outcomes - результат каждого активного правила по порядку приоритета.
	Outcomes []RuleOutcome `json:"outcomes"`

	// TriggeredCount - сколько правил сработало.
	TriggeredCount int `json:"triggered_count"`

	// EvaluatedAt - время прогона.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// SignalCollector строит снимок сигналов студента.
type SignalCollector interface {
	Handle(ctx context.Context, q query.CollectSignalsQuery) (*signals.StudentSignals, error)
}

// ActionExecutor выполняет действия сработавшего правила. Реализация
// никогда не возвращает ошибку: сбои фиксируются в результатах действий.
type ActionExecutor interface {
	ExecuteAll(ctx context.Context, actions []rule.Action, snap *signals.StudentSignals, ruleID string) []rule.ActionResult
}

// EvaluateRulesHandler - оркестратор движка мотивации.
type EvaluateRulesHandler struct {
	rules     rule.Repository
	triggers  trigger.Repository
	collector SignalCollector
	executor  ActionExecutor
	events    shared.EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewEvaluateRulesHandler создаёт оркестратор.
func NewEvaluateRulesHandler(
	rules rule.Repository,
	triggers trigger.Repository,
	collector SignalCollector,
	executor ActionExecutor,
	events shared.EventPublisher,
	log *logger.Logger,
) *EvaluateRulesHandler {
	return &EvaluateRulesHandler{
		rules:     rules,
		triggers:  triggers,
		collector: collector,
		executor:  executor,
		events:    events,
		log:       log,
		now:       timeutil.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (h *EvaluateRulesHandler) WithClock(now func() time.Time) *EvaluateRulesHandler {
	h.now = now
	return h
}

// Handle выполняет прогон правил. Ошибки инфраструктуры (сбор сигналов,
// чтение каталога, журнал срабатываний) поднимаются наверх; движок сам
// ничего не ретраит. Сбои отдельных действий остаются в их результатах.
func (h *EvaluateRulesHandler) Handle(ctx context.Context, cmd EvaluateRulesCommand) (*EvaluateRulesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("engine", "Evaluate", shared.ErrValidation, err.Error(), err)
	}

	snap, err := h.collector.Handle(ctx, query.CollectSignalsQuery{
		UserID:   cmd.UserID,
		CourseID: cmd.CourseID,
	})
	if err != nil {
		return nil, shared.WrapError("engine", "Evaluate", shared.ErrExternalService, "failed to collect signals", err)
	}

	activeRules, err := h.rules.ListActive(ctx)
	if err != nil {
		return nil, shared.WrapError("engine", "Evaluate", shared.ErrExternalService, "failed to load active rules", err)
	}

	result := &EvaluateRulesResult{
		UserID:      cmd.UserID,
		CourseID:    cmd.CourseID,
		Outcomes:    make([]RuleOutcome, 0, len(activeRules)),
		EvaluatedAt: h.now(),
	}

	for _, r := range activeRules {
		outcome, err := h.evaluateRule(ctx, r, snap, cmd)
		if err != nil {
			return nil, err
		}
		if outcome.Triggered {
			result.TriggeredCount++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if h.log != nil {
		h.log.Info("evaluation completed",
			logger.UserID(cmd.UserID),
			logger.CourseID(cmd.CourseID),
			logger.Int("rules_evaluated", len(result.Outcomes)),
			logger.Int("rules_triggered", result.TriggeredCount),
		)
	}

	return result, nil
}

// evaluateRule прогоняет одно правило через все проверки. Проверки
// cooldown/limit и запись в журнал выполняются под блокировкой пары
// (правило, студент): параллельные прогоны не могут сработать дважды
// между проверкой и записью.
func (h *EvaluateRulesHandler) evaluateRule(ctx context.Context, r *rule.Rule, snap *signals.StudentSignals, cmd EvaluateRulesCommand) (RuleOutcome, error) {
	outcome := RuleOutcome{
		RuleID:   string(r.ID),
		RuleName: r.Name,
	}

	// Проверка области не трогает журнал, блокировка не нужна.
	if !r.AppliesTo(cmd.CourseID) {
		outcome.Skipped = SkipScopeMismatch
		return outcome, nil
	}

	err := h.triggers.WithRuleUserLock(ctx, r.ID, cmd.UserID, func(ctx context.Context, locked trigger.Repository) error {
		now := h.now()

		last, err := locked.LastForRuleUser(ctx, r.ID, cmd.UserID)
		if err != nil {
			return err
		}
		if last != nil && now.Sub(*last) < r.Cooldown() {
			outcome.Skipped = SkipCooldown
			return nil
		}

		if r.HasTriggerLimit() {
			count, err := locked.CountForRuleUser(ctx, r.ID, cmd.UserID)
			if err != nil {
				return err
			}
			if r.LimitReached(count) {
				outcome.Skipped = SkipLimitReached
				return nil
			}
		}

		if !rule.EvaluateAll(r.Conditions, snap) {
			outcome.Skipped = SkipConditionsNotMet
			return nil
		}

		results := h.executor.ExecuteAll(ctx, r.Actions, snap, string(r.ID))

		entry, err := trigger.NewLog(trigger.LogID(uuid.NewString()), r.ID, cmd.UserID, cmd.CourseID, *snap, results, now)
		if err != nil {
			return err
		}
		if err := locked.Append(ctx, entry); err != nil {
			return err
		}

		outcome.Triggered = true
		outcome.ActionsExecuted = results
		return nil
	})
	if err != nil {
		return outcome, shared.WrapError("engine", "Evaluate", shared.ErrExternalService, "trigger governor failed for rule "+string(r.ID), err)
	}

	if outcome.Triggered {
		h.publishTriggered(r, cmd)
	}
	return outcome, nil
}

func (h *EvaluateRulesHandler) publishTriggered(r *rule.Rule, cmd EvaluateRulesCommand) {
	if h.events == nil {
		return
	}
	event := shared.NewRuleTriggeredEvent(string(r.ID), r.Name, cmd.UserID, cmd.CourseID, len(r.Actions))
	if err := h.events.Publish(event); err != nil && h.log != nil {
		h.log.Warn("failed to publish rule triggered event",
			logger.RuleID(string(r.ID)),
			logger.Err(err),
		)
	}
}
