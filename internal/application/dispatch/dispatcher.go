// Package dispatch executes reward and messaging actions for triggered
// rules. Actions are independent and non-transactional with respect to
// each other: a failed action is reported in its own result and never
// aborts its siblings.
package dispatch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bilimhub/bilim-motivation-engine/internal/application/nudge"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTION DISPATCHER
// Выполняет действия сработавшего правила. Никогда не возвращает ошибку и
// не паникует: любой внутренний сбой фиксируется в результате действия.
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher выполняет действия правил против хранилищ наград.
type Dispatcher struct {
	wallets       reward.WalletRepository
	cards         reward.CardRepository
	boxes         reward.MysteryBoxRepository
	scholarships  reward.ScholarshipCatalog
	grants        reward.GrantRepository
	nudgeLogs     reward.NudgeLogRepository
	notifications reward.NotificationRepository
	generator     *nudge.Generator
	rnd           shared.Rand
	events        shared.EventPublisher
	log           *logger.Logger
	now           func() time.Time
}

// Deps перечисляет зависимости диспетчера.
type Deps struct {
	Wallets       reward.WalletRepository
	Cards         reward.CardRepository
	Boxes         reward.MysteryBoxRepository
	Scholarships  reward.ScholarshipCatalog
	Grants        reward.GrantRepository
	NudgeLogs     reward.NudgeLogRepository
	Notifications reward.NotificationRepository
	Generator     *nudge.Generator
	Rand          shared.Rand
	Events        shared.EventPublisher
	Logger        *logger.Logger
}

// NewDispatcher создаёт диспетчер действий.
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{
		wallets:       deps.Wallets,
		cards:         deps.Cards,
		boxes:         deps.Boxes,
		scholarships:  deps.Scholarships,
		grants:        deps.Grants,
		nudgeLogs:     deps.NudgeLogs,
		notifications: deps.Notifications,
		generator:     deps.Generator,
		rnd:           deps.Rand,
		events:        deps.Events,
		log:           deps.Logger,
		now:           timeutil.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// ExecuteAll выполняет все действия правила по порядку и возвращает
// результат каждого. Сбой одного действия не прерывает остальные.
func (d *Dispatcher) ExecuteAll(ctx context.Context, actions []rule.Action, snap *signals.StudentSignals, ruleID string) []rule.ActionResult {
	results := make([]rule.ActionResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, d.Execute(ctx, a, snap, ruleID))
	}
	return results
}

// Execute выполняет одно действие. Паника внутри действия перехватывается
// и превращается в неуспешный результат.
func (d *Dispatcher) Execute(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) (result rule.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = rule.Failed(action.Type, fmt.Sprintf("action panicked: %v", r), d.now())
			if d.log != nil {
				d.log.Error("action panicked",
					logger.ActionType(string(action.Type)),
					logger.RuleID(ruleID),
					logger.UserID(snap.UserID),
					logger.String("panic", fmt.Sprintf("%v", r)),
				)
			}
		}
	}()

	switch action.Type {
	case rule.ActionAddCoins:
		result = d.addCoins(ctx, action, snap, ruleID)
	case rule.ActionGenerateCard:
		result = d.generateCard(ctx, action, snap, ruleID)
	case rule.ActionAwardScholarship:
		result = d.awardScholarship(ctx, action, snap, ruleID)
	case rule.ActionCreateMysteryBox:
		result = d.createMysteryBox(ctx, action, snap, ruleID)
	case rule.ActionSendNudge:
		result = d.sendNudge(ctx, action, snap, ruleID)
	case rule.ActionSendNotification:
		result = d.sendNotification(ctx, action, snap, ruleID)
	default:
		result = rule.Failed(action.Type, fmt.Sprintf("Unknown action type: %s", action.Type), d.now())
	}

	if !result.Success && d.log != nil {
		d.log.Warn("action failed",
			logger.ActionType(string(action.Type)),
			logger.RuleID(ruleID),
			logger.UserID(snap.UserID),
			logger.String("error", result.Error),
		)
	}
	return result
}

// ─────────────────────────────────────────────────────────────────────────────
// add_coins
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) addCoins(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) rule.ActionResult {
	if math.IsNaN(action.Amount) || action.Amount <= 0 {
		return rule.Failed(action.Type, fmt.Sprintf("invalid coin amount: %q", action.Value), d.now())
	}
	amount := int(math.Round(action.Amount))

	tx, err := d.wallets.Credit(ctx, snap.UserID, amount, "rule_reward", ruleID)
	if err != nil {
		return rule.Failed(action.Type, err.Error(), d.now())
	}

	d.publish(shared.NewCoinsGrantedEvent(snap.UserID, amount, tx.PostBalance, tx.Reason, ruleID))

	return rule.Succeeded(action.Type, map[string]any{
		"amount":         amount,
		"balance":        tx.PostBalance,
		"transaction_id": tx.ID,
	}, d.now())
}

// ─────────────────────────────────────────────────────────────────────────────
// generate_card
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) generateCard(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) rule.ActionResult {
	card := reward.NewCard(snap.UserID, reward.CardType(action.Value), action.Message, snap, ruleID, d.now())

	if err := d.cards.Create(ctx, card); err != nil {
		return rule.Failed(action.Type, err.Error(), d.now())
	}

	d.publish(shared.NewCardGeneratedEvent(snap.UserID, card.PublicID, string(card.Type), ruleID))

	return rule.Succeeded(action.Type, map[string]any{
		"card_id":   card.PublicID,
		"card_type": string(card.Type),
		"title":     card.Title,
	}, d.now())
}

// ─────────────────────────────────────────────────────────────────────────────
// award_scholarship
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) awardScholarship(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) rule.ActionResult {
	scholarship, err := d.scholarships.GetByID(ctx, action.Value)
	if err != nil {
		return rule.Failed(action.Type, fmt.Sprintf("scholarship %q: %v", action.Value, err), d.now())
	}

	grant := reward.NewGrant(scholarship.ID, snap.UserID, ruleID, d.now())
	if err := d.grants.Create(ctx, grant); err != nil {
		return rule.Failed(action.Type, err.Error(), d.now())
	}

	return rule.Succeeded(action.Type, map[string]any{
		"grant_id":         grant.ID,
		"scholarship_id":   scholarship.ID,
		"discount_percent": scholarship.DiscountPercent,
		"expires_at":       grant.ExpiresAt,
	}, d.now())
}

// ─────────────────────────────────────────────────────────────────────────────
// create_mystery_box
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) createMysteryBox(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) rule.ActionResult {
	box := reward.NewMysteryBox(snap.UserID, ruleID, d.rnd, d.now())

	if err := d.boxes.Create(ctx, box); err != nil {
		return rule.Failed(action.Type, err.Error(), d.now())
	}

	// Содержимое коробки не раскрывается до открытия.
	return rule.Succeeded(action.Type, map[string]any{
		"box_id":     box.ID,
		"expires_at": box.ExpiresAt,
	}, d.now())
}

// ─────────────────────────────────────────────────────────────────────────────
// send_nudge
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) sendNudge(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) rule.ActionResult {
	nudgeType := nudge.Type(action.Value)
	if action.Value == "" {
		nudgeType = d.generator.SelectType(snap)
	}

	text := d.generator.Generate(nudgeType, snap, action.Message)
	now := d.now()

	// Сообщение пишется дважды: в журнал для аналитики и в уведомления
	// для показа студенту. Текст обязан совпадать.
	entry := reward.NewNudgeLog(snap.UserID, string(nudgeType), text, ruleID, now)
	if err := d.nudgeLogs.Create(ctx, entry); err != nil {
		return rule.Failed(action.Type, err.Error(), now)
	}

	n := reward.NewNotification(snap.UserID, "Bilim", text, reward.NotificationKindNudge, ruleID, now)
	if err := d.notifications.Create(ctx, n); err != nil {
		return rule.Failed(action.Type, err.Error(), now)
	}

	return rule.Succeeded(action.Type, map[string]any{
		"nudge_type": string(nudgeType),
		"message":    text,
	}, now)
}

// ─────────────────────────────────────────────────────────────────────────────
// send_notification
// ─────────────────────────────────────────────────────────────────────────────

func (d *Dispatcher) sendNotification(ctx context.Context, action rule.Action, snap *signals.StudentSignals, ruleID string) rule.ActionResult {
	message := action.Message
	if message == "" {
		message = action.Value
	}
	if message == "" {
		return rule.Failed(action.Type, "notification message is empty", d.now())
	}

	n := reward.NewNotification(snap.UserID, "Bilim", message, reward.NotificationKindReward, ruleID, d.now())
	if err := d.notifications.Create(ctx, n); err != nil {
		return rule.Failed(action.Type, err.Error(), d.now())
	}

	return rule.Succeeded(action.Type, map[string]any{
		"notification_id": n.ID,
	}, d.now())
}

// publish отправляет событие, если шина подключена. Ошибки публикации
// логируются и не влияют на результат действия.
func (d *Dispatcher) publish(event shared.Event) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(event); err != nil && d.log != nil {
		d.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}
