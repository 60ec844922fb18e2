package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
	"github.com/bilimhub/bilim-motivation-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN MYSTERY BOX COMMAND
// Открывает коробку и применяет зафиксированную при создании награду.
// Содержимое никогда не переигрывается: открытие только раскрывает его.
// ══════════════════════════════════════════════════════════════════════════════

// ErrBoxNotOwned возвращается при попытке открыть чужую коробку.
var ErrBoxNotOwned = errors.New("mystery box belongs to another user")

// OpenBoxCommand содержит параметры открытия.
type OpenBoxCommand struct {
	// UserID - студент, открывающий коробку.
	UserID string

	// BoxID - идентификатор коробки.
	BoxID string
}

// Validate проверяет корректность команды.
func (c *OpenBoxCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID cannot be empty")
	}
	if c.BoxID == "" {
		return errors.New("box ID cannot be empty")
	}
	return nil
}

// OpenBoxResult - раскрытое содержимое коробки.
type OpenBoxResult struct {
	// RewardType - категория награды.
	RewardType string `json:"reward_type"`

	// RewardAmount - числовое значение (монеты или процент скидки).
	RewardAmount int `json:"reward_amount,omitempty"`

	// RewardLabel - имя бейджа или код купона.
	RewardLabel string `json:"reward_label,omitempty"`

	// NewBalance - баланс кошелька после начисления (только для монет).
	NewBalance int `json:"new_balance,omitempty"`
}

// OpenBoxHandler обрабатывает открытие загадочных коробок.
type OpenBoxHandler struct {
	boxes   reward.MysteryBoxRepository
	wallets reward.WalletRepository
	events  shared.EventPublisher
	log     *logger.Logger
	now     func() time.Time
}

// NewOpenBoxHandler создаёт обработчик открытия коробок.
func NewOpenBoxHandler(boxes reward.MysteryBoxRepository, wallets reward.WalletRepository, events shared.EventPublisher, log *logger.Logger) *OpenBoxHandler {
	return &OpenBoxHandler{
		boxes:   boxes,
		wallets: wallets,
		events:  events,
		log:     log,
		now:     timeutil.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (h *OpenBoxHandler) WithClock(now func() time.Time) *OpenBoxHandler {
	h.now = now
	return h
}

// Handle открывает коробку. Монетная награда сразу зачисляется в кошелёк;
// остальные категории раскрываются и применяются платформой отдельно.
func (h *OpenBoxHandler) Handle(ctx context.Context, cmd OpenBoxCommand) (*OpenBoxResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("reward", "OpenBox", shared.ErrValidation, err.Error(), err)
	}

	box, err := h.boxes.Get(ctx, cmd.BoxID)
	if err != nil {
		return nil, shared.WrapError("reward", "OpenBox", shared.ErrNotFound, "box not found", err)
	}
	if box.UserID != cmd.UserID {
		return nil, shared.WrapError("reward", "OpenBox", shared.ErrInvalidInput, ErrBoxNotOwned.Error(), ErrBoxNotOwned)
	}

	if err := box.Open(h.now()); err != nil {
		return nil, shared.WrapError("reward", "OpenBox", shared.ErrInvalidState, "cannot open box", err)
	}
	if err := h.boxes.MarkOpened(ctx, box); err != nil {
		return nil, shared.WrapError("reward", "OpenBox", shared.ErrExternalService, "failed to persist opened box", err)
	}

	result := &OpenBoxResult{
		RewardType:   string(box.RewardType),
		RewardAmount: box.RewardAmount,
		RewardLabel:  box.RewardLabel,
	}

	if box.RewardType == reward.BoxRewardCoins {
		tx, err := h.wallets.Credit(ctx, cmd.UserID, box.RewardAmount, "mystery_box", box.RuleID)
		if err != nil {
			return nil, shared.WrapError("reward", "OpenBox", shared.ErrExternalService, "failed to credit box coins", err)
		}
		result.NewBalance = tx.PostBalance
	}

	h.publishOpened(box)
	return result, nil
}

func (h *OpenBoxHandler) publishOpened(box *reward.MysteryBox) {
	if h.events == nil {
		return
	}
	value := box.RewardLabel
	if value == "" {
		value = fmt.Sprintf("%d", box.RewardAmount)
	}
	event := shared.NewMysteryBoxOpenedEvent(box.UserID, box.ID, string(box.RewardType), value)
	if err := h.events.Publish(event); err != nil && h.log != nil {
		h.log.Warn("failed to publish box opened event",
			logger.UserID(box.UserID),
			logger.Err(err),
		)
	}
}
