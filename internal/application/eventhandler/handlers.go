// Package eventhandler wires domain events to their side effects.
// Handlers are registered on the event bus at startup; every handler is
// best-effort and must never fail the operation that emitted the event.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
)

// ScoreWriter pushes XP score increments into the leaderboard cache.
type ScoreWriter interface {
	IncrementScore(ctx context.Context, userID string, delta float64) error
}

// RuleTriggeredLogger writes an audit log line for every fired rule.
type RuleTriggeredLogger struct {
	log *logger.Logger
}

// NewRuleTriggeredLogger creates the audit logging handler.
func NewRuleTriggeredLogger(log *logger.Logger) *RuleTriggeredLogger {
	return &RuleTriggeredLogger{log: log}
}

// Register subscribes the handler on the bus.
func (h *RuleTriggeredLogger) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventRuleTriggered, h.handle)
}

func (h *RuleTriggeredLogger) handle(event shared.Event) error {
	e, ok := event.(shared.RuleTriggeredEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	h.log.Info("rule triggered",
		logger.RuleID(e.RuleID),
		logger.RuleName(e.RuleName),
		logger.UserID(e.UserID),
		logger.CourseID(e.CourseID),
		logger.Int("actions", e.ActionCount),
	)
	return nil
}

// CoinsGrantedScorer mirrors coin grants into the leaderboard cache so
// that percentile ranks reflect fresh rewards without a full resync.
type CoinsGrantedScorer struct {
	scores ScoreWriter
	log    *logger.Logger
}

// NewCoinsGrantedScorer creates the leaderboard scoring handler.
func NewCoinsGrantedScorer(scores ScoreWriter, log *logger.Logger) *CoinsGrantedScorer {
	return &CoinsGrantedScorer{scores: scores, log: log}
}

// Register subscribes the handler on the bus.
func (h *CoinsGrantedScorer) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventCoinsGranted, h.handle)
}

func (h *CoinsGrantedScorer) handle(event shared.Event) error {
	e, ok := event.(shared.CoinsGrantedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	// The cache update is enrichment: a failure is logged and swallowed
	// so the grant itself stays intact.
	if err := h.scores.IncrementScore(context.Background(), e.UserID, float64(e.Amount)); err != nil {
		if h.log != nil {
			h.log.Warn("failed to update leaderboard score",
				logger.UserID(e.UserID),
				logger.CoinsAmount(e.Amount),
				logger.Err(err),
			)
		}
	}
	return nil
}
