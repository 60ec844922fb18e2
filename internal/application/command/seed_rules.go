package command

import (
	"context"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEED RULES COMMAND
// Однократно наполняет пустой каталог стандартным набором правил.
// Идемпотентна: непустой каталог остаётся нетронутым.
// ══════════════════════════════════════════════════════════════════════════════

// SeedRulesResult сообщает, что сделал посев.
type SeedRulesResult struct {
	// Seeded - выполнялся ли посев (false для непустого каталога).
	Seeded bool `json:"seeded"`

	// RulesCreated - сколько правил добавлено.
	RulesCreated int `json:"rules_created"`
}

// SeedRulesHandler обрабатывает посев каталога при старте.
type SeedRulesHandler struct {
	rules rule.Repository
	log   *logger.Logger
}

// NewSeedRulesHandler создаёт обработчик посева.
func NewSeedRulesHandler(rules rule.Repository, log *logger.Logger) *SeedRulesHandler {
	return &SeedRulesHandler{rules: rules, log: log}
}

// Handle сеет стандартные правила, только если каталог пуст.
func (h *SeedRulesHandler) Handle(ctx context.Context) (*SeedRulesResult, error) {
	count, err := h.rules.Count(ctx)
	if err != nil {
		return nil, shared.WrapError("rule", "Seed", shared.ErrExternalService, "failed to count rules", err)
	}
	if count > 0 {
		return &SeedRulesResult{Seeded: false}, nil
	}

	created := 0
	for _, r := range rule.DefaultRules() {
		if err := h.rules.Create(ctx, r); err != nil {
			return nil, shared.WrapError("rule", "Seed", shared.ErrExternalService, "failed to seed rule "+string(r.ID), err)
		}
		created++
	}

	if h.log != nil {
		h.log.Info("default rule catalog seeded", logger.Int("rules_created", created))
	}

	return &SeedRulesResult{Seeded: true, RulesCreated: created}, nil
}
