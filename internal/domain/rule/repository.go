package rule

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Реализация находится в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции каталога правил.
type Repository interface {
	// Create создаёт новое правило.
	// Возвращает ErrRuleAlreadyExists, если правило уже существует.
	Create(ctx context.Context, r *Rule) error

	// GetByID возвращает правило по ID.
	// Возвращает ErrRuleNotFound, если правило не найдено.
	GetByID(ctx context.Context, id ID) (*Rule, error)

	// Update обновляет правило.
	// Возвращает ErrRuleNotFound, если правило не найдено.
	Update(ctx context.Context, r *Rule) error

	// Deactivate выполняет мягкое удаление (isActive = false).
	// Возвращает ErrRuleNotFound, если правило не найдено.
	Deactivate(ctx context.Context, id ID) error

	// ListActive возвращает все активные правила по убыванию приоритета.
	// Правила с битыми списками условий или действий возвращаются с
	// пустым списком - деградация логируется реализацией.
	ListActive(ctx context.Context) ([]*Rule, error)

	// Count возвращает общее количество правил в каталоге,
	// включая деактивированные.
	Count(ctx context.Context) (int, error)
}
