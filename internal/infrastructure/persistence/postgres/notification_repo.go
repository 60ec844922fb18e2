package postgres

import (
	"context"
	"fmt"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// NUDGE LOG AND NOTIFICATION REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// NudgeLogRepository implements reward.NudgeLogRepository for PostgreSQL.
// The log is append-only.
type NudgeLogRepository struct {
	conn *Connection
}

// NewNudgeLogRepository creates a new NudgeLogRepository.
func NewNudgeLogRepository(conn *Connection) *NudgeLogRepository {
	return &NudgeLogRepository{conn: conn}
}

// Create appends one nudge log entry.
func (r *NudgeLogRepository) Create(ctx context.Context, log *reward.NudgeLog) error {
	query := `
		INSERT INTO nudge_logs (id, user_id, nudge_type, message, rule_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		log.ID,
		log.UserID,
		log.NudgeType,
		log.Message,
		nullIfEmpty(log.RuleID),
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create nudge log: %w", err)
	}

	return nil
}

// NotificationRepository implements reward.NotificationRepository for
// PostgreSQL.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

// Create stores a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *reward.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, kind, rule_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Kind,
		nullIfEmpty(n.RuleID),
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// MarkRead sets the read flag.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrNotificationNotFound
	}
	return nil
}
