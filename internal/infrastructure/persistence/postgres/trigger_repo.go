package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/trigger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER LOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// TriggerLogRepository implements trigger.Repository for PostgreSQL.
//
// WithRuleUserLock wraps the cooldown/limit check-then-append sequence in a
// transaction holding pg_advisory_xact_lock keyed on (rule, user), so two
// concurrent evaluations of the same pair serialize instead of both firing.
type TriggerLogRepository struct {
	conn *Connection
	q    Querier
}

// NewTriggerLogRepository creates a new TriggerLogRepository.
func NewTriggerLogRepository(conn *Connection) *TriggerLogRepository {
	return &TriggerLogRepository{conn: conn, q: conn}
}

// Append inserts one immutable log entry.
func (r *TriggerLogRepository) Append(ctx context.Context, l *trigger.Log) error {
	snapJSON, err := json.Marshal(l.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals snapshot: %w", err)
	}
	actionsJSON, err := json.Marshal(l.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		INSERT INTO trigger_logs (id, rule_id, user_id, course_id, signals, actions, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.q.Exec(ctx, query,
		string(l.ID),
		string(l.RuleID),
		l.UserID,
		nullIfEmpty(l.CourseID),
		snapJSON,
		actionsJSON,
		l.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append trigger log: %w", err)
	}

	return nil
}

// CountForRuleUser returns how many times a rule has fired for a user.
func (r *TriggerLogRepository) CountForRuleUser(ctx context.Context, ruleID rule.ID, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM trigger_logs WHERE rule_id = $1 AND user_id = $2`

	var count int
	if err := r.q.QueryRow(ctx, query, string(ruleID), userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trigger logs: %w", err)
	}
	return count, nil
}

// LastForRuleUser returns the most recent firing timestamp, nil when the
// rule never fired for that user.
func (r *TriggerLogRepository) LastForRuleUser(ctx context.Context, ruleID rule.ID, userID string) (*time.Time, error) {
	query := `
		SELECT triggered_at FROM trigger_logs
		WHERE rule_id = $1 AND user_id = $2
		ORDER BY triggered_at DESC
		LIMIT 1
	`

	var triggeredAt time.Time
	err := r.q.QueryRow(ctx, query, string(ruleID), userID).Scan(&triggeredAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last trigger log: %w", err)
	}
	return &triggeredAt, nil
}

// ListForUser returns the most recent entries for a user, newest first.
func (r *TriggerLogRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*trigger.Log, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, rule_id, user_id, course_id, signals, actions, triggered_at
		FROM trigger_logs
		WHERE user_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trigger logs: %w", err)
	}
	defer rows.Close()

	var logs []*trigger.Log
	for rows.Next() {
		l, err := scanTriggerLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger log: %w", err)
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

// WithRuleUserLock runs fn inside a transaction holding an advisory lock
// on the (rule, user) pair. The lock releases automatically at commit or
// rollback.
func (r *TriggerLogRepository) WithRuleUserLock(ctx context.Context, ruleID rule.ID, userID string, fn func(ctx context.Context, locked trigger.Repository) error) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, string(ruleID), userID)
		if err != nil {
			return fmt.Errorf("failed to acquire rule-user lock: %w", err)
		}

		locked := &TriggerLogRepository{conn: r.conn, q: tx}
		return fn(ctx, locked)
	})
}

func scanTriggerLog(row rowScanner) (*trigger.Log, error) {
	var (
		l           trigger.Log
		id, ruleID  string
		courseID    *string
		snapJSON    []byte
		actionsJSON []byte
	)

	err := row.Scan(&id, &ruleID, &l.UserID, &courseID, &snapJSON, &actionsJSON, &l.TriggeredAt)
	if err != nil {
		return nil, err
	}

	l.ID = trigger.LogID(id)
	l.RuleID = rule.ID(ruleID)
	if courseID != nil {
		l.CourseID = *courseID
	}

	var snap signals.StudentSignals
	if err := json.Unmarshal(snapJSON, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signals snapshot: %w", err)
	}
	l.Signals = snap

	if err := json.Unmarshal(actionsJSON, &l.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
	}

	return &l, nil
}
