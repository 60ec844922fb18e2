package postgres

import (
	"context"
	"fmt"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULE CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RuleRepository implements rule.Repository for PostgreSQL. Conditions and
// actions are stored as JSONB; a stored list that fails to parse degrades
// that rule to an empty list with a logged warning, never a failed read.
type RuleRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(conn *Connection, log *logger.Logger) *RuleRepository {
	return &RuleRepository{conn: conn, log: log}
}

const ruleColumns = `
	id, name, rule_type, conditions, actions, priority, cooldown_hours,
	max_trigger_count, is_global, course_id, is_active, created_at, updated_at
`

// Create stores a new rule.
func (r *RuleRepository) Create(ctx context.Context, rl *rule.Rule) error {
	conditions, err := rule.MarshalConditions(rl.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := rule.MarshalActions(rl.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO reward_rules (
			id, name, rule_type, conditions, actions, priority, cooldown_hours,
			max_trigger_count, is_global, course_id, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.conn.Exec(ctx, query,
		string(rl.ID),
		rl.Name,
		string(rl.Type),
		conditions,
		actions,
		rl.Priority,
		rl.CooldownHours,
		rl.MaxTriggerCount,
		rl.IsGlobal,
		nullIfEmpty(rl.CourseID),
		rl.IsActive,
		rl.CreatedAt,
		rl.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return rule.ErrRuleAlreadyExists
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetByID returns a rule by ID.
func (r *RuleRepository) GetByID(ctx context.Context, id rule.ID) (*rule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reward_rules WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	rl, err := r.scanRule(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, rule.ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rl, nil
}

// Update stores the current state of a rule.
func (r *RuleRepository) Update(ctx context.Context, rl *rule.Rule) error {
	conditions, err := rule.MarshalConditions(rl.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := rule.MarshalActions(rl.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		UPDATE reward_rules
		SET name = $2, rule_type = $3, conditions = $4, actions = $5,
			priority = $6, cooldown_hours = $7, max_trigger_count = $8,
			is_global = $9, course_id = $10, is_active = $11, updated_at = $12
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		string(rl.ID),
		rl.Name,
		string(rl.Type),
		conditions,
		actions,
		rl.Priority,
		rl.CooldownHours,
		rl.MaxTriggerCount,
		rl.IsGlobal,
		nullIfEmpty(rl.CourseID),
		rl.IsActive,
		rl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rule.ErrRuleNotFound
	}

	return nil
}

// Deactivate soft-deletes a rule.
func (r *RuleRepository) Deactivate(ctx context.Context, id rule.ID) error {
	query := `UPDATE reward_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query, string(id))
	if err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rule.ErrRuleNotFound
	}

	return nil
}

// ListActive returns all active rules ordered by priority descending.
func (r *RuleRepository) ListActive(ctx context.Context) ([]*rule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reward_rules WHERE is_active ORDER BY priority DESC, id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}
	defer rows.Close()

	var rules []*rule.Rule
	for rows.Next() {
		rl, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rl)
	}

	return rules, rows.Err()
}

// Count returns the total number of rules in the catalog, active or not.
func (r *RuleRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM reward_rules`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RuleRepository) scanRule(row rowScanner) (*rule.Rule, error) {
	var (
		rl             rule.Rule
		id, ruleType   string
		rawConditions  []byte
		rawActions     []byte
		courseID       *string
		maxTriggers    *int
	)

	err := row.Scan(
		&id,
		&rl.Name,
		&ruleType,
		&rawConditions,
		&rawActions,
		&rl.Priority,
		&rl.CooldownHours,
		&maxTriggers,
		&rl.IsGlobal,
		&courseID,
		&rl.IsActive,
		&rl.CreatedAt,
		&rl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rl.ID = rule.ID(id)
	rl.Type = rule.Type(ruleType)
	rl.MaxTriggerCount = maxTriggers
	if courseID != nil {
		rl.CourseID = *courseID
	}

	// Malformed stored lists degrade to empty lists with a warning;
	// one broken rule must not take the catalog down.
	rl.Conditions, err = rule.ParseConditions(rawConditions)
	if err != nil {
		r.warnDegraded(id, "conditions", err)
		rl.Conditions = nil
	}
	rl.Actions, err = rule.ParseActions(rawActions)
	if err != nil {
		r.warnDegraded(id, "actions", err)
		rl.Actions = nil
	}

	return &rl, nil
}

func (r *RuleRepository) warnDegraded(ruleID, field string, err error) {
	if r.log == nil {
		return
	}
	r.log.Warn("malformed stored rule "+field+", degrading to empty list",
		logger.RuleID(ruleID),
		logger.Err(err),
	)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
