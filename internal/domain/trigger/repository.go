package trigger

import (
	"context"
	"time"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
)

// Repository persists the trigger audit log.
type Repository interface {
	// Append inserts one log entry. Entries are immutable afterwards.
	Append(ctx context.Context, l *Log) error

	// CountForRuleUser returns how many times a rule has fired for a user.
	CountForRuleUser(ctx context.Context, ruleID rule.ID, userID string) (int, error)

	// LastForRuleUser returns the timestamp of the most recent firing of a
	// rule for a user, or nil when it never fired.
	LastForRuleUser(ctx context.Context, ruleID rule.ID, userID string) (*time.Time, error)

	// ListForUser returns the most recent entries for a user, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]*Log, error)

	// WithRuleUserLock runs fn while holding an exclusive lock scoped to
	// (ruleID, userID). The repository passed to fn observes and writes
	// log entries under that lock, making the cooldown/limit check and the
	// subsequent Append one atomic unit. Concurrent evaluation calls for
	// the same pair serialize here instead of double-firing.
	WithRuleUserLock(ctx context.Context, ruleID rule.ID, userID string, fn func(ctx context.Context, locked Repository) error) error
}
