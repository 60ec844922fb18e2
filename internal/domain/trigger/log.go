// Package trigger contains the append-only audit trail of rule firings.
// Cooldown and trigger-limit enforcement read exclusively from this log;
// rows are never mutated after insertion.
package trigger

import (
	"errors"
	"time"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// Domain errors for the trigger package.
var (
	ErrInvalidRuleID = errors.New("trigger: invalid rule id")
	ErrInvalidUserID = errors.New("trigger: invalid user id")
	ErrLogNotFound   = errors.New("trigger: log entry not found")
)

// LogID uniquely identifies one trigger log entry.
type LogID string

// Log records one successful match-and-dispatch of a rule for a user.
// The signals snapshot is frozen at evaluation time so the audit trail
// shows exactly what the rule matched against.
type Log struct {
	// ID is the unique identifier of this entry.
	ID LogID

	// RuleID is the rule that fired.
	RuleID rule.ID

	// UserID is the student the rule fired for.
	UserID string

	// CourseID is the course scope of the evaluation call, if any.
	CourseID string

	// Signals is the frozen snapshot the rule matched against.
	Signals signals.StudentSignals

	// Actions holds the per-action dispatch results, successes and
	// failures alike.
	Actions []rule.ActionResult

	// TriggeredAt is when the rule fired.
	TriggeredAt time.Time
}

// NewLog creates a trigger log entry with validation.
func NewLog(id LogID, ruleID rule.ID, userID, courseID string, snapshot signals.StudentSignals, actions []rule.ActionResult, triggeredAt time.Time) (*Log, error) {
	if !ruleID.IsValid() {
		return nil, ErrInvalidRuleID
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	return &Log{
		ID:          id,
		RuleID:      ruleID,
		UserID:      userID,
		CourseID:    courseID,
		Signals:     snapshot,
		Actions:     actions,
		TriggeredAt: triggeredAt,
	}, nil
}

// SucceededActions returns how many actions in this entry succeeded.
func (l *Log) SucceededActions() int {
	n := 0
	for _, a := range l.Actions {
		if a.Success {
			n++
		}
	}
	return n
}
