package reward

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds as stored in the Kind field.
const (
	NotificationKindReward = "reward"
	NotificationKindNudge  = "nudge"
	NotificationKindSystem = "system"
)

// Notification is a plain user notification.
type Notification struct {
	// ID is the unique notification identifier.
	ID string

	// UserID identifies the recipient.
	UserID string

	// Title is the short headline.
	Title string

	// Message is the notification body.
	Message string

	// Kind tags the notification source ("reward", "nudge", "system").
	Kind string

	// RuleID references the originating rule, when applicable.
	RuleID string

	// Read is the bounded read-state flag.
	Read bool

	// CreatedAt is when the notification was written.
	CreatedAt time.Time
}

// NewNotification creates a notification.
func NewNotification(userID, title, message, kind, ruleID string, now time.Time) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		RuleID:    ruleID,
		CreatedAt: now,
	}
}

// MarkRead sets the read-state flag.
func (n *Notification) MarkRead() {
	n.Read = true
}

// NudgeLog records one generated motivational message. It exists apart
// from notifications so the platform can analyze which nudges were sent.
type NudgeLog struct {
	// ID is the unique log identifier.
	ID string

	// UserID identifies the recipient.
	UserID string

	// NudgeType is the selected message category.
	NudgeType string

	// Message is the final interpolated text.
	Message string

	// RuleID references the originating rule.
	RuleID string

	// CreatedAt is when the nudge was generated.
	CreatedAt time.Time
}

// NewNudgeLog creates a nudge log entry.
func NewNudgeLog(userID, nudgeType, message, ruleID string, now time.Time) *NudgeLog {
	return &NudgeLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		NudgeType: nudgeType,
		Message:   message,
		RuleID:    ruleID,
		CreatedAt: now,
	}
}
