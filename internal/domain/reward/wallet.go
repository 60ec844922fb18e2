// Package reward contains the reward artifacts the dispatcher creates:
// coin wallets with an append-only ledger, motivation cards, scholarship
// grants, mystery boxes, nudge logs and notifications. Artifacts are
// immutable after creation except for bounded read-state flags.
package reward

import (
	"errors"
	"time"
)

// Domain errors for the reward package.
var (
	ErrInvalidAmount        = errors.New("reward: amount must be positive")
	ErrInsufficientBalance  = errors.New("reward: insufficient wallet balance")
	ErrWalletNotFound       = errors.New("reward: wallet not found")
	ErrCardNotFound         = errors.New("reward: card not found")
	ErrBoxNotFound          = errors.New("reward: mystery box not found")
	ErrBoxAlreadyOpened     = errors.New("reward: mystery box already opened")
	ErrBoxExpired           = errors.New("reward: mystery box expired")
	ErrScholarshipNotFound  = errors.New("reward: scholarship not found")
	ErrNotificationNotFound = errors.New("reward: notification not found")
)

// Wallet holds a student's coin balance together with lifetime totals.
// Balance changes are atomic increments backed by ledger transactions;
// the running totals are monotonic and never overwritten.
type Wallet struct {
	// UserID identifies the owner. One wallet per student.
	UserID string

	// Balance is the spendable coin balance.
	Balance int

	// TotalEarned is the lifetime sum of credits.
	TotalEarned int

	// TotalSpent is the lifetime sum of debits.
	TotalSpent int

	// CreatedAt is when the wallet was first created.
	CreatedAt time.Time

	// UpdatedAt is the time of the last balance change.
	UpdatedAt time.Time
}

// Transaction is one append-only ledger entry. PostBalance records the
// wallet balance immediately after the entry was applied, so every credit
// is verifiable against the prior balance.
type Transaction struct {
	// ID is the unique transaction identifier.
	ID string

	// UserID identifies the wallet owner.
	UserID string

	// Amount is positive for credits, negative for debits.
	Amount int

	// PostBalance is the wallet balance after applying Amount.
	PostBalance int

	// Reason describes the source of the entry ("rule_reward",
	// "mystery_box", "store_purchase").
	Reason string

	// RuleID references the rule that granted the credit, when applicable.
	RuleID string

	// CreatedAt is when the entry was appended.
	CreatedAt time.Time
}

// IsCredit reports whether the transaction added coins.
func (t Transaction) IsCredit() bool {
	return t.Amount > 0
}
