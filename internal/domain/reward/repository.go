package reward

import "context"

// WalletRepository persists wallets and their ledger. Credit and Spend are
// atomic against the stored balance: concurrent grants compose instead of
// overwriting each other.
type WalletRepository interface {
	// Get returns the wallet for a user.
	// Returns ErrWalletNotFound when none exists.
	Get(ctx context.Context, userID string) (*Wallet, error)

	// Credit adds amount to the wallet, creating it when absent, and
	// appends one ledger transaction whose PostBalance is the balance
	// after the increment. amount must be positive.
	Credit(ctx context.Context, userID string, amount int, reason, ruleID string) (*Transaction, error)

	// Spend subtracts amount from the wallet and appends a debit
	// transaction. Returns ErrInsufficientBalance when the balance does
	// not cover amount. amount must be positive.
	Spend(ctx context.Context, userID string, amount int, reason string) (*Transaction, error)

	// Transactions returns the ledger for a user, newest first.
	Transactions(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}

// CardRepository persists motivation cards.
type CardRepository interface {
	// Create stores a new card.
	Create(ctx context.Context, card *Card) error

	// GetByPublicID returns a card by its shareable identifier.
	// Returns ErrCardNotFound when absent.
	GetByPublicID(ctx context.Context, publicID string) (*Card, error)

	// MarkViewed sets the viewed flag.
	MarkViewed(ctx context.Context, publicID string) error
}

// MysteryBoxRepository persists mystery boxes.
type MysteryBoxRepository interface {
	// Create stores a new unopened box.
	Create(ctx context.Context, box *MysteryBox) error

	// Get returns a box by ID.
	// Returns ErrBoxNotFound when absent.
	Get(ctx context.Context, id string) (*MysteryBox, error)

	// MarkOpened persists the opened state of a box.
	MarkOpened(ctx context.Context, box *MysteryBox) error

	// ListUnopened returns a user's unopened boxes, newest first.
	ListUnopened(ctx context.Context, userID string) ([]*MysteryBox, error)
}

// ScholarshipCatalog reads the platform-owned scholarship catalog.
type ScholarshipCatalog interface {
	// GetByID returns a scholarship by catalog ID.
	// Returns ErrScholarshipNotFound when absent or inactive.
	GetByID(ctx context.Context, id string) (*Scholarship, error)
}

// GrantRepository persists awarded scholarship grants.
type GrantRepository interface {
	// Create stores a new grant.
	Create(ctx context.Context, grant *Grant) error

	// ListForUser returns a user's grants, newest first.
	ListForUser(ctx context.Context, userID string) ([]*Grant, error)
}

// NudgeLogRepository persists generated nudges (append-only).
type NudgeLogRepository interface {
	Create(ctx context.Context, log *NudgeLog) error
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	// Create stores a new notification.
	Create(ctx context.Context, n *Notification) error

	// MarkRead sets the read flag.
	MarkRead(ctx context.Context, id string) error
}
