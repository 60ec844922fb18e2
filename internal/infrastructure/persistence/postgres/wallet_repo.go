package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// WALLET REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// WalletRepository implements reward.WalletRepository for PostgreSQL.
// Balance changes are atomic increments against the stored row with the
// resulting balance read back via RETURNING, so concurrent grants compose
// instead of overwriting each other.
type WalletRepository struct {
	conn *Connection
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(conn *Connection) *WalletRepository {
	return &WalletRepository{conn: conn}
}

// Get returns the wallet for a user.
func (r *WalletRepository) Get(ctx context.Context, userID string) (*reward.Wallet, error) {
	query := `
		SELECT user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM coin_wallets
		WHERE user_id = $1
	`

	var w reward.Wallet
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&w.UserID,
		&w.Balance,
		&w.TotalEarned,
		&w.TotalSpent,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, reward.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &w, nil
}

// Credit adds amount atomically, creating the wallet when absent, and
// appends the ledger row inside the same transaction.
func (r *WalletRepository) Credit(ctx context.Context, userID string, amount int, reason, ruleID string) (*reward.Transaction, error) {
	if amount <= 0 {
		return nil, reward.ErrInvalidAmount
	}

	var tx *reward.Transaction
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(dbTx pgx.Tx) error {
		upsert := `
			INSERT INTO coin_wallets (user_id, balance, total_earned, total_spent)
			VALUES ($1, $2, $2, 0)
			ON CONFLICT (user_id) DO UPDATE
			SET balance = coin_wallets.balance + $2,
				total_earned = coin_wallets.total_earned + $2,
				updated_at = NOW()
			RETURNING balance
		`

		var postBalance int
		if err := dbTx.QueryRow(ctx, upsert, userID, amount).Scan(&postBalance); err != nil {
			return fmt.Errorf("failed to credit wallet: %w", err)
		}

		entry, err := appendLedgerRow(ctx, dbTx, userID, amount, postBalance, reason, ruleID)
		if err != nil {
			return err
		}
		tx = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// Spend subtracts amount atomically; the balance check and the decrement
// are one statement, so a concurrent spend cannot drive the balance
// negative.
func (r *WalletRepository) Spend(ctx context.Context, userID string, amount int, reason string) (*reward.Transaction, error) {
	if amount <= 0 {
		return nil, reward.ErrInvalidAmount
	}

	var tx *reward.Transaction
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(dbTx pgx.Tx) error {
		update := `
			UPDATE coin_wallets
			SET balance = balance - $2,
				total_spent = total_spent + $2,
				updated_at = NOW()
			WHERE user_id = $1 AND balance >= $2
			RETURNING balance
		`

		var postBalance int
		err := dbTx.QueryRow(ctx, update, userID, amount).Scan(&postBalance)
		if err != nil {
			if IsNoRows(err) {
				// Either no wallet or not enough coins.
				exists, checkErr := walletExists(ctx, dbTx, userID)
				if checkErr != nil {
					return checkErr
				}
				if !exists {
					return reward.ErrWalletNotFound
				}
				return reward.ErrInsufficientBalance
			}
			return fmt.Errorf("failed to spend from wallet: %w", err)
		}

		entry, err := appendLedgerRow(ctx, dbTx, userID, -amount, postBalance, reason, "")
		if err != nil {
			return err
		}
		tx = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// Transactions returns the ledger for a user, newest first.
func (r *WalletRepository) Transactions(ctx context.Context, userID string, limit int) ([]*reward.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, amount, post_balance, reason, rule_id, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*reward.Transaction
	for rows.Next() {
		var (
			t      reward.Transaction
			ruleID *string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.PostBalance, &t.Reason, &ruleID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if ruleID != nil {
			t.RuleID = *ruleID
		}
		txs = append(txs, &t)
	}

	return txs, rows.Err()
}

func appendLedgerRow(ctx context.Context, dbTx pgx.Tx, userID string, amount, postBalance int, reason, ruleID string) (*reward.Transaction, error) {
	entry := &reward.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		PostBalance: postBalance,
		Reason:      reason,
		RuleID:      ruleID,
		CreatedAt:   time.Now().UTC(),
	}

	insert := `
		INSERT INTO coin_transactions (id, user_id, amount, post_balance, reason, rule_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := dbTx.Exec(ctx, insert,
		entry.ID,
		entry.UserID,
		entry.Amount,
		entry.PostBalance,
		entry.Reason,
		nullIfEmpty(entry.RuleID),
		entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger row: %w", err)
	}

	return entry, nil
}

func walletExists(ctx context.Context, dbTx pgx.Tx, userID string) (bool, error) {
	var exists bool
	err := dbTx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coin_wallets WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet existence: %w", err)
	}
	return exists, nil
}
