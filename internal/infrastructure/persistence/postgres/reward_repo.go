package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// MOTIVATION CARD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CardRepository implements reward.CardRepository for PostgreSQL.
type CardRepository struct {
	conn *Connection
}

// NewCardRepository creates a new CardRepository.
func NewCardRepository(conn *Connection) *CardRepository {
	return &CardRepository{conn: conn}
}

// Create stores a new card.
func (r *CardRepository) Create(ctx context.Context, card *reward.Card) error {
	statsJSON, err := json.Marshal(card.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal card stats: %w", err)
	}

	query := `
		INSERT INTO motivation_cards (id, public_id, user_id, card_type, title, subtitle, stats, rule_id, viewed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.conn.Exec(ctx, query,
		card.ID,
		card.PublicID,
		card.UserID,
		string(card.Type),
		card.Title,
		card.Subtitle,
		statsJSON,
		nullIfEmpty(card.RuleID),
		card.Viewed,
		card.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// GetByPublicID returns a card by its shareable identifier.
func (r *CardRepository) GetByPublicID(ctx context.Context, publicID string) (*reward.Card, error) {
	query := `
		SELECT id, public_id, user_id, card_type, title, subtitle, stats, rule_id, viewed, created_at
		FROM motivation_cards
		WHERE public_id = $1
	`

	var (
		card      reward.Card
		cardType  string
		statsJSON []byte
		ruleID    *string
	)
	err := r.conn.QueryRow(ctx, query, publicID).Scan(
		&card.ID,
		&card.PublicID,
		&card.UserID,
		&cardType,
		&card.Title,
		&card.Subtitle,
		&statsJSON,
		&ruleID,
		&card.Viewed,
		&card.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, reward.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	card.Type = reward.CardType(cardType)
	if ruleID != nil {
		card.RuleID = *ruleID
	}
	if err := json.Unmarshal(statsJSON, &card.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card stats: %w", err)
	}

	return &card, nil
}

// MarkViewed sets the viewed flag.
func (r *CardRepository) MarkViewed(ctx context.Context, publicID string) error {
	tag, err := r.conn.Exec(ctx, `UPDATE motivation_cards SET viewed = TRUE WHERE public_id = $1`, publicID)
	if err != nil {
		return fmt.Errorf("failed to mark card viewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrCardNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MYSTERY BOX REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// MysteryBoxRepository implements reward.MysteryBoxRepository for PostgreSQL.
type MysteryBoxRepository struct {
	conn *Connection
}

// NewMysteryBoxRepository creates a new MysteryBoxRepository.
func NewMysteryBoxRepository(conn *Connection) *MysteryBoxRepository {
	return &MysteryBoxRepository{conn: conn}
}

const boxColumns = `id, user_id, reward_type, reward_amount, reward_label, rule_id, opened, opened_at, expires_at, created_at`

// Create stores a new unopened box.
func (r *MysteryBoxRepository) Create(ctx context.Context, box *reward.MysteryBox) error {
	query := `
		INSERT INTO mystery_boxes (` + boxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.Exec(ctx, query,
		box.ID,
		box.UserID,
		string(box.RewardType),
		box.RewardAmount,
		box.RewardLabel,
		nullIfEmpty(box.RuleID),
		box.Opened,
		box.OpenedAt,
		box.ExpiresAt,
		box.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create mystery box: %w", err)
	}

	return nil
}

// Get returns a box by ID.
func (r *MysteryBoxRepository) Get(ctx context.Context, id string) (*reward.MysteryBox, error) {
	query := `SELECT ` + boxColumns + ` FROM mystery_boxes WHERE id = $1`

	box, err := scanBox(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, reward.ErrBoxNotFound
		}
		return nil, fmt.Errorf("failed to get mystery box: %w", err)
	}
	return box, nil
}

// MarkOpened persists the opened state of a box.
func (r *MysteryBoxRepository) MarkOpened(ctx context.Context, box *reward.MysteryBox) error {
	query := `UPDATE mystery_boxes SET opened = TRUE, opened_at = $2 WHERE id = $1 AND NOT opened`

	tag, err := r.conn.Exec(ctx, query, box.ID, box.OpenedAt)
	if err != nil {
		return fmt.Errorf("failed to mark box opened: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrBoxAlreadyOpened
	}
	return nil
}

// ListUnopened returns a user's unopened boxes, newest first.
func (r *MysteryBoxRepository) ListUnopened(ctx context.Context, userID string) ([]*reward.MysteryBox, error) {
	query := `
		SELECT ` + boxColumns + ` FROM mystery_boxes
		WHERE user_id = $1 AND NOT opened
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unopened boxes: %w", err)
	}
	defer rows.Close()

	var boxes []*reward.MysteryBox
	for rows.Next() {
		box, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mystery box: %w", err)
		}
		boxes = append(boxes, box)
	}

	return boxes, rows.Err()
}

func scanBox(row rowScanner) (*reward.MysteryBox, error) {
	var (
		box        reward.MysteryBox
		rewardType string
		ruleID     *string
	)

	err := row.Scan(
		&box.ID,
		&box.UserID,
		&rewardType,
		&box.RewardAmount,
		&box.RewardLabel,
		&ruleID,
		&box.Opened,
		&box.OpenedAt,
		&box.ExpiresAt,
		&box.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	box.RewardType = reward.BoxRewardType(rewardType)
	if ruleID != nil {
		box.RuleID = *ruleID
	}

	return &box, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHOLARSHIP CATALOG AND GRANTS
// ══════════════════════════════════════════════════════════════════════════════

// ScholarshipRepository implements reward.ScholarshipCatalog and
// reward.GrantRepository for PostgreSQL.
type ScholarshipRepository struct {
	conn *Connection
}

// NewScholarshipRepository creates a new ScholarshipRepository.
func NewScholarshipRepository(conn *Connection) *ScholarshipRepository {
	return &ScholarshipRepository{conn: conn}
}

// GetByID returns an active scholarship by catalog ID.
func (r *ScholarshipRepository) GetByID(ctx context.Context, id string) (*reward.Scholarship, error) {
	query := `
		SELECT id, name, discount_percent, is_active
		FROM scholarships
		WHERE id = $1 AND is_active
	`

	var s reward.Scholarship
	err := r.conn.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.DiscountPercent, &s.IsActive)
	if err != nil {
		if IsNoRows(err) {
			return nil, reward.ErrScholarshipNotFound
		}
		return nil, fmt.Errorf("failed to get scholarship: %w", err)
	}

	return &s, nil
}

// Create stores a new grant.
func (r *ScholarshipRepository) Create(ctx context.Context, grant *reward.Grant) error {
	query := `
		INSERT INTO scholarship_grants (id, scholarship_id, user_id, rule_id, redeemed, granted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		grant.ID,
		grant.ScholarshipID,
		grant.UserID,
		nullIfEmpty(grant.RuleID),
		grant.Redeemed,
		grant.GrantedAt,
		grant.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scholarship grant: %w", err)
	}

	return nil
}

// ListForUser returns a user's grants, newest first.
func (r *ScholarshipRepository) ListForUser(ctx context.Context, userID string) ([]*reward.Grant, error) {
	query := `
		SELECT id, scholarship_id, user_id, rule_id, redeemed, granted_at, expires_at
		FROM scholarship_grants
		WHERE user_id = $1
		ORDER BY granted_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*reward.Grant
	for rows.Next() {
		var (
			g      reward.Grant
			ruleID *string
		)
		if err := rows.Scan(&g.ID, &g.ScholarshipID, &g.UserID, &ruleID, &g.Redeemed, &g.GrantedAt, &g.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if ruleID != nil {
			g.RuleID = *ruleID
		}
		grants = append(grants, &g)
	}

	return grants, rows.Err()
}
