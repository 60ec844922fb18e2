package reward

import (
	"time"

	"github.com/google/uuid"
)

// GrantValidity is how long a scholarship redemption stays valid.
const GrantValidity = 30 * 24 * time.Hour

// Scholarship is a catalog entry describing a discount the platform
// offers. The catalog is owned by the main platform; the engine only
// reads it when awarding grants.
type Scholarship struct {
	// ID is the catalog identifier referenced by rule actions.
	ID string

	// Name is the human-readable title.
	Name string

	// DiscountPercent is the tuition discount (0-100).
	DiscountPercent int

	// IsActive marks whether the scholarship can still be granted.
	IsActive bool
}

// Grant is one awarded scholarship redemption.
type Grant struct {
	// ID is the unique grant identifier.
	ID string

	// ScholarshipID references the catalog entry.
	ScholarshipID string

	// UserID identifies the recipient.
	UserID string

	// RuleID references the rule that awarded the grant.
	RuleID string

	// Redeemed is the bounded read-state flag.
	Redeemed bool

	// GrantedAt is when the grant was awarded.
	GrantedAt time.Time

	// ExpiresAt is when the grant stops being redeemable.
	ExpiresAt time.Time
}

// NewGrant awards a scholarship redemption expiring in GrantValidity.
func NewGrant(scholarshipID, userID, ruleID string, now time.Time) *Grant {
	return &Grant{
		ID:            uuid.NewString(),
		ScholarshipID: scholarshipID,
		UserID:        userID,
		RuleID:        ruleID,
		GrantedAt:     now,
		ExpiresAt:     now.Add(GrantValidity),
	}
}

// IsExpired reports whether the grant can no longer be redeemed.
func (g *Grant) IsExpired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}
