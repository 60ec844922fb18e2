package reward

import (
	"time"

	"github.com/google/uuid"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
)

// BoxRewardType enumerates what a mystery box can contain.
type BoxRewardType string

const (
	BoxRewardCoins       BoxRewardType = "coins"
	BoxRewardScholarship BoxRewardType = "scholarship"
	BoxRewardBadge       BoxRewardType = "badge"
	BoxRewardCoupon      BoxRewardType = "coupon"
)

// BoxExpiry is how long a box stays openable after creation.
const BoxExpiry = 7 * 24 * time.Hour

// Roll tables. The reward is rolled once at creation; opening only reveals
// the stored value, it is never re-rolled.
var (
	boxRewardTypes = []BoxRewardType{
		BoxRewardCoins,
		BoxRewardScholarship,
		BoxRewardBadge,
		BoxRewardCoupon,
	}

	boxCoinAmounts = []int{25, 50, 100, 200}

	boxScholarshipPercents = []int{5, 10, 15}

	boxBadges = []string{"explorer", "night-owl", "perfectionist", "marathoner"}

	boxCoupons = []string{"COURSE10", "COURSE20", "MENTOR15"}
)

// MysteryBox is a deferred reward container. Both the reward type and the
// concrete value are fixed when the box is created.
type MysteryBox struct {
	// ID is the unique box identifier.
	ID string

	// UserID identifies the owner.
	UserID string

	// RewardType is the rolled content category.
	RewardType BoxRewardType

	// RewardAmount is the coin amount (coins) or discount percent
	// (scholarship). Zero for badge/coupon rewards.
	RewardAmount int

	// RewardLabel is the badge name or coupon code. Empty for numeric
	// rewards.
	RewardLabel string

	// RuleID references the rule that created the box.
	RuleID string

	// Opened is the bounded read-state flag; set once by Open.
	Opened bool

	// OpenedAt is when the box was opened.
	OpenedAt *time.Time

	// ExpiresAt is when the box stops being openable.
	ExpiresAt time.Time

	// CreatedAt is when the box was created.
	CreatedAt time.Time
}

// NewMysteryBox rolls a reward with the injected randomness source and
// creates an unopened box expiring in BoxExpiry.
func NewMysteryBox(userID, ruleID string, rnd shared.Rand, now time.Time) *MysteryBox {
	box := &MysteryBox{
		ID:         uuid.NewString(),
		UserID:     userID,
		RewardType: boxRewardTypes[rnd.Intn(len(boxRewardTypes))],
		RuleID:     ruleID,
		ExpiresAt:  now.Add(BoxExpiry),
		CreatedAt:  now,
	}

	switch box.RewardType {
	case BoxRewardCoins:
		box.RewardAmount = boxCoinAmounts[rnd.Intn(len(boxCoinAmounts))]
	case BoxRewardScholarship:
		box.RewardAmount = boxScholarshipPercents[rnd.Intn(len(boxScholarshipPercents))]
	case BoxRewardBadge:
		box.RewardLabel = boxBadges[rnd.Intn(len(boxBadges))]
	case BoxRewardCoupon:
		box.RewardLabel = boxCoupons[rnd.Intn(len(boxCoupons))]
	}

	return box
}

// IsExpired reports whether the box can no longer be opened.
func (b *MysteryBox) IsExpired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// Open reveals the stored reward. It fails on a second open and on an
// expired box; the stored reward is returned as-is, never re-rolled.
func (b *MysteryBox) Open(now time.Time) error {
	if b.Opened {
		return ErrBoxAlreadyOpened
	}
	if b.IsExpired(now) {
		return ErrBoxExpired
	}

	b.Opened = true
	b.OpenedAt = &now
	return nil
}
