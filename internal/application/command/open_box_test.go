package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
)

type fakeBoxRepo struct {
	boxes map[string]*reward.MysteryBox
}

func newFakeBoxRepo() *fakeBoxRepo {
	return &fakeBoxRepo{boxes: make(map[string]*reward.MysteryBox)}
}

func (f *fakeBoxRepo) Create(_ context.Context, box *reward.MysteryBox) error {
	f.boxes[box.ID] = box
	return nil
}

func (f *fakeBoxRepo) Get(_ context.Context, id string) (*reward.MysteryBox, error) {
	box, ok := f.boxes[id]
	if !ok {
		return nil, reward.ErrBoxNotFound
	}
	copied := *box
	return &copied, nil
}

func (f *fakeBoxRepo) MarkOpened(_ context.Context, box *reward.MysteryBox) error {
	f.boxes[box.ID] = box
	return nil
}

func (f *fakeBoxRepo) ListUnopened(_ context.Context, userID string) ([]*reward.MysteryBox, error) {
	var out []*reward.MysteryBox
	for _, b := range f.boxes {
		if b.UserID == userID && !b.Opened {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeWalletRepo struct {
	balances map[string]int
	ledger   []*reward.Transaction
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{balances: make(map[string]int)}
}

func (f *fakeWalletRepo) Get(_ context.Context, userID string) (*reward.Wallet, error) {
	balance, ok := f.balances[userID]
	if !ok {
		return nil, reward.ErrWalletNotFound
	}
	return &reward.Wallet{UserID: userID, Balance: balance}, nil
}

func (f *fakeWalletRepo) Credit(_ context.Context, userID string, amount int, reason, ruleID string) (*reward.Transaction, error) {
	if amount <= 0 {
		return nil, reward.ErrInvalidAmount
	}
	f.balances[userID] += amount
	tx := &reward.Transaction{UserID: userID, Amount: amount, PostBalance: f.balances[userID], Reason: reason, RuleID: ruleID}
	f.ledger = append(f.ledger, tx)
	return tx, nil
}

func (f *fakeWalletRepo) Spend(_ context.Context, userID string, amount int, reason string) (*reward.Transaction, error) {
	if f.balances[userID] < amount {
		return nil, reward.ErrInsufficientBalance
	}
	f.balances[userID] -= amount
	tx := &reward.Transaction{UserID: userID, Amount: -amount, PostBalance: f.balances[userID], Reason: reason}
	f.ledger = append(f.ledger, tx)
	return tx, nil
}

func (f *fakeWalletRepo) Transactions(_ context.Context, userID string, _ int) ([]*reward.Transaction, error) {
	var out []*reward.Transaction
	for _, tx := range f.ledger {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// seedForCoins возвращает seed, при котором выпадает монетная награда.
func seedForCoins(t *testing.T, now time.Time) (int64, *reward.MysteryBox) {
	t.Helper()
	for seed := int64(0); seed < 200; seed++ {
		box := reward.NewMysteryBox("user-1", "rule-1", shared.NewSeededRand(seed), now)
		if box.RewardType == reward.BoxRewardCoins {
			return seed, box
		}
	}
	t.Fatal("no coin seed found")
	return 0, nil
}

func TestOpenBox_CoinsCreditedToWallet(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, box := seedForCoins(t, now)

	boxes := newFakeBoxRepo()
	wallets := newFakeWalletRepo()
	require.NoError(t, boxes.Create(context.Background(), box))

	h := NewOpenBoxHandler(boxes, wallets, nil, nil).
		WithClock(func() time.Time { return now.Add(time.Hour) })

	result, err := h.Handle(context.Background(), OpenBoxCommand{UserID: "user-1", BoxID: box.ID})
	require.NoError(t, err)

	assert.Equal(t, string(reward.BoxRewardCoins), result.RewardType)
	assert.Equal(t, box.RewardAmount, result.RewardAmount)
	assert.Equal(t, box.RewardAmount, result.NewBalance)
	assert.Equal(t, box.RewardAmount, wallets.balances["user-1"])

	require.Len(t, wallets.ledger, 1)
	assert.Equal(t, "mystery_box", wallets.ledger[0].Reason)
	assert.Equal(t, "rule-1", wallets.ledger[0].RuleID)

	assert.True(t, boxes.boxes[box.ID].Opened)
}

func TestOpenBox_SecondOpenFails(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	box := reward.NewMysteryBox("user-1", "rule-1", shared.NewSeededRand(1), now)

	boxes := newFakeBoxRepo()
	require.NoError(t, boxes.Create(context.Background(), box))

	h := NewOpenBoxHandler(boxes, newFakeWalletRepo(), nil, nil).
		WithClock(func() time.Time { return now.Add(time.Hour) })

	cmd := OpenBoxCommand{UserID: "user-1", BoxID: box.ID}
	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, reward.ErrBoxAlreadyOpened)
}

func TestOpenBox_ExpiredBox(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	box := reward.NewMysteryBox("user-1", "rule-1", shared.NewSeededRand(1), now)

	boxes := newFakeBoxRepo()
	require.NoError(t, boxes.Create(context.Background(), box))

	h := NewOpenBoxHandler(boxes, newFakeWalletRepo(), nil, nil).
		WithClock(func() time.Time { return now.Add(reward.BoxExpiry + time.Hour) })

	_, err := h.Handle(context.Background(), OpenBoxCommand{UserID: "user-1", BoxID: box.ID})
	assert.ErrorIs(t, err, reward.ErrBoxExpired)
	assert.False(t, boxes.boxes[box.ID].Opened)
}

func TestOpenBox_WrongOwner(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	box := reward.NewMysteryBox("user-1", "rule-1", shared.NewSeededRand(1), now)

	boxes := newFakeBoxRepo()
	require.NoError(t, boxes.Create(context.Background(), box))

	h := NewOpenBoxHandler(boxes, newFakeWalletRepo(), nil, nil).
		WithClock(func() time.Time { return now })

	_, err := h.Handle(context.Background(), OpenBoxCommand{UserID: "user-2", BoxID: box.ID})
	assert.ErrorIs(t, err, ErrBoxNotOwned)
}

func TestOpenBox_NotFound(t *testing.T) {
	h := NewOpenBoxHandler(newFakeBoxRepo(), newFakeWalletRepo(), nil, nil)

	_, err := h.Handle(context.Background(), OpenBoxCommand{UserID: "user-1", BoxID: "missing"})
	assert.ErrorIs(t, err, reward.ErrBoxNotFound)
}
