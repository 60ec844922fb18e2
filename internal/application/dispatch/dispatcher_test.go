package dispatch

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/application/nudge"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/reward"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeWallets struct {
	mu       sync.Mutex
	balances map[string]int
	ledger   []*reward.Transaction
	failNext error
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{balances: make(map[string]int)}
}

func (f *fakeWallets) Get(_ context.Context, userID string) (*reward.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[userID]
	if !ok {
		return nil, reward.ErrWalletNotFound
	}
	return &reward.Wallet{UserID: userID, Balance: balance}, nil
}

func (f *fakeWallets) Credit(_ context.Context, userID string, amount int, reason, ruleID string) (*reward.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	if amount <= 0 {
		return nil, reward.ErrInvalidAmount
	}
	f.balances[userID] += amount
	tx := &reward.Transaction{
		ID:          "tx-1",
		UserID:      userID,
		Amount:      amount,
		PostBalance: f.balances[userID],
		Reason:      reason,
		RuleID:      ruleID,
	}
	f.ledger = append(f.ledger, tx)
	return tx, nil
}

func (f *fakeWallets) Spend(_ context.Context, userID string, amount int, reason string) (*reward.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return nil, reward.ErrInsufficientBalance
	}
	f.balances[userID] -= amount
	tx := &reward.Transaction{UserID: userID, Amount: -amount, PostBalance: f.balances[userID], Reason: reason}
	f.ledger = append(f.ledger, tx)
	return tx, nil
}

func (f *fakeWallets) Transactions(_ context.Context, userID string, _ int) ([]*reward.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reward.Transaction
	for _, tx := range f.ledger {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeCards struct {
	created []*reward.Card
}

func (f *fakeCards) Create(_ context.Context, card *reward.Card) error {
	f.created = append(f.created, card)
	return nil
}

func (f *fakeCards) GetByPublicID(_ context.Context, publicID string) (*reward.Card, error) {
	for _, c := range f.created {
		if c.PublicID == publicID {
			return c, nil
		}
	}
	return nil, reward.ErrCardNotFound
}

func (f *fakeCards) MarkViewed(_ context.Context, _ string) error { return nil }

type fakeBoxes struct {
	boxes map[string]*reward.MysteryBox
}

func newFakeBoxes() *fakeBoxes {
	return &fakeBoxes{boxes: make(map[string]*reward.MysteryBox)}
}

func (f *fakeBoxes) Create(_ context.Context, box *reward.MysteryBox) error {
	f.boxes[box.ID] = box
	return nil
}

func (f *fakeBoxes) Get(_ context.Context, id string) (*reward.MysteryBox, error) {
	box, ok := f.boxes[id]
	if !ok {
		return nil, reward.ErrBoxNotFound
	}
	return box, nil
}

func (f *fakeBoxes) MarkOpened(_ context.Context, box *reward.MysteryBox) error {
	f.boxes[box.ID] = box
	return nil
}

func (f *fakeBoxes) ListUnopened(_ context.Context, userID string) ([]*reward.MysteryBox, error) {
	var out []*reward.MysteryBox
	for _, b := range f.boxes {
		if b.UserID == userID && !b.Opened {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeScholarships struct {
	catalog map[string]*reward.Scholarship
	grants  []*reward.Grant
}

func newFakeScholarships() *fakeScholarships {
	return &fakeScholarships{catalog: make(map[string]*reward.Scholarship)}
}

func (f *fakeScholarships) GetByID(_ context.Context, id string) (*reward.Scholarship, error) {
	s, ok := f.catalog[id]
	if !ok {
		return nil, reward.ErrScholarshipNotFound
	}
	return s, nil
}

func (f *fakeScholarships) Create(_ context.Context, grant *reward.Grant) error {
	f.grants = append(f.grants, grant)
	return nil
}

func (f *fakeScholarships) ListForUser(_ context.Context, userID string) ([]*reward.Grant, error) {
	var out []*reward.Grant
	for _, g := range f.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeNudgeLogs struct {
	entries []*reward.NudgeLog
}

func (f *fakeNudgeLogs) Create(_ context.Context, log *reward.NudgeLog) error {
	f.entries = append(f.entries, log)
	return nil
}

type fakeNotifications struct {
	created  []*reward.Notification
	failNext error
}

func (f *fakeNotifications) Create(_ context.Context, n *reward.Notification) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, _ string) error { return nil }

type captureBus struct {
	events []shared.Event
}

func (b *captureBus) Publish(event shared.Event) error {
	b.events = append(b.events, event)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type dispatcherFixture struct {
	dispatcher    *Dispatcher
	wallets       *fakeWallets
	cards         *fakeCards
	boxes         *fakeBoxes
	scholarships  *fakeScholarships
	nudgeLogs     *fakeNudgeLogs
	notifications *fakeNotifications
	bus           *captureBus
	now           time.Time
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		wallets:       newFakeWallets(),
		cards:         &fakeCards{},
		boxes:         newFakeBoxes(),
		scholarships:  newFakeScholarships(),
		nudgeLogs:     &fakeNudgeLogs{},
		notifications: &fakeNotifications{},
		bus:           &captureBus{},
		now:           time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	rnd := shared.NewSeededRand(42)
	f.dispatcher = NewDispatcher(Deps{
		Wallets:       f.wallets,
		Cards:         f.cards,
		Boxes:         f.boxes,
		Scholarships:  f.scholarships,
		Grants:        f.scholarships,
		NudgeLogs:     f.nudgeLogs,
		Notifications: f.notifications,
		Generator:     nudge.NewGenerator(rnd),
		Rand:          rnd,
		Events:        f.bus,
	}).WithClock(func() time.Time { return f.now })
	return f
}

func testSnap() *signals.StudentSignals {
	return &signals.StudentSignals{
		UserID:                "user-1",
		LessonsCompleted:      5,
		CourseProgressPercent: 50,
		StreakCount:           3,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestDispatcher_UnknownActionType(t *testing.T) {
	f := newDispatcherFixture()

	result := f.dispatcher.Execute(context.Background(), rule.Action{Type: "grant_xp"}, testSnap(), "rule-1")

	assert.False(t, result.Success)
	assert.Equal(t, "Unknown action type: grant_xp", result.Error)
}

func TestDispatcher_AddCoins(t *testing.T) {
	f := newDispatcherFixture()
	action := rule.Action{Type: rule.ActionAddCoins, Value: "25", Amount: 25}

	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 25, result.Details["amount"])
	assert.Equal(t, 25, result.Details["balance"])
	assert.Equal(t, 25, f.wallets.balances["user-1"])

	require.Len(t, f.wallets.ledger, 1)
	assert.Equal(t, "rule_reward", f.wallets.ledger[0].Reason)
	assert.Equal(t, "rule-1", f.wallets.ledger[0].RuleID)

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, shared.EventCoinsGranted, f.bus.events[0].EventType())
}

func TestDispatcher_AddCoinsRejectsBadAmounts(t *testing.T) {
	f := newDispatcherFixture()

	for _, action := range []rule.Action{
		{Type: rule.ActionAddCoins, Value: "gold", Amount: math.NaN()},
		{Type: rule.ActionAddCoins, Value: "0", Amount: 0},
		{Type: rule.ActionAddCoins, Value: "-10", Amount: -10},
	} {
		result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "invalid coin amount")
	}

	assert.Empty(t, f.wallets.ledger)
	assert.Empty(t, f.bus.events)
}

func TestDispatcher_GenerateCard(t *testing.T) {
	f := newDispatcherFixture()
	action := rule.Action{Type: rule.ActionGenerateCard, Value: "streak"}

	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	require.True(t, result.Success, result.Error)
	require.Len(t, f.cards.created, 1)
	card := f.cards.created[0]
	assert.Equal(t, reward.CardTypeStreak, card.Type)
	assert.Equal(t, card.PublicID, result.Details["card_id"])
	assert.Equal(t, 5, card.Stats.LessonsCompleted)
}

func TestDispatcher_AwardScholarship(t *testing.T) {
	f := newDispatcherFixture()
	f.scholarships.catalog["sch-gold"] = &reward.Scholarship{ID: "sch-gold", DiscountPercent: 20}

	action := rule.Action{Type: rule.ActionAwardScholarship, Value: "sch-gold"}
	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	require.True(t, result.Success, result.Error)
	require.Len(t, f.scholarships.grants, 1)
	assert.Equal(t, "user-1", f.scholarships.grants[0].UserID)
	assert.Equal(t, 20, result.Details["discount_percent"])
}

func TestDispatcher_AwardScholarshipUnknownID(t *testing.T) {
	f := newDispatcherFixture()

	action := rule.Action{Type: rule.ActionAwardScholarship, Value: "sch-missing"}
	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "sch-missing")
	assert.Empty(t, f.scholarships.grants)
}

func TestDispatcher_CreateMysteryBoxHidesContent(t *testing.T) {
	f := newDispatcherFixture()

	action := rule.Action{Type: rule.ActionCreateMysteryBox}
	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	require.True(t, result.Success, result.Error)
	require.Len(t, f.boxes.boxes, 1)

	// Результат не раскрывает награду до открытия.
	assert.Contains(t, result.Details, "box_id")
	assert.Contains(t, result.Details, "expires_at")
	assert.NotContains(t, result.Details, "reward_type")
	assert.NotContains(t, result.Details, "reward_amount")
}

func TestDispatcher_SendNudgeWritesLogAndNotification(t *testing.T) {
	f := newDispatcherFixture()

	action := rule.Action{Type: rule.ActionSendNudge, Value: "streak"}
	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	require.True(t, result.Success, result.Error)
	require.Len(t, f.nudgeLogs.entries, 1)
	require.Len(t, f.notifications.created, 1)

	// Тексты в журнале и в уведомлении совпадают.
	assert.Equal(t, f.nudgeLogs.entries[0].Message, f.notifications.created[0].Message)
	assert.Equal(t, reward.NotificationKindNudge, f.notifications.created[0].Kind)
	assert.Equal(t, "streak", f.nudgeLogs.entries[0].NudgeType)
	assert.NotEmpty(t, result.Details["message"])
}

func TestDispatcher_SendNudgeAutoSelectsType(t *testing.T) {
	f := newDispatcherFixture()
	snap := testSnap()
	snap.DaysSinceLastActivity = 5

	action := rule.Action{Type: rule.ActionSendNudge}
	result := f.dispatcher.Execute(context.Background(), action, snap, "rule-1")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "comeback", result.Details["nudge_type"])
}

func TestDispatcher_SendNotification(t *testing.T) {
	f := newDispatcherFixture()

	action := rule.Action{Type: rule.ActionSendNotification, Message: "Курс завершён!"}
	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	require.True(t, result.Success, result.Error)
	require.Len(t, f.notifications.created, 1)
	assert.Equal(t, "Курс завершён!", f.notifications.created[0].Message)
	assert.Equal(t, reward.NotificationKindReward, f.notifications.created[0].Kind)
}

func TestDispatcher_SendNotificationEmptyMessageFails(t *testing.T) {
	f := newDispatcherFixture()

	action := rule.Action{Type: rule.ActionSendNotification}
	result := f.dispatcher.Execute(context.Background(), action, testSnap(), "rule-1")

	assert.False(t, result.Success)
	assert.Empty(t, f.notifications.created)
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	f := newDispatcherFixture()
	f.wallets.failNext = errors.New("db down")

	actions := []rule.Action{
		{Type: rule.ActionAddCoins, Value: "10", Amount: 10},
		{Type: rule.ActionSendNudge, Value: "encouragement"},
	}

	results := f.dispatcher.ExecuteAll(context.Background(), actions, testSnap(), "rule-1")

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Equal(t, "db down", results[0].Error)
	// Второе действие выполняется несмотря на сбой первого.
	assert.True(t, results[1].Success, results[1].Error)
	assert.Len(t, f.nudgeLogs.entries, 1)
}

func TestDispatcher_PanicBecomesFailedResult(t *testing.T) {
	f := newDispatcherFixture()

	// Снимок с nil вызывает панику внутри действия.
	action := rule.Action{Type: rule.ActionAddCoins, Value: "10", Amount: 10}
	result := f.dispatcher.Execute(context.Background(), action, nil, "rule-1")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "action panicked")
}
