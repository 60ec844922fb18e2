package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/application/query"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/trigger"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[rule.ID]*rule.Rule
	order []rule.ID
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[rule.ID]*rule.Rule)}
}

func (f *fakeRuleRepo) Create(_ context.Context, r *rule.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[r.ID]; ok {
		return rule.ErrRuleAlreadyExists
	}
	f.rules[r.ID] = r.Clone()
	f.order = append(f.order, r.ID)
	return nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, id rule.ID) (*rule.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return nil, rule.ErrRuleNotFound
	}
	return r.Clone(), nil
}

func (f *fakeRuleRepo) Update(_ context.Context, r *rule.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[r.ID]; !ok {
		return rule.ErrRuleNotFound
	}
	f.rules[r.ID] = r.Clone()
	return nil
}

func (f *fakeRuleRepo) Deactivate(_ context.Context, id rule.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return rule.ErrRuleNotFound
	}
	r.Deactivate()
	return nil
}

func (f *fakeRuleRepo) ListActive(_ context.Context) ([]*rule.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*rule.Rule
	for _, id := range f.order {
		if r := f.rules[id]; r.IsActive {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rules), nil
}

// fakeTriggerRepo эмулирует advisory lock in-memory: по мьютексу на пару
// (правило, студент).
type fakeTriggerRepo struct {
	mu      sync.Mutex
	entries []*trigger.Log
	locks   map[string]*sync.Mutex
}

func newFakeTriggerRepo() *fakeTriggerRepo {
	return &fakeTriggerRepo{locks: make(map[string]*sync.Mutex)}
}

func (f *fakeTriggerRepo) Append(_ context.Context, l *trigger.Log) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeTriggerRepo) CountForRuleUser(_ context.Context, ruleID rule.ID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.RuleID == ruleID && e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTriggerRepo) LastForRuleUser(_ context.Context, ruleID rule.ID, userID string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *time.Time
	for _, e := range f.entries {
		if e.RuleID == ruleID && e.UserID == userID {
			if last == nil || e.TriggeredAt.After(*last) {
				ts := e.TriggeredAt
				last = &ts
			}
		}
	}
	return last, nil
}

func (f *fakeTriggerRepo) ListForUser(_ context.Context, userID string, _ int) ([]*trigger.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*trigger.Log
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeTriggerRepo) WithRuleUserLock(ctx context.Context, ruleID rule.ID, userID string, fn func(ctx context.Context, locked trigger.Repository) error) error {
	key := string(ruleID) + "/" + userID
	f.mu.Lock()
	lock, ok := f.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[key] = lock
	}
	f.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx, f)
}

type fakeCollector struct {
	snap *signals.StudentSignals
	err  error
}

func (f *fakeCollector) Handle(_ context.Context, q query.CollectSignalsQuery) (*signals.StudentSignals, error) {
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.snap
	snap.UserID = q.UserID
	snap.CourseID = q.CourseID
	return &snap, nil
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls [][]rule.Action
	now   time.Time
}

func (f *fakeExecutor) ExecuteAll(_ context.Context, actions []rule.Action, _ *signals.StudentSignals, _ string) []rule.ActionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, actions)
	results := make([]rule.ActionResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, rule.Succeeded(a.Type, nil, f.now))
	}
	return results
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type engineFixture struct {
	handler   *EvaluateRulesHandler
	rules     *fakeRuleRepo
	triggers  *fakeTriggerRepo
	collector *fakeCollector
	executor  *fakeExecutor
	now       time.Time
}

func newEngineFixture(snap *signals.StudentSignals) *engineFixture {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := &engineFixture{
		rules:     newFakeRuleRepo(),
		triggers:  newFakeTriggerRepo(),
		collector: &fakeCollector{snap: snap},
		executor:  &fakeExecutor{now: now},
		now:       now,
	}
	f.handler = NewEvaluateRulesHandler(f.rules, f.triggers, f.collector, f.executor, nil, nil).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *engineFixture) addRule(t *testing.T, r *rule.Rule) {
	t.Helper()
	require.NoError(t, f.rules.Create(context.Background(), r))
}

func mustRule(t *testing.T, p rule.NewRuleParams) *rule.Rule {
	t.Helper()
	r, err := rule.NewRule(p)
	require.NoError(t, err)
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestEvaluateRules_Validation(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{})

	_, err := f.handler.Handle(context.Background(), EvaluateRulesCommand{})
	assert.Error(t, err)
}

func TestEvaluateRules_FirstLessonScenario(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{LessonsCompleted: 1})
	f.addRule(t, rule.NewFirstLessonRule())

	cmd := EvaluateRulesCommand{UserID: "user-1", CourseID: "course-go"}

	// Первый прогон: правило срабатывает, оба действия выполняются.
	result, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.True(t, result.Outcomes[0].Triggered)
	assert.Empty(t, result.Outcomes[0].Skipped)
	assert.Len(t, result.Outcomes[0].ActionsExecuted, 2)
	assert.Equal(t, 1, result.TriggeredCount)
	assert.Len(t, f.triggers.entries, 1)

	// Второй прогон: лимит в одно срабатывание исчерпан.
	result, err = f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.False(t, result.Outcomes[0].Triggered)
	assert.Equal(t, SkipLimitReached, result.Outcomes[0].Skipped)
	assert.Len(t, f.triggers.entries, 1)
}

func TestEvaluateRules_SkipScopeMismatch(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{LessonsCompleted: 10})
	f.addRule(t, mustRule(t, rule.NewRuleParams{
		ID:       "course-rule",
		Name:     "Course Bonus",
		Type:     rule.TypeCustom,
		IsGlobal: false,
		CourseID: "course-python",
		Actions:  []rule.Action{{Type: rule.ActionAddCoins, Value: "5", Amount: 5}},
	}))

	result, err := f.handler.Handle(context.Background(), EvaluateRulesCommand{UserID: "user-1", CourseID: "course-go"})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, SkipScopeMismatch, result.Outcomes[0].Skipped)
	// Область проверяется до журнала: записей нет, executor не вызывался.
	assert.Empty(t, f.executor.calls)
}

func TestEvaluateRules_SkipCooldown(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{StreakCount: 3})
	r := mustRule(t, rule.NewRuleParams{
		ID:            "streak-rule",
		Name:          "Streak",
		Type:          rule.TypeStreak,
		IsGlobal:      true,
		CooldownHours: 24,
		Conditions:    []rule.Condition{{Field: signals.FieldStreakCount, Operator: rule.OpGreaterOrEqual, Value: 3}},
		Actions:       []rule.Action{{Type: rule.ActionAddCoins, Value: "15", Amount: 15}},
	})
	f.addRule(t, r)

	cmd := EvaluateRulesCommand{UserID: "user-1"}

	result, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, result.Outcomes[0].Triggered)

	// Через 23 часа - ещё в периоде охлаждения.
	f.now = f.now.Add(23 * time.Hour)
	result, err = f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, SkipCooldown, result.Outcomes[0].Skipped)

	// Через 24 часа после срабатывания cooldown истёк.
	f.now = f.now.Add(time.Hour)
	result, err = f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, result.Outcomes[0].Triggered)
}

func TestEvaluateRules_SkipConditionsNotMet(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{LessonsCompleted: 0})
	f.addRule(t, rule.NewFirstLessonRule())

	result, err := f.handler.Handle(context.Background(), EvaluateRulesCommand{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, SkipConditionsNotMet, result.Outcomes[0].Skipped)
	assert.Empty(t, f.triggers.entries)
}

func TestEvaluateRules_LogEntryFreezesSnapshot(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{LessonsCompleted: 1, StreakCount: 2})
	f.addRule(t, rule.NewFirstLessonRule())

	_, err := f.handler.Handle(context.Background(), EvaluateRulesCommand{UserID: "user-1", CourseID: "course-go"})
	require.NoError(t, err)

	require.Len(t, f.triggers.entries, 1)
	entry := f.triggers.entries[0]
	assert.Equal(t, rule.ID("default-first-lesson"), entry.RuleID)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "course-go", entry.CourseID)
	assert.Equal(t, 1, entry.Signals.LessonsCompleted)
	assert.Equal(t, 2, entry.Signals.StreakCount)
	assert.Equal(t, f.now, entry.TriggeredAt)
	assert.Equal(t, 2, entry.SucceededActions())
}

func TestEvaluateRules_MultipleRulesIndependentOutcomes(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{LessonsCompleted: 1, CourseProgressPercent: 10})
	f.addRule(t, rule.NewFirstLessonRule())
	f.addRule(t, rule.NewCourseHalfwayRule())

	result, err := f.handler.Handle(context.Background(), EvaluateRulesCommand{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.True(t, result.Outcomes[0].Triggered)
	assert.Equal(t, SkipConditionsNotMet, result.Outcomes[1].Skipped)
	assert.Equal(t, 1, result.TriggeredCount)
}

func TestEvaluateRules_CollectorFailureAborts(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{})
	f.collector.err = errors.New("activity store down")
	f.addRule(t, rule.NewFirstLessonRule())

	_, err := f.handler.Handle(context.Background(), EvaluateRulesCommand{UserID: "user-1"})
	require.Error(t, err)
	assert.Empty(t, f.triggers.entries)
}

func TestEvaluateRules_ConcurrentRunsFireOnce(t *testing.T) {
	f := newEngineFixture(&signals.StudentSignals{LessonsCompleted: 1})
	f.addRule(t, rule.NewFirstLessonRule())

	cmd := EvaluateRulesCommand{UserID: "user-1"}

	const runs = 8
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.handler.Handle(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("run %d", i))
	}
	// Лимит в одно срабатывание держится под конкуренцией.
	assert.Len(t, f.triggers.entries, 1)
}
