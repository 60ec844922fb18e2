package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

func succeeding(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New("test", WithFailureThreshold(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeeding), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New("test", WithFailureThreshold(3))
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, succeeding))
	_ = cb.Execute(ctx, failing)
	_ = cb.Execute(ctx, failing)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithSuccessThreshold(1), WithTimeout(10*time.Millisecond))
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)

	// Первый запрос после таймаута проходит и закрывает цепь.
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(10*time.Millisecond))
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	time.Sleep(15 * time.Millisecond)

	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IsFailurePredicate(t *testing.T) {
	benign := errors.New("benign")
	cb := New("test")
	cb.config.IsFailure = func(err error) bool { return !errors.Is(err, benign) }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return benign })
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := New("test",
		WithFailureThreshold(1),
		WithOnStateChange(func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)

	_ = cb.Execute(context.Background(), failing)
	cb.Reset()

	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}

func TestCircuitBreaker_ExecuteWithFallback(t *testing.T) {
	cb := New("test", WithFailureThreshold(1))
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)

	called := false
	err := cb.ExecuteWithFallback(ctx, succeeding, func(err error) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}

func TestRankCacheBreaker_Tuning(t *testing.T) {
	cb := RankCacheBreaker(nil)
	assert.Equal(t, "rank-cache", cb.Name())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	assert.True(t, cb.IsOpen())
}
