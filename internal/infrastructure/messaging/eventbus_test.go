package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
)

func TestEventBus_SubscribeAndPublish(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventCoinsGranted, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewCoinsGrantedEvent("user-1", 25, 125, "rule_reward", "rule-1")
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, shared.EventCoinsGranted, received[0].EventType())

	// Событие другого типа не доходит до подписчика.
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user-1", 3, 5)))
	assert.Len(t, received, 1)
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewCoinsGrantedEvent("user-1", 10, 10, "rule_reward", "rule-1")))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user-1", 1, 1)))

	assert.Equal(t, 2, count)
}

func TestEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	delivered := false
	require.NoError(t, bus.Subscribe(shared.EventCoinsGranted, func(shared.Event) error {
		return errors.New("handler broke")
	}))
	require.NoError(t, bus.Subscribe(shared.EventCoinsGranted, func(shared.Event) error {
		delivered = true
		return nil
	}))

	err := bus.Publish(shared.NewCoinsGrantedEvent("user-1", 10, 10, "rule_reward", "rule-1"))
	assert.NoError(t, err)
	assert.True(t, delivered)
}

func TestEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	delivered := false
	require.NoError(t, bus.Subscribe(shared.EventCoinsGranted, func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventCoinsGranted, func(shared.Event) error {
		delivered = true
		return nil
	}))

	assert.NotPanics(t, func() {
		_ = bus.Publish(shared.NewCoinsGrantedEvent("user-1", 10, 10, "rule_reward", "rule-1"))
	})
	assert.True(t, delivered)
}

func TestEventBus_NilHandlerRejected(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventCoinsGranted, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	bus.Close()

	assert.ErrorIs(t, bus.Subscribe(shared.EventCoinsGranted, func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Publish(shared.NewCoinsGrantedEvent("user-1", 10, 10, "rule_reward", "rule-1")), ErrEventBusClosed)
}
