package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToCoreDelivers(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	require.NoError(t, eb.SendToCore(SendMessageEvent{Message: "hi"}))
	require.NoError(t, eb.SendToCore(WipeEvent{}))

	assert.Equal(t, SendMessageEvent{Message: "hi"}, <-eb.UIToCore())
	assert.Equal(t, WipeEvent{}, <-eb.UIToCore())
}

func TestSendToCoreOpensCircuitWhenFull(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	var reported []EventBusError
	eb.SetErrorCallback(func(e EventBusError) { reported = append(reported, e) })

	for i := 0; i < cap(eb.uiToCore); i++ {
		require.NoError(t, eb.SendToCore(SendMessageEvent{Message: "x"}))
	}
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, eb.SendToCore(SendMessageEvent{Message: "x"}), ErrCoreFull)
	}
	assert.Equal(t, CircuitOpen, eb.GetCircuitBreakerState())
	require.ErrorIs(t, eb.SendToCore(SendMessageEvent{Message: "x"}), ErrCircuitOpen)
	assert.Len(t, reported, 6)
	assert.Equal(t, "SendToCore", reported[0].Operation)
}

func TestCircuitBreakerHalfOpensAfterTimeout(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	now = now.Add(2 * time.Minute)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestSendToUIKeepsNewestWhenFull(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	total := cap(eb.coreToUI) + 10
	for i := 0; i < total; i++ {
		require.NoError(t, eb.SendToUI(StateUpdateEvent{Limit: i}))
	}
	require.Len(t, eb.coreToUI, cap(eb.coreToUI))

	first := (<-eb.CoreToUI()).(StateUpdateEvent)
	assert.Equal(t, 10, first.Limit)

	var last StateUpdateEvent
	for len(eb.coreToUI) > 0 {
		last = (<-eb.CoreToUI()).(StateUpdateEvent)
	}
	assert.Equal(t, total-1, last.Limit)
}

func TestClosedBusRejectsSends(t *testing.T) {
	eb := NewEventBus()
	eb.Close()
	eb.Close()

	require.ErrorIs(t, eb.SendToCore(WipeEvent{}), ErrClosed)
	require.ErrorIs(t, eb.SendToUI(StateUpdateEvent{}), ErrClosed)
}
