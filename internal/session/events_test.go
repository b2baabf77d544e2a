package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SinceReturnsNewerEvents(t *testing.T) {
	bus := NewEventBus(10)
	bus.Publish(Event{Type: EventTypeState, Message: "one"})
	bus.Publish(Event{Type: EventTypeState, Message: "two"})
	bus.Publish(Event{Type: EventTypeResult, Message: "three"})

	events := bus.Since(1)
	require.Len(t, events, 2)
	assert.EqualValues(t, 2, events[0].Seq)
	assert.Equal(t, "three", events[1].Message)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.EqualValues(t, 3, bus.LastSeq())
}

func TestEventBus_TrimsToMaxEvents(t *testing.T) {
	bus := NewEventBus(2)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeState})
	}

	events := bus.Since(0)
	require.Len(t, events, 2)
	assert.EqualValues(t, 4, events[0].Seq)
	assert.EqualValues(t, 5, events[1].Seq)
}

func TestEventBus_EmptySince(t *testing.T) {
	bus := NewEventBus(0)
	assert.Empty(t, bus.Since(0))
	assert.Zero(t, bus.LastSeq())
}
