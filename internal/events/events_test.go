package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got []string
	bus.Subscribe(BookingCompleted, func(e Event) error {
		var payload struct {
			Rooms []string `json:"rooms"`
		}
		require.NoError(t, e.Decode(&payload))
		got = append(got, payload.Rooms...)
		assert.False(t, e.CreatedAt.IsZero())
		return nil
	})
	bus.Subscribe(BookingFailed, func(Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := bus.PublishJSON(BookingCompleted, map[string][]string{"rooms": {"A0.5", "A1.2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A0.5", "A1.2"}, got)
}

func TestEventBus_HandlerErrors(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	boom := errors.New("boom")
	bus.Subscribe(CartChanged, func(Event) error { calls++; return boom })
	bus.Subscribe(CartChanged, func(Event) error { calls++; return nil })

	err := bus.Publish(Event{Type: CartChanged})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)

	assert.NoError(t, bus.Publish(Event{Type: "nobody.listens"}))
}
