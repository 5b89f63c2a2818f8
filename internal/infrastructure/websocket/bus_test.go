package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(EventNewMessage, func(env Envelope) {
		got = append(got, env.Event)
	})
	bus.Subscribe(EventNewMessage, func(env Envelope) {
		got = append(got, env.Event+"-second")
	})

	env, err := NewEnvelope(EventNewMessage, map[string]string{"id": "m1"})
	require.NoError(t, err)
	bus.Publish(env)

	assert.ElementsMatch(t, []string{"new_message", "new_message-second"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(EventPresence, func(Envelope) { calls++ })

	bus.Publish(Envelope{Event: EventPresence})
	unsubscribe()
	unsubscribe() // twice is harmless
	bus.Publish(Envelope{Event: EventPresence})

	assert.Equal(t, 1, calls)
}

func TestBusIgnoresUnrelatedEvents(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(EventTyping, func(Envelope) { calls++ })

	bus.Publish(Envelope{Event: EventPresence})
	assert.Zero(t, calls)
}

func TestEnvelopeDecode(t *testing.T) {
	env, err := NewEnvelope(EventReadReceipt, ReadReceiptPayload{ChatID: "chat_a_b", ReaderID: "b"})
	require.NoError(t, err)
	require.NotZero(t, env.Timestamp)

	var payload ReadReceiptPayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "chat_a_b", payload.ChatID)
	assert.Equal(t, "b", payload.ReaderID)
}
