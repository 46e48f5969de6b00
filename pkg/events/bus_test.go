package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEventBus_PublishInOrder(t *testing.T) {
	bus := NewEventBus(nil)

	var got []string
	bus.Subscribe(TypeSessionState, func(e Event) error {
		got = append(got, "state:"+e.Data["state"].(string))
		return nil
	})
	bus.Subscribe(Wildcard, func(e Event) error {
		got = append(got, "any:"+e.Type)
		return nil
	})

	bus.PublishEvent(TypeSessionState, map[string]interface{}{"state": "listening"}, "test")
	bus.PublishEvent(TypeSessionMessage, nil, "test")

	assert.Equal(t, []string{"state:listening", "any:session.state", "any:session.message"}, got)
	assert.Len(t, bus.GetPublishedEventTypes(), 2)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(nil)

	calls := 0
	cancel := bus.Subscribe(TypeSessionLevel, func(Event) error { calls++; return nil })
	other := 0
	bus.Subscribe(TypeSessionLevel, func(Event) error { other++; return nil })

	bus.Publish(Event{Type: TypeSessionLevel})
	cancel()
	cancel()
	bus.Publish(Event{Type: TypeSessionLevel})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)

	bus.Unsubscribe(TypeSessionLevel)
	bus.Publish(Event{Type: TypeSessionLevel})
	assert.Equal(t, 2, other)
}

func TestEventBus_HandlerErrorLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewEventBus(zap.New(core))
	bus.Subscribe(TypeSessionError, func(Event) error { return errors.New("write failed") })

	bus.Publish(Event{Type: TypeSessionError})
	assert.Equal(t, 1, logs.FilterMessage("Event handler failed").Len())
}

func TestEventBus_NilSafe(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() { bus.Publish(Event{Type: "x"}) })
}
