// Package bus carries in-process progress events from long running checks to
// whoever is displaying them.
package bus

import (
	"fmt"

	eventbus "github.com/asaskevich/EventBus"
	logging "github.com/ipfs/go-log/v2"
)

type Subscriber interface {
	Subscribe(topic string, fn any) error
	Unsubscribe(topic string, handler any) error
}

type Publisher interface {
	Publish(topic string, args ...any)
}

type Bus interface {
	Subscriber
	Publisher
}

var log = logging.Logger("pkg/bus")

var (
	_ Bus = (*EventBus)(nil)
	_ Bus = (*NoopBus)(nil)
)

// New returns an in-process bus backed by EventBus.
func New() Bus {
	return &EventBus{eventbus.New()}
}

// EventBus delivers events synchronously, on the publishing goroutine.
// Handlers must be quick and safe for concurrent use. They run under the bus
// lock, so a handler that subscribes or unsubscribes deadlocks.
type EventBus struct {
	bus eventbus.Bus
}

func (e *EventBus) Publish(topic string, args ...any) {
	e.bus.Publish(topic, args...)
}

func (e *EventBus) Subscribe(topic string, handler any) error {
	return e.bus.Subscribe(topic, handler)
}

func (e *EventBus) Unsubscribe(topic string, handler any) error {
	return e.bus.Unsubscribe(topic, handler)
}

// Watch subscribes handler to topic and returns the func that unsubscribes
// it. The returned func is safe to call more than once.
func Watch(s Subscriber, topic string, handler any) (func(), error) {
	if err := s.Subscribe(topic, handler); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	done := false
	return func() {
		if done {
			return
		}
		done = true
		if err := s.Unsubscribe(topic, handler); err != nil {
			log.Debugw("unsubscribing", "topic", topic, "err", err)
		}
	}, nil
}

// NoopBus drops every event. It stands in when nobody is listening.
type NoopBus struct{}

func (b *NoopBus) Publish(topic string, args ...any)           {}
func (b *NoopBus) Subscribe(topic string, handler any) error   { return nil }
func (b *NoopBus) Unsubscribe(topic string, handler any) error { return nil }
