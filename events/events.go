package events

import (
	"sync"

	"github.com/pkg/errors"
)

// EventHandler defines a function type where its input type is the generic type. A returned error is collected by
// EventEmitter.Publish but does not stop the remaining handlers from being called.
type EventHandler[T any] func(T) error

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It additionally provides methods for publishing events. The zero value is ready to use.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods which should be invoked when a new event is published to this
	// emitter.
	subscriptions []EventHandler[T]

	// subscriptionsLock guards subscriptions.
	subscriptionsLock sync.RWMutex
}

// Publish emits the provided event by calling every EventHandler subscribed, in subscription order. The first handler
// error is returned after all handlers ran.
func (e *EventEmitter[T]) Publish(event T) error {
	e.subscriptionsLock.RLock()
	subscriptions := append([]EventHandler[T]{}, e.subscriptions...)
	e.subscriptionsLock.RUnlock()

	var firstErr error
	for i, subscription := range subscriptions {
		if err := subscription(event); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "event handler %d failed", i)
		}
	}
	return firstErr
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter. When an event is
// published, the callback will be triggered with the event data.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptionsLock.Lock()
	defer e.subscriptionsLock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}
