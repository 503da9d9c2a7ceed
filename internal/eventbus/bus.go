// Package eventbus is a typed in-process publish/subscribe channel with
// payload structs checked at compile time.
package eventbus

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Handler receives a published event.
type Handler func(ctx context.Context, event any)

// Bus delivers events to subscribers of the event's concrete type. Delivery
// is synchronous and in subscription order; handlers must not block.
// Subscriptions live for the process lifetime.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[string][]Handler),
	}
}

// Publish dispatches event to every handler subscribed to its type. Nil
// events are dropped. Pointer events are dereferenced so subscribers always
// match on the value type.
func (b *Bus) Publish(ctx context.Context, event any) {
	if event == nil {
		return
	}
	v := reflect.ValueOf(event)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	event = v.Interface()
	key := typeKey(v.Type())

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[key]...)
	b.mu.RUnlock()

	b.logger.Debug("publishing event", "type", key, "handlers", len(handlers))
	for _, h := range handlers {
		h(ctx, event)
	}
}

// Subscribe registers fn for events of type T.
func Subscribe[T any](b *Bus, fn func(ctx context.Context, event T)) {
	key := typeKey(reflect.TypeOf((*T)(nil)).Elem())
	h := Handler(func(ctx context.Context, event any) {
		if typed, ok := event.(T); ok {
			fn(ctx, typed)
		}
	})

	b.mu.Lock()
	b.handlers[key] = append(b.handlers[key], h)
	b.mu.Unlock()
}

func typeKey(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}
