// Package event carries cross-service signals on typed buses. Publish is
// synchronous: handlers run on the publisher's goroutine in subscription
// order, after the bus lock has been released.
package event

import (
	"sync"
	"sync/atomic"
)

type subscription[T any] struct {
	id     uint64
	fn     func(T)
	active atomic.Bool
}

// Bus is a publish/subscribe channel for events of type T.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*subscription[T]
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a function that removes it. Once the
// returned function has been called fn is never invoked again, even by a
// Publish already in progress.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	sub := &subscription[T]{id: b.nextID, fn: fn}
	sub.active.Store(true)
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == sub.id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers ev to every current subscriber.
func (b *Bus[T]) Publish(ev T) {
	b.mu.Lock()
	subs := make([]*subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if s.active.Load() {
			s.fn(ev)
		}
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
