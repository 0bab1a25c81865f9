package services

import (
	"context"
	"sync"
)

// CartEventName names the change signal on every transport.
const CartEventName = "cart-updated"

type CartEvent struct {
	CartSessionId string
}

type subscription struct {
	id uint64
	fn func(CartEvent)
}

// CartHub is the process-wide cart change signal. A notification carries no
// cart data: subscribers re-read the cart themselves.
type CartHub struct {
	mu   sync.RWMutex
	subs map[string]subscription
	next uint64
}

func NewCartHub() *CartHub {
	return &CartHub{
		subs: make(map[string]subscription),
	}
}

// Subscribe registers fn under name. Subscribing again with the same name
// replaces the previous registration instead of adding a second one. The
// returned func is safe to call any number of times and never removes a
// newer registration.
func (h *CartHub) Subscribe(name string, fn func(CartEvent)) (unsubscribe func()) {
	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[name] = subscription{id: id, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if s, ok := h.subs[name]; ok && s.id == id {
				delete(h.subs, name)
			}
			h.mu.Unlock()
		})
	}
}

func (h *CartHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// NotifyCartChanged calls every subscriber synchronously; slow subscribers
// are expected to hand the event off to their own goroutine.
func (h *CartHub) NotifyCartChanged(_ context.Context, cartSessionId string) {
	h.mu.RLock()
	fns := make([]func(CartEvent), 0, len(h.subs))
	for _, s := range h.subs {
		fns = append(fns, s.fn)
	}
	h.mu.RUnlock()

	ev := CartEvent{CartSessionId: cartSessionId}
	for _, fn := range fns {
		fn(ev)
	}
}
