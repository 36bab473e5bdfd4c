package notify

import (
	"context"
	"sync"

	"github.com/fjod/storefront-sync/internal/domain"
)

// Hub is an in-process Notifier.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[int]func()
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func())}
}

// Publish runs the listeners of the event's channel synchronously.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.mu.RLock()
	listeners := make([]func(), 0, len(h.subs[channelName(event.OwnerID, event.Collection)]))
	for _, fn := range h.subs[channelName(event.OwnerID, event.Collection)] {
		listeners = append(listeners, fn)
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, ownerID string, collection domain.Collection, onChange func()) (Subscription, error) {
	name := channelName(ownerID, collection)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[name] == nil {
		h.subs[name] = make(map[int]func())
	}
	h.subs[name][id] = onChange
	h.mu.Unlock()

	return newStopFunc(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[name], id)
		if len(h.subs[name]) == 0 {
			delete(h.subs, name)
		}
	}), nil
}

// Listeners returns the number of active subscriptions for the channel.
func (h *Hub) Listeners(ownerID string, collection domain.Collection) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channelName(ownerID, collection)])
}
