// Package notify carries payload-less "something changed" signals for an
// owner's collection. Receivers only ever treat an event as "refetch now".
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
)

// Event says that the owner's collection changed remotely.
type Event struct {
	OwnerID    string            `json:"owner_id"`
	Collection domain.Collection `json:"collection"`
	At         time.Time         `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber registers onChange for the owner's collection until Unsubscribe.
// onChange must not block; it may run on the subscriber's goroutine.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID string, collection domain.Collection, onChange func()) (Subscription, error)
}

// Subscription is a scoped listener. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Notifier is both ends of one channel.
type Notifier interface {
	Publisher
	Subscriber
}

func channelName(ownerID string, collection domain.Collection) string {
	return fmt.Sprintf("storefront:changes:%s:%s", collection, ownerID)
}

// stopFunc adapts a release function to Subscription.
type stopFunc struct {
	once sync.Once
	stop func()
}

func newStopFunc(stop func()) *stopFunc {
	return &stopFunc{stop: stop}
}

func (s *stopFunc) Unsubscribe() {
	s.once.Do(s.stop)
}
