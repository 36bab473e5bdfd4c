package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name string
	// Failures is the number of consecutive failed calls that opens the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// Breaker fails fast while the wrapped store keeps failing. Conflicts, missing
// rows and abandoned calls do not count as failures.
type Breaker struct {
	store RemoteStore
	cb    *gobreaker.CircuitBreaker[any]
}

func NewBreaker(store RemoteStore, settings BreakerSettings) *Breaker {
	if settings.Name == "" {
		settings.Name = "remote-store"
	}
	if settings.Failures == 0 {
		settings.Failures = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrConflict) ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Breaker{store: store, cb: cb}
}

// State reports the breaker state: closed, half-open or open.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Fetch(ctx context.Context, ownerID string, collection domain.Collection) ([]Row, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.store.Fetch(ctx, ownerID, collection)
	})
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]Row)
	return rows, nil
}

func (b *Breaker) Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error) {
	return b.write(func() (Row, error) {
		return b.store.Upsert(ctx, ownerID, collection, identity, payload)
	})
}

func (b *Breaker) Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error) {
	return b.write(func() (Row, error) {
		return b.store.Insert(ctx, ownerID, collection, identity, payload)
	})
}

func (b *Breaker) Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.store.Delete(ctx, ownerID, collection, identity)
	})
	return err
}

func (b *Breaker) write(call func() (Row, error)) (Row, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return call()
	})
	row, _ := out.(Row)
	return row, err
}
