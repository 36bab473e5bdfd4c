package gateway

import (
	"context"
	"log"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/notify"
)

// Publishing announces every successful write of the wrapped store on the
// change channel of the written owner and collection.
type Publishing struct {
	RemoteStore
	publisher notify.Publisher
	timeout   time.Duration
}

func NewPublishing(store RemoteStore, publisher notify.Publisher) *Publishing {
	return &Publishing{RemoteStore: store, publisher: publisher, timeout: 5 * time.Second}
}

func (p *Publishing) Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error) {
	row, err := p.RemoteStore.Upsert(ctx, ownerID, collection, identity, payload)
	if err == nil {
		p.announce(ownerID, collection)
	}
	return row, err
}

func (p *Publishing) Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error) {
	row, err := p.RemoteStore.Insert(ctx, ownerID, collection, identity, payload)
	if err == nil {
		p.announce(ownerID, collection)
	}
	return row, err
}

func (p *Publishing) Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) error {
	err := p.RemoteStore.Delete(ctx, ownerID, collection, identity)
	if err == nil {
		p.announce(ownerID, collection)
	}
	return err
}

// announce is detached from the caller's context: the write already happened.
func (p *Publishing) announce(ownerID string, collection domain.Collection) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	event := notify.Event{OwnerID: ownerID, Collection: collection, At: time.Now()}
	if err := p.publisher.Publish(ctx, event); err != nil {
		log.Printf("change publish error: %v", err)
	}
}
