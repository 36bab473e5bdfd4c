// Package localstore keeps durable snapshots of the collections so they
// survive reloads and outlive login state.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/storefront-sync/internal/domain"
)

var ErrNotFound = errors.New("snapshot not found")

// SessionKey holds the last active session.
const SessionKey = "session"

type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	// Load returns ErrNotFound when nothing is stored under key.
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// MergeKey holds the journal of an unfinished login merge into userID.
func MergeKey(userID string) string {
	return "merge:user:" + userID
}

// Key is the snapshot key of a collection in a session scope, e.g. cart:guest.
func Key(collection domain.Collection, scope string) string {
	return fmt.Sprintf("%s:%s", collection, scope)
}

// Safe never reports failures to its caller: they are logged and dropped.
type Safe struct {
	store Store
}

func NewSafe(store Store) *Safe {
	return &Safe{store: store}
}

func (s *Safe) Save(ctx context.Context, key string, data []byte) {
	if err := s.store.Save(ctx, key, data); err != nil {
		log.Printf("local store save error: key=%s: %v", key, err)
	}
}

// Load reports false when the key is missing or unreadable.
func (s *Safe) Load(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("local store load error: key=%s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

func (s *Safe) Delete(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("local store delete error: key=%s: %v", key, err)
	}
}
