package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
)

var (
	// ErrConflict is returned by Insert when the row already exists.
	ErrConflict = errors.New("row already exists")
	ErrNotFound = errors.New("row not found")
)

// Row is one authoritative remote row of a collection.
// Cart rows carry the product snapshot; favorite rows only the product id.
type Row struct {
	OwnerID    string            `json:"owner_id" bson:"owner_id"`
	Collection domain.Collection `json:"collection" bson:"collection"`
	Identity   string            `json:"identity" bson:"identity"`
	ProductID  string            `json:"product_id" bson:"product_id"`
	Variant    map[string]string `json:"variant,omitempty" bson:"variant,omitempty"`
	Quantity   int               `json:"quantity,omitempty" bson:"quantity,omitempty"`
	Name       string            `json:"name,omitempty" bson:"name,omitempty"`
	UnitPrice  float64           `json:"unit_price,omitempty" bson:"unit_price,omitempty"`
	Image      string            `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" bson:"updated_at"`
}

// RemoteStore is the authoritative backend, keyed by owner and item identity.
// Implementations return plain errors; Client turns them into Results.
type RemoteStore interface {
	Fetch(ctx context.Context, ownerID string, collection domain.Collection) ([]Row, error)
	// Upsert creates or replaces the row.
	Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error)
	// Insert creates the row and fails with ErrConflict if it exists.
	Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload Row) (Row, error)
	// Delete removes the row. Deleting a missing row succeeds.
	Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) error
}
