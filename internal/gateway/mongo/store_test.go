package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (*Store, func()) {
	if testing.Short() {
		t.Skip("mongodb container test")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := Connect(ctx, uri, "testdb", 10*time.Second)
	require.NoError(t, err)

	store := NewStore(db)
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestFetch_Empty(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	rows, err := store.Fetch(context.Background(), "nobody", domain.CollectionCart)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpsert_CreatesThenReplaces(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.Upsert(ctx, "u1", domain.CollectionCart, "A|size=M", gateway.Row{
		ProductID: "A", Variant: map[string]string{"size": "M"}, Quantity: 2, Name: "Shirt", UnitPrice: 10,
	})
	require.NoError(t, err)

	_, err = store.Upsert(ctx, "u1", domain.CollectionCart, "A|size=M", gateway.Row{
		ProductID: "A", Variant: map[string]string{"size": "M"}, Quantity: 5, Name: "Shirt", UnitPrice: 10,
	})
	require.NoError(t, err)

	rows, err := store.Fetch(ctx, "u1", domain.CollectionCart)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Quantity)
	assert.Equal(t, "M", rows[0].Variant["size"])
	assert.Equal(t, first.CreatedAt, rows[0].CreatedAt)
}

func TestInsert_DuplicateIsConflict(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Insert(ctx, "u1", domain.CollectionFavorites, "A", gateway.Row{ProductID: "A"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, "u1", domain.CollectionFavorites, "A", gateway.Row{ProductID: "A"})
	assert.ErrorIs(t, err, gateway.ErrConflict)

	rows, err := store.Fetch(ctx, "u1", domain.CollectionFavorites)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDelete_RemovesOnlyTarget(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Upsert(ctx, "u1", domain.CollectionCart, "A", gateway.Row{ProductID: "A", Quantity: 1})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "u1", domain.CollectionCart, "B", gateway.Row{ProductID: "B", Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "u1", domain.CollectionCart, "A"))
	require.NoError(t, store.Delete(ctx, "u1", domain.CollectionCart, "missing"))

	rows, err := store.Fetch(ctx, "u1", domain.CollectionCart)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].Identity)
}

func TestContextCancellation(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := store.Fetch(ctx, "u1", domain.CollectionCart)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
