package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), err: errors.New("connection refused")}
	b := NewBreaker(store, BreakerSettings{Failures: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.Upsert(ctx, "u1", domain.CollectionCart, "A", Row{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Fetch(ctx, "u1", domain.CollectionCart)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	res := NewClient(b).Fetch(ctx, "u1", domain.CollectionCart)
	assert.Equal(t, StatusTransient, res.Status)
}

func TestBreaker_ConflictsDoNotTrip(t *testing.T) {
	store := NewMemoryStore()
	b := NewBreaker(store, BreakerSettings{Failures: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_, err := b.Insert(ctx, "u1", domain.CollectionFavorites, "A", Row{ProductID: "A"})
	require.NoError(t, err)
	_, err = b.Insert(ctx, "u1", domain.CollectionFavorites, "A", Row{ProductID: "A"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, gobreaker.StateClosed, b.State())

	rows, err := b.Fetch(ctx, "u1", domain.CollectionFavorites)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, b.Delete(ctx, "u1", domain.CollectionFavorites, "A"))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
