package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier uses Redis PUBLISH/SUBSCRIBE, one channel per owner and collection.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (r *RedisNotifier) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	if err := r.client.Publish(ctx, channelName(event.OwnerID, event.Collection), payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription.
func (r *RedisNotifier) Subscribe(ctx context.Context, ownerID string, collection domain.Collection, onChange func()) (Subscription, error) {
	ps := r.client.Subscribe(ctx, channelName(ownerID, collection))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range ps.Channel() {
			onChange()
		}
	}()

	return newStopFunc(func() {
		if err := ps.Close(); err != nil {
			log.Printf("redis unsubscribe error: %v", err)
		}
		<-done
	}), nil
}
