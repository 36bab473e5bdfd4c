package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	ChangesTopic     = "storefront-changes"
	collectionHeader = "collection"
	readRetryDelay   = time.Second
)

// KafkaNotifier publishes change events keyed by owner id so that one owner's
// events stay ordered, and subscribes with a reader per subscription.
type KafkaNotifier struct {
	brokers []string
	topic   string
	writer  *kafka.Writer
}

func NewKafkaNotifier(brokers ...string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  ChangesTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaNotifier{brokers: brokers, topic: ChangesTopic, writer: w}
}

func (k *KafkaNotifier) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: collectionHeader, Value: []byte(event.Collection)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish failed: %w", err)
	}
	return nil
}

// Subscribe starts a reader in its own consumer group positioned at the end of
// the topic, so only events published after subscribing are seen.
func (k *KafkaNotifier) Subscribe(ctx context.Context, ownerID string, collection domain.Collection, onChange func()) (Subscription, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       k.topic,
		GroupID:     "storefront-sync-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if runCtx.Err() != nil {
				return
			}
			k.readOne(runCtx, reader, ownerID, collection, onChange)
		}
	}()

	return newStopFunc(func() {
		cancel()
		<-done
		if err := reader.Close(); err != nil {
			log.Printf("error closing kafka reader: %v", err)
		}
	}), nil
}

func (k *KafkaNotifier) readOne(ctx context.Context, reader *kafka.Reader, ownerID string, collection domain.Collection, onChange func()) {
	m, err := reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading change message: %v", err)
		select {
		case <-ctx.Done():
		case <-time.After(readRetryDelay):
		}
		return
	}

	if string(m.Key) != ownerID {
		return
	}
	for _, h := range m.Headers {
		if h.Key == collectionHeader && string(h.Value) == string(collection) {
			onChange()
			return
		}
	}
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
