package kafka

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a broker with topic auto-creation, e.g. EC_TEST_KAFKA_BROKERS=localhost:9092.
func TestProducerConsumer_RoundTrip(t *testing.T) {
	brokers := os.Getenv("EC_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("EC_TEST_KAFKA_BROKERS not set")
	}
	topic := "ec-test-" + uuid.NewString()
	addrs := strings.Split(brokers, ",")

	producer := NewProducer(addrs, topic)
	defer producer.Close()
	consumer := NewConsumer(addrs, topic, "ec-test-"+uuid.NewString())
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := store.Event{
		ID:            uuid.NewString(),
		AggregateType: "Order",
		AggregateID:   "12",
		EventType:     "OrderPlaced",
		Data:          json.RawMessage(`{"order_id":12}`),
		Timestamp:     time.Now().UTC(),
	}
	require.NoError(t, producer.PublishEvent(ctx, event))

	type received struct {
		key   string
		event store.Event
	}
	got := make(chan received, 1)
	go func() {
		_ = consumer.Consume(ctx, func(ctx context.Context, key, value []byte) error {
			var e store.Event
			if err := json.Unmarshal(value, &e); err != nil {
				return err
			}
			select {
			case got <- received{string(key), e}:
			default:
			}
			return nil
		})
	}()

	select {
	case r := <-got:
		assert.Equal(t, "Order-12", r.key)
		assert.Equal(t, event.ID, r.event.ID)
		assert.Equal(t, "OrderPlaced", r.event.EventType)
	case <-ctx.Done():
		t.Fatal("event not consumed before timeout")
	}
}
