package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer}
}

// PublishEvent writes an outbox event keyed by its aggregate, so all events of
// one order land on the same partition in commit order.
func (p *Producer) PublishEvent(ctx context.Context, event store.Event) error {
	return p.Publish(ctx, event.AggregateType+"-"+event.AggregateID, event)
}

func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
