package kstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"repdir-backend/internal/model"
)

// Publisher sends directory change events somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, evt model.ChangeEvent) error
	Close() error
}

// KafkaPublisher writes ChangeEvents to one topic using segmentio/kafka-go.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher constructs a producer for topic on broker.
// kafka.Writer batches and retries internally; one writer is shared by all requests.
func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same locality, same partition
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish encodes evt and hands it to the writer. The message key is the
// locality so per-locality ordering is kept.
func (p *KafkaPublisher) Publish(ctx context.Context, evt model.ChangeEvent) error {
	msg, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func encodeEvent(evt model.ChangeEvent) (kafka.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode change event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.Locality),
		Value: data,
		Time:  time.Now(),
	}, nil
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ChangeEvent) error { return nil }
func (NopPublisher) Close() error                                     { return nil }

// NewPublisher returns a Kafka publisher for broker, or a NopPublisher when
// broker is empty.
func NewPublisher(broker, topic string) Publisher {
	if broker == "" {
		return NopPublisher{}
	}
	return NewKafkaPublisher(broker, topic)
}
