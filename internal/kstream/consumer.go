package kstream

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"repdir-backend/internal/model"
)

// KafkaReader creates a consumer-group reader on topic.
func KafkaReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID, // offsets are committed per group
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// ConsumeChanges reads ChangeEvents from topic and calls handle for each one
// until ctx is cancelled. Undecodable messages are logged and skipped.
func ConsumeChanges(ctx context.Context, broker, topic, groupID string, logger *zap.Logger, handle func(model.ChangeEvent)) error {
	reader := KafkaReader(broker, topic, groupID)
	defer reader.Close()

	logger.Info("consuming change events", zap.String("topic", topic), zap.String("group", groupID))

	for {
		// ReadMessage blocks until a message arrives and commits it for the group.
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		evt, err := decodeEvent(msg.Value)
		if err != nil {
			logger.Warn("skipping undecodable change event", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		handle(evt)
	}
}

func decodeEvent(data []byte) (model.ChangeEvent, error) {
	var evt model.ChangeEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, err
	}
	if evt.Action == "" || evt.Locality == "" {
		return evt, errors.New("change event missing action or locality")
	}
	return evt, nil
}
