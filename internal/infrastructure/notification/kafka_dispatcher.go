package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"griya/pkg/logger"
)

// KafkaDispatcher publishes notification events for the email/push workers
// to consume. Writes are fire-and-forget with a short timeout so a broker
// outage cannot stall call or chat operations.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    1,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal notification %s: %v", event.Type, err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = d.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.AppointmentID),
		Value: payload,
	})
	if err != nil {
		logger.Error("Failed to publish notification %s: %v", event.Type, err)
	}
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
