package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/complaintflow/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, event models.ComplaintEvent) error
	Close()
}

type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type KafkaPublisher struct {
	producer producer
	topic    string
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker),
		slog.String("topic", cfg.Topic))

	p, err := kafka.NewProducer(ProducerConfigMap(cfg))
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &KafkaPublisher{producer: p, topic: cfg.Topic}, nil
}

// Publish sends the event keyed by complaint id and waits for its delivery report.
func (k *KafkaPublisher) Publish(ctx context.Context, event models.ComplaintEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to marshal event: %w", err)
	}

	topic := k.topic
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ComplaintID),
		Value:          jsonData,
		Headers:        []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
	}

	deliveryChan := make(chan kafka.Event, 1)
	for i := 0; i < MAX_RETRIES; i++ {
		err = k.producer.Produce(msg, deliveryChan)
		if err == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		time.Sleep(RETRY_DELAY)
	}
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to produce after %d attempts: %w", MAX_RETRIES, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("[KafkaClient] unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("[KafkaClient] delivery failed: %w", m.TopicPartition.Error)
		}
	}

	slog.Info("[KafkaClient] Published complaint event",
		slog.String("topic", topic),
		slog.String("type", string(event.Type)),
		slog.String("complaint_id", event.ComplaintID))
	return nil
}

func (k *KafkaPublisher) Close() {
	slog.Info("[KafkaClient] Shutting down Kafka producer...")
	if k.producer == nil {
		return
	}
	if remaining := k.producer.Flush(FLUSH_TIMEOUT_MS); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	k.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event models.ComplaintEvent) error {
	slog.Debug("[KafkaClient] Publishing disabled, dropping event",
		slog.String("type", string(event.Type)),
		slog.String("complaint_id", event.ComplaintID))
	return nil
}

func (NoopPublisher) Close() {}
