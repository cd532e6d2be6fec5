package kafka_client

import (
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/complaintflow/config"
)

type KafkaConfig struct {
	Broker string
	Topic  string
}

func FromConfig(cfg config.KafkaConfig) KafkaConfig {
	topic := cfg.Topic
	if topic == "" {
		topic = KAFKA_TOPIC_COMPLAINT_EVENTS
	}
	return KafkaConfig{Broker: cfg.Broker, Topic: topic}
}

// ProducerConfigMap returns the librdkafka settings for an idempotent producer.
func ProducerConfigMap(cfg KafkaConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"client.id":                             "complaintflow-api",
	}
}
