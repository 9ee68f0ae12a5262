package events

import (
	"context"

	"stayledger/pkg/kafka"
	kafka_config "stayledger/pkg/kafka/config"
	kafka_middleware "stayledger/pkg/kafka/middleware"
	"stayledger/pkg/logger"
)

// KafkaPublisher writes events to a single topic, hashed by event key.
type KafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaPublisher loads the broker tuning from the environment and
// opens a producer on the given topic. Failed publishes land on the
// topic's DLQ.
func NewKafkaPublisher(topic string, source string, log *logger.Logger) (*KafkaPublisher, error) {
	cfg, err := kafka_config.Load()
	if err != nil {
		return nil, err
	}
	cfg.LogConfiguration(log.Info)

	producer, err := kafka.NewProducer(cfg, topic, "dlq-"+topic)
	if err != nil {
		return nil, err
	}

	if cfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	return &KafkaPublisher{
		producer: producer,
		source:   source,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg := kafka.NewMessage().
		WithKey(event.Key).
		WithValue(event.Payload).
		WithEventType(event.Type).
		WithSchemaVersion("1").
		WithSource(p.source).
		Build()

	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
