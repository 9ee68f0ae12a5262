package events

import (
	"context"
	"fmt"

	"stayledger/pkg/config"
	"stayledger/pkg/logger"
)

// Publisher delivers events to a broker. Implementations must be safe
// for concurrent use. Publishing happens after the state change has
// committed, so a failed publish is logged and never rolls anything
// back.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewPublisher builds the publisher named by cfg.EventsBackend. The
// source tag ends up in broker metadata so consumers can tell which
// service emitted an event.
func NewPublisher(cfg *config.Config, source string, log *logger.Logger) (Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		return NewKafkaPublisher(cfg.KafkaTopic, source, log)
	case config.EventsAmqp:
		return NewAMQPPublisher(cfg.AmqpURI, cfg.AmqpQueue, source)
	case config.EventsNone:
		return NewNoopPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown events backend: %s", cfg.EventsBackend)
	}
}
