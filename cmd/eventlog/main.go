package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stayledger/pkg/config"
	"stayledger/pkg/kafka"
	kafka_config "stayledger/pkg/kafka/config"
	kafka_middleware "stayledger/pkg/kafka/middleware"
	"stayledger/pkg/logger"

	"github.com/streadway/amqp"
)

const (
	ServiceName = "eventlog"
	GroupID     = "eventlog"
)

// The event log tails the marketplace event stream and writes every
// committed change to the structured log, giving operators an audit
// trail independent of the primary store.
func main() {
	cfg := config.Load(ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	switch cfg.EventsBackend {
	case config.EventsKafka:
		runKafka(ctx, cfg, shutdown)
	case config.EventsAmqp:
		runAmqp(cfg, shutdown)
	default:
		cfg.Log.Fatal("Event log requires a broker backend", "events_backend", cfg.EventsBackend)
	}
}

func runKafka(ctx context.Context, cfg *config.Config, shutdown chan os.Signal) {
	log := cfg.Log

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		log.Fatal("Failed to load Kafka configuration", "error", err)
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.KafkaTopic, GroupID, "dlq-"+cfg.KafkaTopic, logKafkaEvent(log))
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	if err := consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start Kafka consumer", "error", err)
	}
	log.Info("Event log tailing Kafka topic", "topic", cfg.KafkaTopic, "group", GroupID)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snapshot := kafka_middleware.GetMetrics().Snapshot()
			log.Info("Consumer throughput",
				"consumed", snapshot.MessagesConsumed,
				"failed", snapshot.MessagesConsumedFailed,
				"avg_duration", snapshot.AvgConsumeDuration.String(),
			)
		case <-shutdown:
			log.Info("Shutting down event log")
			if err := consumer.Close(); err != nil {
				log.Error("Failed to close consumer", "error", err)
			}
			return
		}
	}
}

func logKafkaEvent(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		log.Info("Event observed",
			"type", msg.GetEventType(),
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"payload", string(msg.Value),
		)
		return nil
	}
}

func runAmqp(cfg *config.Config, shutdown chan os.Signal) {
	log := cfg.Log

	conn, err := amqp.Dial(cfg.AmqpURI)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open channel", "error", err)
	}
	defer ch.Close()

	// Same declaration as the publisher, so whichever side starts
	// first creates the queue.
	if _, err := ch.QueueDeclare(cfg.AmqpQueue, true, false, false, false, nil); err != nil {
		log.Fatal("Failed to declare queue", "error", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatal("Failed to set QoS", "error", err)
	}

	deliveries, err := ch.Consume(
		cfg.AmqpQueue, // queue
		ServiceName,   // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		log.Fatal("Failed to register consumer", "error", err)
	}
	log.Info("Event log tailing AMQP queue", "queue", cfg.AmqpQueue)

	go func() {
		for d := range deliveries {
			key, _ := d.Headers["routing-key"].(string)
			log.Info("Event observed",
				"type", d.Type,
				"key", key,
				"message_id", d.MessageId,
				"source", d.AppId,
				"payload", string(d.Body),
			)
			if err := d.Ack(false); err != nil {
				log.Error("Failed to acknowledge delivery", "error", err)
			}
		}
	}()

	<-shutdown
	log.Info("Shutting down event log")
}
