package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	kafka_config "stayledger/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
)

// Consumer tails one topic as part of a consumer group. Start returns
// once the fetch loop is running; Close stops the loop and waits for the
// in-flight message to finish. A message whose handler keeps failing past
// the retry budget is diverted to the DLQ topic and its offset committed,
// so one poison message cannot stall the partition.
type Consumer struct {
	reader     *kafka.Reader
	dlq        *kafka.Writer
	topic      string
	groupID    string
	maxRetries int
	handler    MessageHandler
	middleware []ConsumerMiddleware
	stop       chan struct{}
	mu         sync.Mutex
	started    bool
	closed     bool
	wg         sync.WaitGroup
}

// ConsumerMiddleware wraps the handler for every delivered message.
type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic string, groupID string, dlqTopic string, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		Logger:            kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:       kafka.LoggerFunc(log.Printf),
	})

	consumer := &Consumer{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		maxRetries: cfg.ConsumerMaxRetries,
		handler:    handler,
		stop:       make(chan struct{}),
	}

	if dlqTopic != "" {
		consumer.dlq = newDLQWriter(cfg.Brokers, dlqTopic, compressionCodec(cfg.ProducerCompression))
	}

	return consumer, nil
}

// Use appends middleware; the first added runs outermost. Must be called
// before Start.
func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start launches the fetch loop on its own goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	if c.started {
		return fmt.Errorf("consumer already started")
	}
	c.started = true

	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}

	c.wg.Add(1)
	go c.run(ctx, handler)
	return nil
}

func (c *Consumer) run(ctx context.Context, handler MessageHandler) {
	defer c.wg.Done()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if c.stopping() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("kafka consumer: fetch failed: %v", err)
			select {
			case <-time.After(time.Second):
			case <-c.stop:
				return
			}
			continue
		}

		if err := c.deliver(ctx, handler, fromKafkaMessage(kafkaMsg)); err != nil {
			log.Printf("kafka consumer: message %s dropped to DLQ: %v", string(kafkaMsg.Key), err)
		}

		// Commit regardless: the failed path has already diverted the
		// message, and re-reading it would only fail again.
		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			log.Printf("kafka consumer: commit failed: %v", err)
		}
	}
}

// deliver runs the handler, retrying transient failures until the retry
// budget is spent, then diverts the message to the DLQ.
func (c *Consumer) deliver(ctx context.Context, handler MessageHandler, msg Message) error {
	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		if !ShouldRetry(err, msg.GetRetryCount(), c.maxRetries) {
			if c.dlq != nil {
				msg.Headers["dlq-consumer-group"] = c.groupID
				if dlqErr := divertToDLQ(ctx, c.dlq, msg, c.topic, err); dlqErr != nil {
					log.Printf("kafka consumer: DLQ write failed: %v (original error: %v)", dlqErr, err)
				}
			}
			return err
		}

		msg.IncrementRetryCount()
		log.Printf("kafka consumer: retrying message %s (attempt %d/%d): %v", msg.Key, msg.GetRetryCount(), c.maxRetries, err)
	}
}

func (c *Consumer) stopping() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// Close stops the fetch loop, waits for the in-flight message, and
// releases the reader and DLQ writer.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	c.mu.Unlock()

	// Closing the reader unblocks a pending FetchMessage.
	err := c.reader.Close()
	c.wg.Wait()

	if c.dlq != nil {
		if dlqErr := c.dlq.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
