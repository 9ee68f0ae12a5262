package kafka

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	kafka_config "stayledger/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Producer writes marketplace events to a single topic. A write that
// still fails after the producer's own retries is copied onto the DLQ
// topic with the failure recorded in headers, so no event disappears
// silently.
type Producer struct {
	writer     *kafka.Writer
	dlq        *kafka.Writer
	topic      string
	middleware []ProducerMiddleware
	mu         sync.RWMutex
	closed     bool
}

// ProducerMiddleware wraps every Publish call, e.g. for logging or
// throughput counters.
type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

func NewProducer(cfg *kafka_config.Config, topic string, dlqTopic string) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	producer := &Producer{
		writer: newTopicWriter(cfg.Brokers, topic, writerSettings{
			acks:         requiredAcks(cfg.ProducerRequireAcks),
			compression:  compressionCodec(cfg.ProducerCompression),
			maxAttempts:  cfg.ProducerMaxAttempts,
			batchTimeout: cfg.ProducerBatchTimeout,
			async:        cfg.ProducerAsync,
		}),
		topic: topic,
	}

	if dlqTopic != "" {
		producer.dlq = newDLQWriter(cfg.Brokers, dlqTopic, compressionCodec(cfg.ProducerCompression))
	}

	return producer, nil
}

type writerSettings struct {
	acks         kafka.RequiredAcks
	compression  compress.Compression
	maxAttempts  int
	batchTimeout time.Duration
	async        bool
}

func newTopicWriter(brokers []string, topic string, s writerSettings) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Hash by key so a property's events stay ordered
		RequiredAcks: s.acks,
		Compression:  s.compression,
		MaxAttempts:  s.maxAttempts,
		BatchTimeout: s.batchTimeout,
		Async:        s.async,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:  kafka.LoggerFunc(log.Printf),
	}
}

// newDLQWriter always requires acks from all replicas; the DLQ is the
// last stop for a failed event.
func newDLQWriter(brokers []string, topic string, compression compress.Compression) *kafka.Writer {
	return newTopicWriter(brokers, topic, writerSettings{
		acks:        kafka.RequireAll,
		compression: compression,
		maxAttempts: 3,
	})
}

func requiredAcks(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.Snappy
	}
}

// Use appends middleware; the first added runs outermost.
func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	handler := p.write
	for i := len(p.middleware) - 1; i >= 0; i-- {
		middleware := p.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	p.mu.RUnlock()

	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}

	return handler(ctx, msg)
}

func (p *Producer) write(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	if err == nil {
		return nil
	}

	if p.dlq != nil {
		if dlqErr := divertToDLQ(ctx, p.dlq, msg, p.topic, err); dlqErr != nil {
			return fmt.Errorf("failed to send to DLQ: %v (original error: %v)", dlqErr, err)
		}
	}
	return err
}

// divertToDLQ copies a failed message onto the DLQ topic, recording where
// it came from and why it failed. Shared by the producer and consumer.
func divertToDLQ(ctx context.Context, w *kafka.Writer, msg Message, originalTopic string, cause error) error {
	if msg.Headers == nil {
		msg.Headers = make(map[string]string, 3)
	}
	msg.Headers[HeaderOriginalTopic] = originalTopic
	msg.Headers["dlq-error"] = cause.Error()
	msg.Headers["dlq-timestamp"] = time.Now().Format(time.RFC3339)

	out := toKafkaMessage(msg)
	out.Time = time.Now()
	return w.WriteMessages(ctx, out)
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlq != nil {
		if dlqErr := p.dlq.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
