package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"stayledger/pkg/kafka"
)

// Metrics counts publishes and deliveries across every producer and
// consumer in the process. Durations accumulate for successful
// operations only.
type Metrics struct {
	published       atomic.Int64
	publishedFailed atomic.Int64
	publishNanos    atomic.Int64

	consumed       atomic.Int64
	consumedFailed atomic.Int64
	consumeNanos   atomic.Int64
}

// Snapshot is a point-in-time copy of the counters, safe to log or encode.
type Snapshot struct {
	MessagesPublished       int64         `json:"messages_published"`
	MessagesPublishedFailed int64         `json:"messages_published_failed"`
	AvgPublishDuration      time.Duration `json:"avg_publish_duration"`
	MessagesConsumed        int64         `json:"messages_consumed"`
	MessagesConsumedFailed  int64         `json:"messages_consumed_failed"`
	AvgConsumeDuration      time.Duration `json:"avg_consume_duration"`
}

var globalMetrics = &Metrics{}

// GetMetrics returns the process-wide counters.
func GetMetrics() *Metrics {
	return globalMetrics
}

func (m *Metrics) Snapshot() Snapshot {
	published := m.published.Load()
	consumed := m.consumed.Load()
	return Snapshot{
		MessagesPublished:       published,
		MessagesPublishedFailed: m.publishedFailed.Load(),
		AvgPublishDuration:      avgDuration(m.publishNanos.Load(), published),
		MessagesConsumed:        consumed,
		MessagesConsumedFailed:  m.consumedFailed.Load(),
		AvgConsumeDuration:      avgDuration(m.consumeNanos.Load(), consumed),
	}
}

// Reset zeroes every counter. Intended for tests.
func (m *Metrics) Reset() {
	m.published.Store(0)
	m.publishedFailed.Store(0)
	m.publishNanos.Store(0)
	m.consumed.Store(0)
	m.consumedFailed.Store(0)
	m.consumeNanos.Store(0)
}

func avgDuration(totalNanos, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNanos / count)
}

// MetricsProducerMiddleware counts publish outcomes on the global metrics.
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			globalMetrics.publishedFailed.Add(1)
			return err
		}
		globalMetrics.published.Add(1)
		globalMetrics.publishNanos.Add(int64(time.Since(start)))
		return nil
	}
}

// MetricsConsumerMiddleware counts delivery outcomes on the global metrics.
func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			globalMetrics.consumedFailed.Add(1)
			return err
		}
		globalMetrics.consumed.Add(1)
		globalMetrics.consumeNanos.Add(int64(time.Since(start)))
		return nil
	}
}
