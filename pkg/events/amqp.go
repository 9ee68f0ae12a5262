package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AMQPPublisher writes events to a durable queue on the default
// exchange. Channels are not safe for concurrent publishing, so a
// mutex serializes writers.
type AMQPPublisher struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queueName  string
	source     string
	mu         sync.Mutex
}

// NewAMQPPublisher connects to the broker and declares the queue so
// events survive a broker restart even when no consumer is attached yet.
func NewAMQPPublisher(uri string, queueName string, source string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPPublisher{
		connection: conn,
		channel:    ch,
		queueName:  queueName,
		source:     source,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.Publish(
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Type:         event.Type,
			AppId:        p.source,
			Timestamp:    time.Now(),
			Headers: amqp.Table{
				"routing-key": event.Key,
			},
			Body: body,
		},
	)
}

// Close closes the channel then the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing channel: %w", err))
		}
	}

	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing AMQP publisher: %v", errs)
	}

	return nil
}
