package events

import "context"

// NoopPublisher drops every event. It is the default backend so the
// service runs without a broker.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
