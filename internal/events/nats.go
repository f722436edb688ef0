package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NatsPublisher publishes events on their subject with the caller's trace
// context injected into the message headers.
type NatsPublisher struct {
	nc *nats.Conn
}

// ConnectNATS dials url and returns a publisher owning the connection.
func ConnectNATS(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("pawfeed-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNatsPublisher(nc), nil
}

// NewNatsPublisher wraps an existing connection.
func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(ctx context.Context, e Event) error {
	data, err := encode(e)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: e.Subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	return p.nc.PublishMsg(msg)
}

func (p *NatsPublisher) Backend() string { return "nats" }

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
