// Package service publishes analysis events to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/rental-analytics/internal/queue"
)

// Publisher sends events to a single broker.
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, ev queue.AnalysisCompletedEvent) error
}

// NopPublisher drops every event. The server uses it when events are
// disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAnalysisCompleted(context.Context, queue.AnalysisCompletedEvent) error {
	return nil
}

// AMQPPublisher publishes persistent messages to the durable
// analysis.completed queue. It dials lazily and redials after the
// connection drops.
type AMQPPublisher struct {
	url    string
	logger log.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, logger log.Logger) *AMQPPublisher {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &AMQPPublisher{url: url, logger: log.With(logger, "component", "publisher")}
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}
	p.conn = conn
	return conn, nil
}

// PublishAnalysisCompleted publishes ev. Errors are logged and returned; the
// caller may ignore them.
func (p *AMQPPublisher) PublishAnalysisCompleted(ctx context.Context, ev queue.AnalysisCompletedEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		level.Warn(p.logger).Log("msg", "publish failed", "analysis", ev.Analysis, "err", err)
	}
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.AnalysisCompletedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.AnalysisCompletedQueue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	return errors.Wrap(ch.PublishWithContext(ctx, "", queue.AnalysisCompletedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}), "publish")
}

// Close closes the broker connection, if any.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
