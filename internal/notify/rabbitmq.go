package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeOrderEvents is the fanout exchange SMS or analytics consumers bind to.
const ExchangeOrderEvents = "order_events"

const publishTimeout = 5 * time.Second

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("amqp publisher closed")

// session is an open connection plus channel with the exchange declared.
type session interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a session. The returned channel fires when the broker
// connection is lost.
type dialFunc func(url string) (session, <-chan *amqp.Error, error)

// AMQPPublisher publishes events to a RabbitMQ fanout exchange. A lost
// connection is redialed on the next Publish; events published while the
// broker is down fail and are not queued.
type AMQPPublisher struct {
	url  string
	dial dialFunc

	mu     sync.Mutex
	sess   session
	lost   <-chan *amqp.Error
	closed bool
}

// NewAMQPPublisher dials RabbitMQ and declares the order events exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, dial: dialSession}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// Publish sends ev with the event type as routing key. A failed publish drops
// the session and is tried once more on a fresh one.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := toPublishing(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	for attempt := 0; ; attempt++ {
		if p.sess == nil || connectionLost(p.lost) {
			if err := p.connect(); err != nil {
				return fmt.Errorf("publish %s: %w", ev.Type, err)
			}
		}
		err := p.sess.PublishWithContext(ctx, ExchangeOrderEvents, ev.Type, false, false, msg)
		if err == nil {
			return nil
		}
		p.drop()
		if attempt > 0 || ctx.Err() != nil {
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
	}
}

// Close closes the session. Later publishes return ErrPublisherClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.sess == nil {
		return nil
	}
	err := p.sess.Close()
	p.sess, p.lost = nil, nil
	return err
}

// connect replaces the current session. Caller holds p.mu.
func (p *AMQPPublisher) connect() error {
	p.drop()
	sess, lost, err := p.dial(p.url)
	if err != nil {
		return err
	}
	p.sess, p.lost = sess, lost
	return nil
}

// drop closes and forgets the current session. Caller holds p.mu.
func (p *AMQPPublisher) drop() {
	if p.sess != nil {
		p.sess.Close() //nolint:errcheck
	}
	p.sess, p.lost = nil, nil
}

func connectionLost(lost <-chan *amqp.Error) bool {
	select {
	case <-lost:
		return true
	default:
		return false
	}
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func dialSession(url string) (session, <-chan *amqp.Error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ExchangeOrderEvents, // name
		"fanout",            // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	lost := conn.NotifyClose(make(chan *amqp.Error, 1))
	return &amqpSession{conn: conn, ch: ch}, lost, nil
}

func (s *amqpSession) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return s.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (s *amqpSession) Close() error {
	if err := s.ch.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

func toPublishing(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.OrderID.String() + ":" + ev.Type,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}, nil
}
