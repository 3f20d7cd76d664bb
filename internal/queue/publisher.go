package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultDialTimeout bounds the TCP connect and AMQP handshake.
	DefaultDialTimeout = 3 * time.Second
	publishTimeout     = 5 * time.Second
	publishBacklog     = 256
)

// ErrPublishBacklog is returned when the outgoing buffer is full.
var ErrPublishBacklog = errors.New("order event backlog is full")

// dialBroker is amqp.Dial with a bounded connect.
func dialBroker(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// AMQPPublisher hands events to a single background sender, so a slow or
// unreachable broker never holds up the caller. The sender keeps one
// connection and reopens it after a failure.
type AMQPPublisher struct {
	url         string
	log         *zap.Logger
	dialTimeout time.Duration

	events    chan OrderEvent
	done      chan struct{}
	closeOnce sync.Once

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return newAMQPPublisher(url, log, DefaultDialTimeout)
}

func newAMQPPublisher(url string, log *zap.Logger, dialTimeout time.Duration) *AMQPPublisher {
	p := &AMQPPublisher{
		url:         url,
		log:         log,
		dialTimeout: dialTimeout,
		events:      make(chan OrderEvent, publishBacklog),
		done:        make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishOrderEvent queues ev for delivery as a persistent JSON message.
// It does not wait for the broker.
func (p *AMQPPublisher) PublishOrderEvent(_ context.Context, ev OrderEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	select {
	case p.events <- ev:
		return nil
	default:
		p.log.Warn("order event dropped", zap.String("order_id", ev.OrderID), zap.Error(ErrPublishBacklog))
		return ErrPublishBacklog
	}
}

// Close stops accepting events, drains what is queued and closes the
// connection. It must not race with PublishOrderEvent.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.events) })
	<-p.done
	return nil
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	defer p.closeConn()
	for ev := range p.events {
		if err := p.send(ev); err != nil {
			p.log.Warn("order event not published", zap.String("order_id", ev.OrderID), zap.String("type", ev.Type), zap.Error(err))
		}
	}
}

func (p *AMQPPublisher) send(ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", OrderEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		p.closeConn()
		return err
	}
	return nil
}

// channel is only called from the sender goroutine.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeConn()

	conn, err := dialBroker(p.url, p.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	// durable so events survive broker restarts
	if _, err := ch.QueueDeclare(OrderEventsQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) closeConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
