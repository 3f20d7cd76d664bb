package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartFulfillmentConsumer consumes order.events until ctx is cancelled,
// redialing the broker with capped exponential backoff. Each event is
// written to the structured log for the print shop.
func StartFulfillmentConsumer(ctx context.Context, url string, log *zap.Logger) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := dialBroker(url, DefaultDialTimeout)
		if err != nil {
			log.Warn("fulfillment consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn("fulfillment consumer: loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("fulfillment consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(OrderEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(OrderEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("fulfillment consumer started", zap.String("queue", OrderEventsQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleOrderEvent(d.Body, log); err != nil {
				log.Warn("fulfillment consumer: bad message", zap.Error(err))
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleOrderEvent decodes one message and logs it.
func HandleOrderEvent(body []byte, log *zap.Logger) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.OrderID == "" {
		return errors.New("order event without orderId")
	}
	log.Info("order ready for fulfillment",
		zap.String("type", ev.Type),
		zap.String("order_id", ev.OrderID),
		zap.String("status", ev.Status),
		zap.String("product", ev.ProductType),
		zap.String("size", ev.Size),
		zap.String("code", ev.UniqueCode),
		zap.String("qr_style", ev.QRStyle),
		zap.Time("occurred_at", ev.OccurredAt),
	)
	return nil
}
