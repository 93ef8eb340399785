package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks a handler failure that retrying cannot fix. Such
// deliveries are rejected without requeue.
var ErrPermanent = errors.New("permanent failure")

// prefetchCount bounds unacknowledged deliveries per consumer.
const prefetchCount = 10

// Handler processes one change event.
type Handler func(ctx context.Context, ev *ChangeEvent) error

// ChangeEventFromJSON decodes a published change event.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal change event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("change event without type")
	}
	return &ev, nil
}

// BindingKey matches every event published under prefix.
func BindingKey(prefix string) string {
	if prefix == "" {
		return "#"
	}
	return prefix + ".#"
}

// Consume declares a durable queue bound to the exchange and feeds every
// delivery to handler until ctx is done or the channel closes. Successful
// deliveries are acked; failures are requeued unless they wrap ErrPermanent.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return amqp091.ErrClosed
	}

	if _, err := channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	key := BindingKey(c.routingPrefix)
	if err := channel.QueueBind(queue, key, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	if err := channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming change events",
		"queue", queue,
		"exchange", c.exchangeName,
		"binding_key", key)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery handleDelivery settles with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	settle(ctx, &d, d.Body, handler)
}

func settle(ctx context.Context, ack acknowledger, body []byte, handler Handler) {
	ev, err := ChangeEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		_ = ack.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, ev); err != nil {
		requeue := !errors.Is(err, ErrPermanent)
		slog.ErrorContext(ctx, "Failed to handle change event",
			"error", err,
			"type", ev.Type,
			"id", ev.ID,
			"requeue", requeue)
		_ = ack.Nack(false, requeue)
		return
	}

	_ = ack.Ack(false)
	slog.DebugContext(ctx, "Processed change event", "type", ev.Type, "id", ev.ID)
}
