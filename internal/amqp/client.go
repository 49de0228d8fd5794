// Package amqp queues donation export messages for the background worker.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Client owns one connection and one channel. The exchange is direct and the
// queue name doubles as the routing key, so every published message lands on
// the single export queue.
type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
}

// NewClient dials the broker and declares the durable exchange, queue and
// binding before returning.
func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Client{conn: conn, channel: channel, exchange: exchange, queue: queue}

	if err := channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := channel.QueueBind(queue, queue, exchange, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return c, nil
}

// PublishDonationExport queues a donation log row for export. Messages are
// persistent so a broker restart does not lose them.
func (c *Client) PublishDonationExport(ctx context.Context, id int64) error {
	body, err := NewDonationExportMessage(id).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published donation export message", "id", id, "queue", c.queue)
	return nil
}

// ConsumeDonationExports delivers export messages to the handler until the
// context is cancelled or the delivery channel closes.
func (c *Client) ConsumeDonationExports(ctx context.Context, handler func(*DonationExportMessage) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	slog.InfoContext(ctx, "Started consuming donation export messages", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.dispatch(ctx, delivery, handler)
		}
	}
}

// dispatch acknowledges manually: a handler error requeues the delivery, an
// unparseable body is dropped so it cannot poison the queue.
func (c *Client) dispatch(ctx context.Context, delivery amqp091.Delivery, handler func(*DonationExportMessage) error) {
	msg, err := DonationExportMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		delivery.Nack(false, false)
		return
	}

	if err := handler(msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message", "id", msg.ID, "error", err)
		delivery.Nack(false, true)
		return
	}

	delivery.Ack(false)
	slog.InfoContext(ctx, "Processed donation export message", "id", msg.ID)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
