package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one booking confirmation.
type Handler func(ctx context.Context, event BookingConfirmedEvent) error

// Consumer reads booking confirmations and hands them to a Handler.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handler  Handler
	log      logrus.FieldLogger

	maxBackoff time.Duration
}

// NewConsumer creates a consumer for queueName on the broker at url.
func NewConsumer(url, queueName string, prefetch int, handler Handler, log logrus.FieldLogger) *Consumer {
	if queueName == "" {
		queueName = BookingConfirmedQueue
	}
	if prefetch <= 0 {
		prefetch = 10
	}
	return &Consumer{
		url:        url,
		queue:      queueName,
		prefetch:   prefetch,
		handler:    handler,
		log:        log.WithField("component", "queue_consumer"),
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is cancelled, reconnecting with backoff whenever
// the broker connection is lost.
func (c *Consumer) Run(ctx context.Context) error {
	b := c.reconnectBackOff()
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			wait := b.NextBackOff()
			c.log.WithError(err).WithField("retry_in", wait.String()).Warn("failed to dial broker")
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		b.Reset()

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended, reconnecting")
		if !sleep(ctx, b.NextBackOff()) {
			return ctx.Err()
		}
	}
}

// reconnectBackOff never gives up; only ctx ends Run.
func (c *Consumer) reconnectBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.WithField("queue", c.queue).Info("consuming booking confirmations")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks on success. A failed delivery is requeued once; a second
// failure or an undecodable body is dropped.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var event BookingConfirmedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.log.WithError(err).Error("undecodable booking confirmation, dropping")
		_ = d.Nack(false, false)
		return
	}

	log := c.log.WithField("booking_id", event.BookingID)
	if err := c.handler(ctx, event); err != nil {
		requeue := !d.Redelivered
		log.WithError(err).WithField("requeue", requeue).Error("booking confirmation failed")
		_ = d.Nack(false, requeue)
		return
	}

	if err := d.Ack(false); err != nil {
		log.WithError(err).Warn("ack failed")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
