package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Publisher receives decoded notifications; payment.Hub implements it.
type Publisher interface {
	Publish(n model.PaymentNotification)
}

// Consumer feeds payment.status messages to a Publisher.
type Consumer struct {
	url string
	pub Publisher
	log *logrus.Entry
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, pub Publisher, log *logrus.Logger) *Consumer {
	return &Consumer{url: url, pub: pub, log: log.WithField("component", "payment-consumer")}
}

// Run connects to the broker, declares the payment.status queue and consumes
// it.  Broken connections are re-dialled with exponential backoff capped at
// 30s.  Run returns only when ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warnf("dial broker: %v; retrying in %s", err, backoff)
			if !wait(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warnf("consume loop ended: %v; reconnecting", err)
		if !wait(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warnf("set QoS: %v", err)
	}
	if _, err := ch.QueueDeclare(PaymentStatusQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, PaymentStatusQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("consuming payment status updates")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				c.log.Warnf("handle message: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	n, err := decodeNotification(body)
	if err != nil {
		return err
	}
	c.pub.Publish(n)
	c.log.WithFields(logrus.Fields{"order_id": n.OrderID, "status": n.Status}).Info("payment status received")
	return nil
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
