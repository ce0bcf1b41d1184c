package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EventPublisher publishes booking.confirmed events.  Each call dials its
// own connection; confirmations are rare.
type EventPublisher struct {
	url string
	log *logrus.Entry
	now func() time.Time
}

// NewEventPublisher returns a publisher for the broker at url.
func NewEventPublisher(url string, log *logrus.Logger) *EventPublisher {
	return &EventPublisher{url: url, log: log.WithField("component", "event-publisher"), now: time.Now}
}

// PublishBookingConfirmed announces a completed payment.  Errors are logged
// and returned; callers may ignore them since the backend already holds the
// confirmed booking.
func (p *EventPublisher) PublishBookingConfirmed(ctx context.Context, sess model.PaymentSession, userID int64) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warnf("dial broker: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warnf("channel open: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	ev := model.BookingConfirmedEvent{
		EventID:     uuid.NewString(),
		OrderID:     sess.OrderID,
		PaymentID:   sess.PaymentID,
		UserID:      userID,
		Amount:      sess.Amount,
		ConfirmedAt: p.now().UTC(),
	}
	if err := publish(ctx, ch, ev); err != nil {
		p.log.WithField("order_id", ev.OrderID).Warnf("publish: %v", err)
		return err
	}
	p.log.WithFields(logrus.Fields{"order_id": ev.OrderID, "event_id": ev.EventID}).Info("booking confirmed event published")
	return nil
}

func publish(ctx context.Context, ch channel, ev model.BookingConfirmedEvent) error {
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.ConfirmedAt,
		Body:         body,
	})
}
