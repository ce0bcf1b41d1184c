// Package queue connects the client to RabbitMQ: it consumes payment status
// updates from the payment.status queue and publishes booking.confirmed
// events once a payment completes.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Queue names.  Both are durable.
const (
	PaymentStatusQueue    = "payment.status"
	BookingConfirmedQueue = "booking.confirmed"
)

// SourceQueue marks notifications that arrived over the broker.
const SourceQueue = "queue"

var validate = validator.New()

// decodeNotification parses and validates a payment.status message body.
func decodeNotification(body []byte) (model.PaymentNotification, error) {
	var n model.PaymentNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return n, fmt.Errorf("unmarshal: %w", err)
	}
	if err := validate.Struct(n); err != nil {
		return n, fmt.Errorf("validate: %w", err)
	}
	n.Source = SourceQueue
	return n, nil
}
