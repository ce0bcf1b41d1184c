package model

import "time"

// PaymentStatus is the backend's view of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// CreatePaymentRequest is the body of POST /api/payments/create.
type CreatePaymentRequest struct {
	TicketIDs []int64 `json:"ticketIds" validate:"required,min=1"`
	ReturnURL string  `json:"returnUrl" validate:"required,url"`
}

// CreatePaymentResponse is returned by POST /api/payments/create.
type CreatePaymentResponse struct {
	Success    bool    `json:"success"`
	PaymentID  int64   `json:"paymentId"`
	OrderID    string  `json:"orderId"`
	Amount     float64 `json:"amount"`
	PaymentURL string  `json:"paymentUrl"`
	Message    string  `json:"message"`
}

// PaymentSession is the client's record of an in-flight payment.  It is
// persisted under the currentPayment session key until the payment reaches a
// terminal state.
type PaymentSession struct {
	PaymentID  int64     `json:"paymentId" validate:"required"`
	OrderID    string    `json:"orderId" validate:"required"`
	Amount     float64   `json:"amount" validate:"gte=0"`
	PaymentURL string    `json:"paymentUrl" validate:"required"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PaymentStatusResponse is returned by GET /api/payments/status/{orderId}.
// ResultCode is a pointer because the backend omits it until the provider has
// answered.
type PaymentStatusResponse struct {
	Success     bool          `json:"success"`
	PaymentID   int64         `json:"paymentId"`
	OrderID     string        `json:"orderId"`
	Amount      float64       `json:"amount"`
	Status      PaymentStatus `json:"status" validate:"required"`
	ResultCode  *int          `json:"resultCode"`
	Message     string        `json:"message"`
	MomoTransID string        `json:"momoTransId"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

// Code returns ResultCode, or -1 when the backend did not report one.
func (r PaymentStatusResponse) Code() int {
	if r.ResultCode == nil {
		return -1
	}
	return *r.ResultCode
}

// Payment is an entry of the customer's payment history.
type Payment struct {
	ID          int64         `json:"paymentID"`
	Method      string        `json:"method"`
	Amount      float64       `json:"amount"`
	Status      PaymentStatus `json:"status"`
	OrderID     string        `json:"orderId"`
	PaymentURL  string        `json:"paymentUrl"`
	ResultCode  *int          `json:"resultCode"`
	Message     string        `json:"message"`
	MomoTransID string        `json:"momoTransId"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

// CallbackPayload mirrors the wallet provider's IPN body.  The client only
// builds it for POST /api/payments/test-callback; the backend's test route
// skips signature verification.
type CallbackPayload struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId" validate:"required"`
	RequestID    string `json:"requestId" validate:"required"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// PaymentNotification tells a waiting poller that the backend has settled an
// order.  It arrives either at the local callback listener or on the
// payment status queue.
type PaymentNotification struct {
	OrderID    string        `json:"orderId" validate:"required"`
	Status     PaymentStatus `json:"status"`
	ResultCode *int          `json:"resultCode,omitempty"`
	Message    string        `json:"message,omitempty"`
	Source     string        `json:"source,omitempty"`
}

// BookingConfirmedEvent is published once a payment completes so that other
// consumers (mailers, loyalty) can react.
type BookingConfirmedEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	PaymentID   int64     `json:"payment_id"`
	UserID      int64     `json:"user_id,omitempty"`
	Amount      float64   `json:"amount"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
