package payment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// ConfirmationSource is the step the poller runs before reading the
// authoritative status.  The poller does not know which implementation is
// wired.
type ConfirmationSource interface {
	Confirm(ctx context.Context, sess model.PaymentSession) error
}

// CallbackSender posts a provider-shaped payload to the backend's test
// endpoint.
type CallbackSender interface {
	TestCallback(ctx context.Context, p model.CallbackPayload) error
}

// SimulatedSource stands in for the wallet provider in test mode: it posts a
// successful callback for the order and waits for the backend to settle.
// It must not be wired against a production backend.
type SimulatedSource struct {
	sender CallbackSender
	settle time.Duration
	log    *logrus.Entry
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSimulatedSource returns a test-mode source.
func NewSimulatedSource(s CallbackSender, settle time.Duration, log *logrus.Logger) *SimulatedSource {
	return &SimulatedSource{
		sender: s,
		settle: settle,
		log:    log.WithField("component", "payment-simulated"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Confirm implements ConfirmationSource.
func (s *SimulatedSource) Confirm(ctx context.Context, sess model.PaymentSession) error {
	p := simulatedPayload(sess, s.now())
	s.log.WithFields(logrus.Fields{"order_id": p.OrderID, "request_id": p.RequestID}).Info("posting simulated wallet callback")
	if err := s.sender.TestCallback(ctx, p); err != nil {
		return fmt.Errorf("simulated callback: %w", err)
	}
	if s.settle > 0 {
		return s.sleep(ctx, s.settle)
	}
	return nil
}

func simulatedPayload(sess model.PaymentSession, now time.Time) model.CallbackPayload {
	return model.CallbackPayload{
		PartnerCode:  "MOMO",
		OrderID:      sess.OrderID,
		RequestID:    "REQ_" + uuid.NewString(),
		Amount:       int64(math.Round(sess.Amount)),
		OrderInfo:    "Movie ticket payment - Order " + sess.OrderID,
		OrderType:    "momo_wallet",
		TransID:      rand.Int63n(1_000_000_000),
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: now.UnixMilli(),
		ExtraData:    "",
		Signature:    "fake_signature_for_testing",
	}
}

// Hub fans payment notifications out to waiting push sources.  The latest
// notification per order is retained so a waiter that arrives late still
// sees it.
type Hub struct {
	mu      sync.Mutex
	waiters map[string][]chan model.PaymentNotification
	latest  map[string]model.PaymentNotification
	order   []string
	keep    int
}

// NewHub returns a hub retaining the latest notification of up to keep
// orders.
func NewHub(keep int) *Hub {
	if keep <= 0 {
		keep = 64
	}
	return &Hub{
		waiters: make(map[string][]chan model.PaymentNotification),
		latest:  make(map[string]model.PaymentNotification),
		keep:    keep,
	}
}

// Publish records n and wakes everyone waiting on its order.
func (h *Hub) Publish(n model.PaymentNotification) {
	if n.OrderID == "" {
		return
	}
	h.mu.Lock()
	if _, seen := h.latest[n.OrderID]; !seen {
		h.order = append(h.order, n.OrderID)
		if len(h.order) > h.keep {
			delete(h.latest, h.order[0])
			h.order = h.order[1:]
		}
	}
	h.latest[n.OrderID] = n
	ws := h.waiters[n.OrderID]
	delete(h.waiters, n.OrderID)
	h.mu.Unlock()

	for _, w := range ws {
		w <- n
	}
}

// Wait returns the retained notification for orderID, or blocks until one
// arrives or ctx is done.
func (h *Hub) Wait(ctx context.Context, orderID string) (model.PaymentNotification, bool) {
	h.mu.Lock()
	if n, ok := h.latest[orderID]; ok {
		h.mu.Unlock()
		return n, true
	}
	ch := make(chan model.PaymentNotification, 1)
	h.waiters[orderID] = append(h.waiters[orderID], ch)
	h.mu.Unlock()

	select {
	case n := <-ch:
		return n, true
	case <-ctx.Done():
		h.mu.Lock()
		ws := h.waiters[orderID]
		for i, w := range ws {
			if w == ch {
				h.waiters[orderID] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		if len(h.waiters[orderID]) == 0 {
			delete(h.waiters, orderID)
		}
		h.mu.Unlock()
		return model.PaymentNotification{}, false
	}
}

// PushSource waits for the backend's settlement to be pushed to the client,
// through the callback listener or the payment status queue.  A timeout is
// not an error: the poller reads the authoritative status either way.
type PushSource struct {
	hub  *Hub
	wait time.Duration
	log  *logrus.Entry
}

// NewPushSource returns a source waiting up to wait on hub.
func NewPushSource(hub *Hub, wait time.Duration, log *logrus.Logger) *PushSource {
	return &PushSource{hub: hub, wait: wait, log: log.WithField("component", "payment-push")}
}

// Confirm implements ConfirmationSource.
func (s *PushSource) Confirm(ctx context.Context, sess model.PaymentSession) error {
	wctx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()
	n, ok := s.hub.Wait(wctx, sess.OrderID)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.WithField("order_id", sess.OrderID).Info("no notification before timeout; checking status anyway")
		return nil
	}
	s.log.WithFields(logrus.Fields{"order_id": n.OrderID, "status": n.Status, "source": n.Source}).Info("payment notification received")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
