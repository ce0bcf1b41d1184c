// Package payment drives a booking's payment: creating the wallet session,
// confirming it through a pluggable source and polling the backend until the
// payment settles.
package payment

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// ErrBrowserUnavailable is returned by Initiator.Create when the payment
// session was created and persisted but the payment page could not be
// opened.  The session is still valid; show its URL instead.
var ErrBrowserUnavailable = errors.New("payment: could not open the payment page")

// Creator asks the backend for a payment session.
type Creator interface {
	CreatePayment(ctx context.Context, req model.CreatePaymentRequest) (model.CreatePaymentResponse, error)
}

// Saver persists the in-flight payment session.
type Saver interface {
	SavePayment(ctx context.Context, p model.PaymentSession) error
}

// URLOpener opens a URL outside the terminal, e.g. in the system browser.
type URLOpener interface {
	Open(url string) error
}

// URLOpenerFunc adapts a function to URLOpener.
type URLOpenerFunc func(url string) error

func (f URLOpenerFunc) Open(url string) error { return f(url) }

// SystemBrowser opens URLs with the platform's default handler.
var SystemBrowser URLOpener = URLOpenerFunc(openURL)

func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported OS for opening browser: %s", runtime.GOOS)
	}
}

// Initiator creates payment sessions.
type Initiator struct {
	creator Creator
	saver   Saver
	opener  URLOpener
	log     *logrus.Entry
	now     func() time.Time
}

// NewInitiator wires an initiator.  opener may be nil to never open pages.
func NewInitiator(c Creator, s Saver, opener URLOpener, log *logrus.Logger) *Initiator {
	return &Initiator{creator: c, saver: s, opener: opener, log: log.WithField("component", "payment"), now: time.Now}
}

// Create requests a payment for ticketIDs, persists the session under the
// currentPayment key and only then opens the payment page, so a crash after
// opening can always be resumed.
func (i *Initiator) Create(ctx context.Context, ticketIDs []int64, returnURL string) (model.PaymentSession, error) {
	resp, err := i.creator.CreatePayment(ctx, model.CreatePaymentRequest{TicketIDs: ticketIDs, ReturnURL: returnURL})
	if err != nil {
		return model.PaymentSession{}, err
	}
	sess := model.PaymentSession{
		PaymentID:  resp.PaymentID,
		OrderID:    resp.OrderID,
		Amount:     resp.Amount,
		PaymentURL: resp.PaymentURL,
		CreatedAt:  i.now().UTC(),
	}
	if err := i.saver.SavePayment(ctx, sess); err != nil {
		return model.PaymentSession{}, fmt.Errorf("persist payment session: %w", err)
	}
	i.log.WithFields(logrus.Fields{"order_id": sess.OrderID, "amount": sess.Amount}).Info("payment session created")

	if i.opener == nil {
		return sess, nil
	}
	if err := i.opener.Open(sess.PaymentURL); err != nil {
		i.log.WithField("order_id", sess.OrderID).Warnf("open payment page: %v", err)
		return sess, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	return sess, nil
}
