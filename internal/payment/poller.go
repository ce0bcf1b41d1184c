package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// State is the poller's position in the payment result flow.
type State string

const (
	StateAwaiting   State = "AWAITING_CONFIRMATION"
	StateChecking   State = "CHECKING"
	StateSuccess    State = "SUCCESS"
	StateFailed     State = "FAILED"
	StateProcessing State = "PROCESSING"
)

// Terminal reports whether no further checks happen from s.
func (s State) Terminal() bool { return s == StateSuccess || s == StateFailed }

const defaultFailure = "Payment failed"

// StatusReader reads the authoritative payment status.
type StatusReader interface {
	PaymentStatus(ctx context.Context, orderID string) (model.PaymentStatusResponse, error)
}

// SessionClearer removes the persisted payment session.
type SessionClearer interface {
	ClearPayment(ctx context.Context) error
}

// Options tunes a Poller.  Countdowns are in ticks; the UI ticks once per
// second.
type Options struct {
	ConfirmCountdown  int
	RedirectCountdown int
}

// Action tells the caller of Tick or CheckNow what to do next.
type Action int

const (
	ActionNone Action = iota
	// ActionCheck means a check was started; the caller must run Check.
	ActionCheck
	// ActionNavigate means the success redirect countdown just reached
	// zero.  It is returned once per poller.
	ActionNavigate
)

// Snapshot is a copy of the poller's observable state.  Seq grows with
// every change, so a consumer can drop snapshots that arrive out of order.
type Snapshot struct {
	Seq        uint64
	State      State
	Countdown  int
	RedirectIn int
	Message    string
	Note       string
	NeedsLogin bool
	Navigated  bool
	Status     *model.PaymentStatusResponse
	Session    model.PaymentSession
}

// Poller is the payment status state machine for one payment session.
// Ticks and checks may arrive from different goroutines; state is guarded
// by mu.
type Poller struct {
	sess   model.PaymentSession
	reader StatusReader
	source ConfirmationSource
	store  SessionClearer
	opts   Options
	log    *logrus.Entry

	mu         sync.Mutex
	seq        uint64
	state      State
	countdown  int
	redirectIn int
	message    string
	note       string
	needsLogin bool
	status     *model.PaymentStatusResponse
	checking   bool
	closed     bool
	navigated  bool
}

// NewPoller returns a poller in AWAITING_CONFIRMATION.
func NewPoller(sess model.PaymentSession, reader StatusReader, source ConfirmationSource, store SessionClearer, opts Options, log *logrus.Logger) *Poller {
	if opts.ConfirmCountdown <= 0 {
		opts.ConfirmCountdown = 10
	}
	if opts.RedirectCountdown <= 0 {
		opts.RedirectCountdown = 5
	}
	return &Poller{
		sess:       sess,
		reader:     reader,
		source:     source,
		store:      store,
		opts:       opts,
		log:        log.WithFields(logrus.Fields{"component": "payment-poller", "order_id": sess.OrderID}),
		state:      StateAwaiting,
		countdown:  opts.ConfirmCountdown,
		redirectIn: opts.RedirectCountdown,
	}
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	s := Snapshot{
		Seq:        p.seq,
		State:      p.state,
		Countdown:  p.countdown,
		RedirectIn: p.redirectIn,
		Message:    p.message,
		Note:       p.note,
		NeedsLogin: p.needsLogin,
		Navigated:  p.navigated,
		Session:    p.sess,
	}
	if p.status != nil {
		st := *p.status
		s.Status = &st
	}
	return s
}

// Tick advances the active countdown by one.  When the confirmation
// countdown reaches zero the poller moves to CHECKING and returns
// ActionCheck; the check itself is left to the caller.
func (p *Poller) Tick() (Snapshot, Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.snapshotLocked(), ActionNone
	}
	switch p.state {
	case StateAwaiting:
		p.seq++
		p.countdown--
		if p.countdown > 0 {
			return p.snapshotLocked(), ActionNone
		}
		p.countdown = 0
		if !p.beginLocked() {
			return p.snapshotLocked(), ActionNone
		}
		return p.snapshotLocked(), ActionCheck
	case StateSuccess:
		if p.navigated {
			return p.snapshotLocked(), ActionNone
		}
		p.seq++
		p.redirectIn--
		if p.redirectIn > 0 {
			return p.snapshotLocked(), ActionNone
		}
		p.redirectIn = 0
		p.navigated = true
		p.log.Info("redirecting to tickets")
		return p.snapshotLocked(), ActionNavigate
	}
	return p.snapshotLocked(), ActionNone
}

// CheckNow skips the remaining confirmation countdown, or re-checks from
// PROCESSING.  It returns ActionCheck when a check was started and is
// ignored in any other state and after Close.
func (p *Poller) CheckNow() (Snapshot, Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || (p.state != StateAwaiting && p.state != StateProcessing) {
		return p.snapshotLocked(), ActionNone
	}
	p.countdown = 0
	if !p.beginLocked() {
		return p.snapshotLocked(), ActionNone
	}
	return p.snapshotLocked(), ActionCheck
}

// Check runs the confirmation source and reads the authoritative status,
// then returns the settled snapshot.  It does nothing unless Tick or
// CheckNow returned ActionCheck.
func (p *Poller) Check(ctx context.Context) Snapshot {
	p.mu.Lock()
	running := p.checking && !p.closed
	p.mu.Unlock()
	if running {
		p.check(ctx)
	}
	return p.Snapshot()
}

// Close stops the poller; later ticks and checks are ignored and a running
// check's result is dropped.
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Poller) beginLocked() bool {
	if p.checking {
		return false
	}
	p.checking = true
	p.seq++
	p.state = StateChecking
	p.note = ""
	return true
}

func (p *Poller) check(ctx context.Context) {
	var note string
	if err := p.source.Confirm(ctx, p.sess); err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			p.settle(StateFailed, "Your session has expired. Please log in again.", "", true, nil)
			return
		}
		p.log.Warnf("confirmation step: %v", err)
		note = "Could not confirm the payment: " + err.Error()
	}

	st, err := p.reader.PaymentStatus(ctx, p.sess.OrderID)
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		p.settle(StateFailed, "Your session has expired. Please log in again.", note, true, nil)
	case err != nil:
		p.log.Warnf("status check: %v", err)
		p.settle(StateProcessing, "", "Could not reach the server: "+err.Error(), false, nil)
	default:
		state, msg := classify(st)
		p.settle(state, msg, note, false, &st)
	}
}

// classify maps a backend status to the poller state and display message.
func classify(st model.PaymentStatusResponse) (State, string) {
	code := st.Code()
	switch {
	case code == 0 && st.Status == model.PaymentCompleted:
		return StateSuccess, st.Message
	case st.Status == model.PaymentFailed || (st.ResultCode != nil && code != 0):
		if st.Message == "" {
			return StateFailed, defaultFailure
		}
		return StateFailed, st.Message
	default:
		return StateProcessing, st.Message
	}
}

func (p *Poller) settle(state State, msg, note string, needsLogin bool, st *model.PaymentStatusResponse) {
	p.mu.Lock()
	p.checking = false
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.seq++
	p.state = state
	p.message = msg
	p.note = note
	p.needsLogin = needsLogin
	if st != nil {
		p.status = st
	}
	if state == StateSuccess {
		p.redirectIn = p.opts.RedirectCountdown
	}
	p.mu.Unlock()

	p.log.WithField("state", state).Info("payment status settled")
	if state.Terminal() && p.store != nil {
		if err := p.store.ClearPayment(context.Background()); err != nil {
			p.log.Warnf("clear payment session: %v", err)
		}
	}
}
