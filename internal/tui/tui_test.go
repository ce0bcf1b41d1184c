package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/logging"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
	"github.com/iliyamo/cinema-ticket-client/internal/payment"
	"github.com/iliyamo/cinema-ticket-client/internal/session"
)

type noopSource struct{}

func (noopSource) Confirm(context.Context, model.PaymentSession) error { return nil }

type recordedEvents struct {
	mu     sync.Mutex
	orders []string
}

func (r *recordedEvents) PublishBookingConfirmed(_ context.Context, sess model.PaymentSession, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, sess.OrderID)
	return nil
}

func newTestModel(t *testing.T, h http.HandlerFunc, signedIn bool) (appModel, *session.Session, *recordedEvents) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	sess := session.New(session.NewMemoryStore())
	if signedIn {
		require.NoError(t, sess.SignIn(context.Background(), model.AuthResponse{Token: "tok", ID: 3, Name: "Lan"}))
	}
	log := logging.Discard()
	client := api.New(config.APIConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, sess, log)
	events := &recordedEvents{}
	deps := Deps{
		API:       client,
		Session:   sess,
		Initiator: payment.NewInitiator(client, sess, payment.URLOpenerFunc(func(string) error { return nil }), log),
		Source:    noopSource{},
		Events:    events,
		ReturnURL: "http://localhost:8089/payment-result",
		Payment:   config.PaymentConfig{ConfirmCountdown: 10 * time.Second, RedirectCountdown: time.Second},
		Log:       log,
	}
	return New(context.Background(), deps).(appModel), sess, events
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// run executes cmd and any batched commands, skipping timers.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(appModel)
	require.True(t, ok)
	return am, cmd
}

func menuActions(authenticated bool) []menuAction {
	var out []menuAction
	for _, it := range buildMenuItems(authenticated) {
		out = append(out, it.(menuItem).action)
	}
	return out
}

func TestMenuDependsOnSignIn(t *testing.T) {
	guest := menuActions(false)
	assert.Contains(t, guest, actionLogin)
	assert.NotContains(t, guest, actionLogout)
	assert.NotContains(t, guest, actionTickets)

	user := menuActions(true)
	assert.Contains(t, user, actionLogout)
	assert.Contains(t, user, actionTickets)
	assert.NotContains(t, user, actionLogin)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0 VND", formatPrice(0))
	assert.Equal(t, "950 VND", formatPrice(950))
	assert.Equal(t, "75,000 VND", formatPrice(75000))
	assert.Equal(t, "1,250,000 VND", formatPrice(1249999.6))
	assert.Equal(t, "-30,000 VND", formatPrice(-30000))
}

func TestSeatGridFollowsRowLabels(t *testing.T) {
	seats := []model.Seat{
		{ID: 1, RowLabel: "B", ColumnNumber: 2},
		{ID: 2, RowLabel: "A", ColumnNumber: 2},
		{ID: 3, RowLabel: "B", ColumnNumber: 1},
		{ID: 4, RowLabel: "A", ColumnNumber: 1},
	}
	rows, grid := seatGrid(seats, "BA")
	assert.Equal(t, []string{"B", "A"}, rows)
	assert.Equal(t, int64(3), grid[0][0].ID)
	assert.Equal(t, int64(1), grid[0][1].ID)

	rows, _ = seatGrid(seats, "")
	assert.Equal(t, []string{"A", "B"}, rows)
}

func TestUnauthenticatedErrorOpensLogin(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {}, false)
	m.state = stateTickets

	m, _ = update(t, m, errMsg{err: api.ErrUnauthenticated})
	assert.Equal(t, stateForm, m.state)
	require.NotNil(t, m.form)
	assert.Equal(t, formLogin, m.form.kind)
	assert.Equal(t, stateTickets, m.form.returnTo)
}

func TestMoviesListLoads(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/movies", r.URL.Path)
		writeJSON(w, []model.Movie{{ID: 1, Title: "Dune"}, {ID: 2, Title: "Mai"}})
	}, false)

	m, cmd, _ := m.openMenuItem()
	assert.Equal(t, stateLoading, m.state)
	var msgs []tea.Msg
	for _, msg := range run(cmd) {
		if _, ok := msg.(moviesMsg); ok {
			msgs = append(msgs, msg)
		}
	}
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, stateMovies, m.state)
	assert.Len(t, m.movieList.Items(), 2)
}

func TestLoginFormValidatesLocally(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, false)
	m.form = newLoginForm()
	m.state = stateForm

	enter := tea.KeyMsg{Type: tea.KeyEnter}
	m, _ = update(t, m, enter)
	m, cmd := update(t, m, enter)
	assert.Nil(t, cmd)
	assert.NotEmpty(t, m.form.err)
	assert.False(t, m.form.busy)
}

func pollMsgs(msgs []tea.Msg) []tea.Msg {
	var out []tea.Msg
	for _, msg := range msgs {
		if _, ok := msg.(pollMsg); ok {
			out = append(out, msg)
		}
	}
	return out
}

func completedStatus(orderID string) model.PaymentStatusResponse {
	code := 0
	return model.PaymentStatusResponse{Success: true, OrderID: orderID, Status: model.PaymentCompleted, ResultCode: &code, Message: "Successful."}
}

func TestPaymentSuccessPublishesAndShowsTickets(t *testing.T) {
	m, sess, events := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/payments/status/"):
			writeJSON(w, completedStatus("ORDER_9"))
		case r.URL.Path == "/api/tickets/my-tickets":
			writeJSON(w, []model.Ticket{{ID: 41, Status: model.TicketPaid}})
		default:
			http.NotFound(w, r)
		}
	}, true)
	ps := model.PaymentSession{PaymentID: 9, OrderID: "ORDER_9", Amount: 150000, PaymentURL: "https://pay.example/9"}
	require.NoError(t, sess.SavePayment(context.Background(), ps))

	m, _ = update(t, m, paymentCreatedMsg{sess: ps})
	require.Equal(t, statePayment, m.state)
	require.NotNil(t, m.poller)
	assert.Equal(t, payment.StateAwaiting, m.snap.State)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, payment.StateChecking, m.snap.State)
	msgs := pollMsgs(run(cmd))
	require.Len(t, msgs, 1)
	m, cmd = update(t, m, msgs[0])
	assert.Equal(t, payment.StateSuccess, m.snap.State)
	run(cmd)
	assert.Equal(t, []string{"ORDER_9"}, events.orders)

	_, ok, err := sess.Payment(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	m, cmd = update(t, m, pollTickMsg{})
	assert.Nil(t, m.poller)
	assert.Equal(t, stateLoading, m.state)

	var tickets []tea.Msg
	for _, msg := range run(cmd) {
		if _, ok := msg.(ticketsMsg); ok {
			tickets = append(tickets, msg)
		}
	}
	require.Len(t, tickets, 1)
	m, _ = update(t, m, tickets[0])
	assert.Equal(t, stateTickets, m.state)
	assert.Len(t, m.ticketList.Items(), 1)
	assert.Len(t, events.orders, 1)
}

func TestCountdownShowsCheckingWhileStatusIsInFlight(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		writeJSON(w, completedStatus("ORDER_2"))
	}, true)
	m.deps.Payment.ConfirmCountdown = time.Second
	ps := model.PaymentSession{PaymentID: 2, OrderID: "ORDER_2", PaymentURL: "https://pay.example/2"}

	m, _ = update(t, m, paymentCreatedMsg{sess: ps})
	m, cmd := update(t, m, pollTickMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, payment.StateChecking, m.snap.State)
	assert.Contains(t, m.paymentView(), "Checking payment status")
	assert.NotContains(t, m.paymentView(), "Checking the result in")
	mu.Lock()
	assert.Zero(t, calls, "status is read by the returned command")
	mu.Unlock()

	msgs := pollMsgs(run(cmd))
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])
	assert.Equal(t, payment.StateSuccess, m.snap.State)
}

func TestOlderSnapshotDoesNotOverwriteNewer(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, completedStatus("ORDER_4"))
	}, true)
	ps := model.PaymentSession{PaymentID: 4, OrderID: "ORDER_4", PaymentURL: "https://pay.example/4"}
	m, _ = update(t, m, paymentCreatedMsg{sess: ps})

	checking, act := m.poller.CheckNow()
	require.Equal(t, payment.ActionCheck, act)
	settled := m.poller.Check(context.Background())
	require.Equal(t, payment.StateSuccess, settled.State)

	m, _ = update(t, m, pollMsg{poller: m.poller, snap: settled})
	require.Equal(t, payment.StateSuccess, m.snap.State)
	m, cmd := update(t, m, pollMsg{poller: m.poller, snap: checking})
	assert.Nil(t, cmd)
	assert.Equal(t, payment.StateSuccess, m.snap.State)
	assert.Equal(t, settled.Seq, m.snap.Seq)
}

func TestInitResumesSavedPayment(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {}, true)
	ps := model.PaymentSession{PaymentID: 6, OrderID: "ORDER_6", Amount: 80000, PaymentURL: "https://pay.example/6"}
	m.deps.Resume = &ps

	msgs := run(m.Init())
	require.Len(t, msgs, 1)
	m, cmd := update(t, m, msgs[0])
	assert.NotNil(t, cmd)
	assert.Equal(t, statePayment, m.state)
	require.NotNil(t, m.poller)
	assert.Equal(t, "ORDER_6", m.snap.Session.OrderID)
	assert.Equal(t, payment.StateAwaiting, m.snap.State)
}

func TestInitWithoutSavedPayment(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {}, false)
	assert.Nil(t, m.Init())
}

func TestPaymentFailureShowsMessage(t *testing.T) {
	m, _, events := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		code := 1006
		writeJSON(w, model.PaymentStatusResponse{OrderID: "ORDER_5", Status: model.PaymentFailed, ResultCode: &code, Message: "Insufficient funds"})
	}, true)
	ps := model.PaymentSession{PaymentID: 5, OrderID: "ORDER_5", Amount: 90000, PaymentURL: "https://pay.example/5"}

	m, _ = update(t, m, paymentCreatedMsg{sess: ps})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	msgs := pollMsgs(run(cmd))
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])

	assert.Equal(t, payment.StateFailed, m.snap.State)
	assert.Contains(t, m.paymentView(), "Insufficient funds")
	assert.Empty(t, events.orders)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, stateMenu, m.state)
	assert.Nil(t, m.poller)
}

func TestStalePollResultIgnored(t *testing.T) {
	m, _, _ := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {}, true)
	ps := model.PaymentSession{PaymentID: 1, OrderID: "ORDER_1", PaymentURL: "https://pay.example/1"}
	m, _ = update(t, m, paymentCreatedMsg{sess: ps})

	other := payment.NewPoller(ps, nil, noopSource{}, nil, payment.Options{}, logging.Discard())
	m, cmd := update(t, m, pollMsg{poller: other, snap: payment.Snapshot{State: payment.StateSuccess}})
	assert.Nil(t, cmd)
	assert.Equal(t, payment.StateAwaiting, m.snap.State)
}
