package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/logging"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, token string) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c := New(config.APIConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, RetryMax: 2, RetryBase: time.Millisecond},
		staticToken(token), logging.Discard())
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c, &hits
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestStatusErrorMapping(t *testing.T) {
	assert.ErrorIs(t, statusError(401, nil), ErrUnauthenticated)
	assert.ErrorIs(t, statusError(403, nil), ErrUnauthenticated)
	assert.ErrorIs(t, statusError(404, nil), ErrNotFound)
	assert.ErrorIs(t, statusError(502, nil), ErrNetwork)

	err := statusError(400, []byte(`{"success":false,"message":"Seat A1 is already booked"}`))
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Seat A1 is already booked", ve.Message)

	err = statusError(400, []byte(`{"error":"Email already exists"}`))
	ve, ok = IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Email already exists", ve.Message)

	err = statusError(409, []byte("conflict on seat"))
	ve, ok = IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "conflict on seat", ve.Message)
}

func TestGetRetriesOnServerError(t *testing.T) {
	var calls int32
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, 200, []model.Combo{{ID: 1, Name: "Popcorn", Price: 45000}})
	}, "")

	combos, err := c.Combos(context.Background())
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, "Popcorn", combos[0].Name)
	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
}

func TestGetGivesUpAfterRetryBudget(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, "")

	_, err := c.Movies(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
}

func TestPostIsNotRetried(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, "tok")

	_, err := c.BookTickets(context.Background(), model.BookingRequest{ShowtimeID: 1, SeatIDs: []int64{1}})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestAuthenticatedCallWithoutTokenSkipsNetwork(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, model.User{ID: 1})
	}, "")

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.EqualValues(t, 0, atomic.LoadInt32(hits))
}

func TestBearerTokenIsSent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, 200, model.User{ID: 7, Name: "An", Email: "an@example.com", Role: model.RoleCustomer})
	}, "tok-123")

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, u.ID)
}

func TestMalformedResponseIsRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// seatID missing
		_, _ = io.WriteString(w, `[{"seatNumber":"A1","status":"AVAILABLE"}]`)
	}, "")

	_, err := c.Seats(context.Background(), 3)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	c, _ = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"showtimeID":`)
	}, "")
	_, err = c.Showtime(context.Background(), 3)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBookTicketsRejectionCarriesMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.BookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{4, 4, 9}, req.ComboIDs)
		writeJSON(w, 400, map[string]any{"success": false, "message": "Seat A1 is already booked"})
	}, "tok")

	_, err := c.BookTickets(context.Background(), model.BookingRequest{ShowtimeID: 1, SeatIDs: []int64{1}, ComboIDs: []int64{4, 4, 9}})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Seat A1 is already booked", ve.Message)
}

func TestBookTicketsReturnsBackendTotals(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"success":      true,
			"message":      "ok",
			"tickets":      []map[string]any{{"ticketID": 11, "price": 100000}, {"ticketID": 12, "price": 150000}},
			"totalTickets": 2,
			"totalAmount":  237500,
		})
	}, "tok")

	res, err := c.BookTickets(context.Background(), model.BookingRequest{ShowtimeID: 1, SeatIDs: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 237500.0, res.TotalAmount)
	assert.Equal(t, []int64{11, 12}, res.TicketIDs())
}

func TestLoginFailureWithEmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, "")

	_, err := c.Login(context.Background(), model.LoginRequest{Email: "a@b.co", Password: "x"})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid email or password", ve.Message)
}

func TestRequestValidationHappensBeforeNetwork(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, "")

	_, err := c.Register(context.Background(), model.RegisterRequest{Name: "An", Email: "not-an-email", Password: "secret1"})
	_, ok := IsValidation(err)
	assert.True(t, ok)
	assert.EqualValues(t, 0, atomic.LoadInt32(hits))
}

func TestValidatePromotionSendsCodeAsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "SUMMER10", r.URL.Query().Get("code"))
		writeJSON(w, 200, map[string]any{"valid": true, "code": "SUMMER10", "discount": 10})
	}, "")

	v, err := c.ValidatePromotion(context.Background(), "SUMMER10")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 10.0, v.Discount)
}

func TestCreatePaymentRejectsUnsuccessfulAnswer(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"success": false, "message": "Tickets already paid"})
	}, "tok")

	_, err := c.CreatePayment(context.Background(), model.CreatePaymentRequest{TicketIDs: []int64{1}, ReturnURL: "http://localhost:8090/payment-result"})
	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Tickets already paid", ve.Message)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, "")
	c.sleep = sleepCtx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Combos(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestPaymentHistoryFallsBackToMyPayments(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/api/payments/my-payments" {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "No static resource"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"paymentID": 3, "amount": 120000, "status": "COMPLETED", "orderId": "ORDER_3"}})
	}, "tok")

	payments, err := c.PaymentHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "ORDER_3", payments[0].OrderID)
	assert.Equal(t, []string{"/api/users/me/payments", "/api/payments/my-payments"}, paths)
}

func TestPaymentHistoryPrefersMeRoute(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, []map[string]any{})
	}, "tok")

	_, err := c.PaymentHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/users/me/payments"}, paths)
}

func TestTicketHistoryFallsBackToMyTickets(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/api/tickets/my-tickets" {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "No static resource"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"ticketID": 41, "status": "PAID"}})
	}, "tok")

	tickets, err := c.TicketHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, int64(41), tickets[0].ID)
	assert.Equal(t, []string{"/api/users/me/tickets", "/api/tickets/my-tickets"}, paths)
}

func TestHistoryDoesNotFallBackOnAuthFailure(t *testing.T) {
	var hits int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}, "tok")

	_, err := c.PaymentHistory(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 1, hits)
}
