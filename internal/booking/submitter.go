package booking

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Booker sends the booking request.
type Booker interface {
	BookTickets(ctx context.Context, req model.BookingRequest) (model.BookingResult, error)
}

// Submitter posts bookings one at a time.
type Submitter struct {
	booker Booker
	tokens api.TokenSource
	log    *logrus.Entry

	mu       sync.Mutex
	inFlight bool
}

// NewSubmitter returns a submitter that checks tokens before every call.
func NewSubmitter(b Booker, tokens api.TokenSource, log *logrus.Logger) *Submitter {
	return &Submitter{booker: b, tokens: tokens, log: log.WithField("component", "booking")}
}

// InFlight reports whether a submission is running; views disable the
// submit control while it is.
func (s *Submitter) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Submit books seatIDs for showtimeID.  combos maps combo id to quantity.
// The returned result is the backend's, totals included, unmodified.
//
// Errors: ErrNoSeatSelected and api.ErrUnauthenticated are returned before
// any network call; ErrSubmitInFlight when another submission is running;
// otherwise the client's *api.ValidationError, api.ErrUnauthenticated or
// api.ErrNetwork.
func (s *Submitter) Submit(ctx context.Context, showtimeID int64, seatIDs []int64, combos map[int64]int, promotionCode string) (model.BookingResult, error) {
	if len(seatIDs) == 0 {
		return model.BookingResult{}, ErrNoSeatSelected
	}
	if s.tokens == nil || s.tokens.Token() == "" {
		return model.BookingResult{}, api.ErrUnauthenticated
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return model.BookingResult{}, ErrSubmitInFlight
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	req := model.BookingRequest{
		ShowtimeID:    showtimeID,
		SeatIDs:       append([]int64(nil), seatIDs...),
		ComboIDs:      expandCombos(combos),
		PromotionCode: promotionCode,
	}
	res, err := s.booker.BookTickets(ctx, req)
	if err != nil {
		s.log.WithFields(logrus.Fields{"showtime_id": showtimeID, "seats": len(seatIDs)}).Warnf("booking failed: %v", err)
		return model.BookingResult{}, err
	}
	s.log.WithFields(logrus.Fields{
		"showtime_id":  showtimeID,
		"tickets":      len(res.Tickets),
		"total_amount": res.TotalAmount,
	}).Info("booking accepted")
	return res, nil
}

// SubmitSelection submits the selector's current state with the applied
// promotion, if any.  An unloaded selector fails with ErrNotLoaded.
func (s *Submitter) SubmitSelection(ctx context.Context, sel *Selector, promo *Promotion) (model.BookingResult, error) {
	if !sel.Ready() {
		return model.BookingResult{}, ErrNotLoaded
	}
	code := ""
	if promo != nil {
		code = promo.Code
	}
	return s.Submit(ctx, sel.Showtime().ID, sel.SelectedSeatIDs(), sel.ComboQuantities(), code)
}

// expandCombos lists each combo id once per unit, ordered by id.
func expandCombos(combos map[int64]int) []int64 {
	ids := make([]int64, 0, len(combos))
	for id, n := range combos {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []int64
	for _, id := range ids {
		for i := 0; i < combos[id]; i++ {
			out = append(out, id)
		}
	}
	return out
}
