// Package booking holds the client-side booking flow: seat and combo
// selection with an advisory price preview, promotion validation and the
// single booking submission.  The backend stays authoritative for prices
// and seat availability.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Errors of the booking flow.
var (
	ErrNoSeatSelected = errors.New("booking: no seat selected")
	ErrNotLoaded      = errors.New("booking: seat map not loaded")
	ErrSubmitInFlight = errors.New("booking: a booking is already being submitted")
	ErrInvalidCode    = errors.New("booking: promotion code is invalid or expired")
)

// Catalog is the part of the API client the selector loads from.
type Catalog interface {
	Showtime(ctx context.Context, id int64) (model.Showtime, error)
	Seats(ctx context.Context, roomID int64) ([]model.Seat, error)
	Combos(ctx context.Context) ([]model.Combo, error)
}

// Selector holds the selection state for one showtime.  It is created when
// a showtime is opened and discarded on navigation away or after a
// successful booking.
type Selector struct {
	mu sync.Mutex

	loaded   bool
	showtime model.Showtime
	seats    []model.Seat
	seatByID map[int64]model.Seat
	combos   []model.Combo
	comboBy  map[int64]model.Combo

	selected []int64 // selection order, no duplicates
	qty      map[int64]int
}

// NewSelector returns an unloaded selector.
func NewSelector() *Selector {
	return &Selector{qty: make(map[int64]int)}
}

// Load fetches the showtime, its room's seat map and the combo catalog.  On
// any failure the selector is left unloaded so a booking cannot be
// submitted against stale or empty data; calling Load again retries.
func (s *Selector) Load(ctx context.Context, cat Catalog, showtimeID int64) error {
	st, err := cat.Showtime(ctx, showtimeID)
	if err != nil {
		s.reset()
		return fmt.Errorf("load showtime: %w", err)
	}
	if st.RoomID() == 0 {
		s.reset()
		return fmt.Errorf("load showtime: showtime %d has no room", showtimeID)
	}
	seats, err := cat.Seats(ctx, st.RoomID())
	if err != nil {
		s.reset()
		return fmt.Errorf("load seats: %w", err)
	}
	combos, err := cat.Combos(ctx)
	if err != nil {
		s.reset()
		return fmt.Errorf("load combos: %w", err)
	}
	s.Set(st, seats, combos)
	return nil
}

// Set installs already fetched data and clears the selection.
func (s *Selector) Set(st model.Showtime, seats []model.Seat, combos []model.Combo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showtime = st
	s.seats = append([]model.Seat(nil), seats...)
	s.seatByID = make(map[int64]model.Seat, len(seats))
	for _, seat := range seats {
		s.seatByID[seat.ID] = seat
	}
	s.combos = append([]model.Combo(nil), combos...)
	s.comboBy = make(map[int64]model.Combo, len(combos))
	for _, c := range combos {
		s.comboBy[c.ID] = c
	}
	s.selected = nil
	s.qty = make(map[int64]int)
	s.loaded = true
}

func (s *Selector) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.seats, s.seatByID, s.combos, s.comboBy = nil, nil, nil, nil
	s.selected = nil
	s.qty = make(map[int64]int)
}

// Ready reports whether seat and combo data are loaded.
func (s *Selector) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Showtime returns the loaded showtime.
func (s *Selector) Showtime() model.Showtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showtime
}

// Seats returns the seat map in backend order.
func (s *Selector) Seats() []model.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Seat(nil), s.seats...)
}

// Combos returns the combo catalog.
func (s *Selector) Combos() []model.Combo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Combo(nil), s.combos...)
}

// SelectSeat toggles seat in the selection.  Seats that are not AVAILABLE,
// either as passed or in the loaded seat map, are ignored silently.
func (s *Selector) SelectSeat(seat model.Seat) {
	if !seat.Available() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	if known, ok := s.seatByID[seat.ID]; !ok || !known.Available() {
		return
	}
	for i, id := range s.selected {
		if id == seat.ID {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
	}
	s.selected = append(s.selected, seat.ID)
}

// IsSelected reports whether the seat with id is selected.
func (s *Selector) IsSelected(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range s.selected {
		if sel == id {
			return true
		}
	}
	return false
}

// SelectedSeatIDs returns the selected seat ids in selection order.
func (s *Selector) SelectedSeatIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.selected...)
}

// SelectedSeats returns the selected seats in selection order.
func (s *Selector) SelectedSeats() []model.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedSeatsLocked()
}

func (s *Selector) selectedSeatsLocked() []model.Seat {
	out := make([]model.Seat, 0, len(s.selected))
	for _, id := range s.selected {
		if seat, ok := s.seatByID[id]; ok {
			out = append(out, seat)
		}
	}
	return out
}

// ChangeComboQuantity adds delta to the combo's quantity.  The result is
// clamped at zero and a zero quantity removes the entry.  Unknown combos
// are ignored.
func (s *Selector) ChangeComboQuantity(comboID int64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comboBy[comboID]; !ok {
		return
	}
	n := s.qty[comboID] + delta
	if n <= 0 {
		delete(s.qty, comboID)
		return
	}
	s.qty[comboID] = n
}

// ComboQuantity returns the chosen quantity of a combo.
func (s *Selector) ComboQuantity(comboID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qty[comboID]
}

// ComboQuantities returns a copy of the combo selection.
func (s *Selector) ComboQuantities() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.qty))
	for k, v := range s.qty {
		out[k] = v
	}
	return out
}

// ComboLines returns the chosen combos ordered by id.
func (s *Selector) ComboLines() []ComboLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comboLinesLocked()
}

func (s *Selector) comboLinesLocked() []ComboLine {
	ids := make([]int64, 0, len(s.qty))
	for id := range s.qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ComboLine, 0, len(ids))
	for _, id := range ids {
		out = append(out, ComboLine{Combo: s.comboBy[id], Quantity: s.qty[id]})
	}
	return out
}

// DisplayTotal is the advisory subtotal of the selection before any
// promotion.
func (s *Selector) DisplayTotal() float64 {
	return s.Quote(nil).Subtotal
}

// Quote prices the current selection with promo applied.
func (s *Selector) Quote(promo *Promotion) Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Preview(s.showtime.BasePrice, s.selectedSeatsLocked(), s.comboLinesLocked(), promo)
}
