package model

// TicketStatus is the lifecycle state of a ticket on the backend.
type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketPaid      TicketStatus = "PAID"
	TicketCancelled TicketStatus = "CANCELLED"
)

// BookingRequest is the body of POST /api/tickets/book.  ComboIDs repeats a
// combo id once for every unit ordered.
type BookingRequest struct {
	ShowtimeID    int64   `json:"showtimeId" validate:"required"`
	SeatIDs       []int64 `json:"seatIds" validate:"required,min=1,dive,required"`
	ComboIDs      []int64 `json:"comboIds,omitempty"`
	PromotionCode string  `json:"promotionCode,omitempty"`
}

// Ticket is one booked seat.  Price is the backend's authoritative amount
// for the seat, combos and discount share included.
type Ticket struct {
	ID          int64        `json:"ticketID" validate:"required"`
	Price       float64      `json:"price"`
	Status      TicketStatus `json:"status"`
	BookingDate string       `json:"bookingDate"`
	ShowTime    string       `json:"showTime"`
	Seat        *Seat        `json:"seat,omitempty"`
	Room        *Room        `json:"room,omitempty"`
	Showtime    *Showtime    `json:"showtime,omitempty"`
	Combos      []Combo      `json:"combos,omitempty"`
}

// MovieTitle returns the title of the ticket's movie when the backend
// embedded it.
func (t Ticket) MovieTitle() string {
	if t.Showtime == nil || t.Showtime.Movie == nil {
		return ""
	}
	return t.Showtime.Movie.Title
}

// BookingResult is the backend's answer to a booking.  Totals are
// authoritative and must be used as-is for payment.
type BookingResult struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	Tickets          []Ticket `json:"tickets" validate:"required,min=1,dive"`
	TotalTickets     int      `json:"totalTickets"`
	TotalAmount      float64  `json:"totalAmount" validate:"gte=0"`
	TotalComboAmount float64  `json:"totalComboAmount"`
	PromotionApplied string   `json:"promotionApplied,omitempty"`
}

// TicketIDs lists the ids of the booked tickets in order.
func (b BookingResult) TicketIDs() []int64 {
	ids := make([]int64, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		ids = append(ids, t.ID)
	}
	return ids
}
