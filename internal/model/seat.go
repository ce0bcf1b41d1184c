package model

import (
	"math"
	"strconv"
)

// SeatType is the pricing category of a seat.  The backend stores it as a
// free-form string; the four known values carry a fixed price multiplier.
type SeatType string

const (
	SeatStandard SeatType = "STANDARD"
	SeatVIP      SeatType = "VIP"
	SeatCouple   SeatType = "COUPLE"
	SeatPremium  SeatType = "PREMIUM"
)

// SeatStatus reports whether a seat can currently be booked.
type SeatStatus string

const (
	SeatAvailable   SeatStatus = "AVAILABLE"
	SeatBooked      SeatStatus = "BOOKED"
	SeatMaintenance SeatStatus = "MAINTENANCE"
)

// seatMultipliers maps a seat type to the factor applied to a showtime's
// base price.  Unknown types price as STANDARD.
var seatMultipliers = map[SeatType]float64{
	SeatStandard: 1.0,
	SeatVIP:      1.5,
	SeatCouple:   2.0,
	SeatPremium:  1.3,
}

// Multiplier returns the price factor for t.
func (t SeatType) Multiplier() float64 {
	if m, ok := seatMultipliers[t]; ok {
		return m
	}
	return seatMultipliers[SeatStandard]
}

// Seat is one cell of a room's seat map as returned by
// GET /api/rooms/{id}/seats.
//
// Fields:
//  ID              – seatID.
//  SeatNumber      – printable label such as "A7".
//  RowLabel        – row letter.
//  ColumnNumber    – 1-based column within the row.
//  SeatType        – pricing category.
//  PriceMultiplier – factor stored by the backend; informational only.
//  Status          – AVAILABLE, BOOKED or MAINTENANCE.
type Seat struct {
	ID              int64      `json:"seatID" validate:"required"`
	SeatNumber      string     `json:"seatNumber"`
	RowLabel        string     `json:"rowLabel"`
	ColumnNumber    int        `json:"columnNumber"`
	SeatType        SeatType   `json:"seatType"`
	PriceMultiplier float64    `json:"priceMultiplier"`
	Status          SeatStatus `json:"status" validate:"required"`
}

// Available reports whether the seat may be selected.
func (s Seat) Available() bool { return s.Status == SeatAvailable }

// Label is the seat number, falling back to row+column when the backend
// omitted it.
func (s Seat) Label() string {
	if s.SeatNumber != "" {
		return s.SeatNumber
	}
	return s.RowLabel + strconv.Itoa(s.ColumnNumber)
}

// DisplayPrice is the advisory price of the seat for a showtime with the
// given base price, rounded to the nearest currency unit.  The backend
// computes the authoritative price when booking.
func (s Seat) DisplayPrice(basePrice float64) float64 {
	return math.Round(basePrice * s.SeatType.Multiplier())
}
