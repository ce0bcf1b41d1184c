package booking

import "github.com/iliyamo/cinema-ticket-client/internal/model"

// ComboLine is a combo with the quantity chosen for it.
type ComboLine struct {
	Combo    model.Combo
	Quantity int
}

// Promotion is a validated promotion code.  Discount is a percentage.
type Promotion struct {
	Code     string
	Discount float64
}

// Quote is an advisory price breakdown.  It is never sent to the backend
// and never used as the payment amount: BookingResult.TotalAmount is.
type Quote struct {
	Seats    float64
	Combos   float64
	Subtotal float64
	Discount float64
	Total    float64
}

// Preview prices seats at basePrice times their type multiplier, adds
// combo price times quantity and applies promo as a percentage of the
// subtotal.  promo may be nil.  Every selection view prices through this
// one function.
func Preview(basePrice float64, seats []model.Seat, combos []ComboLine, promo *Promotion) Quote {
	var q Quote
	for _, s := range seats {
		q.Seats += s.DisplayPrice(basePrice)
	}
	for _, c := range combos {
		if c.Quantity > 0 {
			q.Combos += c.Combo.Price * float64(c.Quantity)
		}
	}
	q.Subtotal = q.Seats + q.Combos
	if promo != nil && promo.Discount > 0 {
		q.Discount = q.Subtotal * promo.Discount / 100
	}
	q.Total = q.Subtotal - q.Discount
	return q
}
