package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/iliyamo/cinema-ticket-client/internal/booking"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

type menuAction int

const (
	actionAllMovies menuAction = iota
	actionNowShowing
	actionUpcoming
	actionSearch
	actionPromotions
	actionTickets
	actionPayments
	actionProfile
	actionLogin
	actionRegister
	actionForgot
	actionLogout
	actionQuit
)

type menuItem struct {
	action menuAction
	title  string
	desc   string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

func buildMenuItems(authenticated bool) []list.Item {
	items := []list.Item{
		menuItem{action: actionAllMovies, title: "Movies", desc: "Browse the catalog"},
		menuItem{action: actionNowShowing, title: "Now showing", desc: "Showtimes playing now"},
		menuItem{action: actionUpcoming, title: "Coming soon", desc: "Upcoming showtimes"},
		menuItem{action: actionSearch, title: "Search", desc: "Find a movie by title"},
		menuItem{action: actionPromotions, title: "Promotions", desc: "Active promotion codes"},
	}
	if authenticated {
		items = append(items,
			menuItem{action: actionTickets, title: "My tickets", desc: "Tickets you have booked"},
			menuItem{action: actionPayments, title: "Payment history", desc: "Past payments and their status"},
			menuItem{action: actionProfile, title: "Profile", desc: "Account details and password"},
			menuItem{action: actionLogout, title: "Log out", desc: "Forget the saved session"},
		)
	} else {
		items = append(items,
			menuItem{action: actionLogin, title: "Log in", desc: "Sign in with email and password"},
			menuItem{action: actionRegister, title: "Register", desc: "Create an account"},
			menuItem{action: actionForgot, title: "Forgot password", desc: "Reset with an emailed code"},
		)
	}
	return append(items, menuItem{action: actionQuit, title: "Quit", desc: "Leave the application"})
}

type movieItem struct{ movie model.Movie }

func (i movieItem) Title() string { return i.movie.Title }
func (i movieItem) Description() string {
	var parts []string
	if i.movie.Genre != "" {
		parts = append(parts, i.movie.Genre)
	}
	if i.movie.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%d min", i.movie.Duration))
	}
	if r := i.movie.Released(); !r.IsZero() {
		parts = append(parts, r.Format("02 Jan 2006"))
	}
	return strings.Join(parts, " • ")
}
func (i movieItem) FilterValue() string { return i.movie.Title + " " + i.movie.Genre }

func buildMovieItems(movies []model.Movie) []list.Item {
	items := make([]list.Item, 0, len(movies))
	for _, mv := range movies {
		items = append(items, movieItem{movie: mv})
	}
	return items
}

type showtimeItem struct{ showtime model.Showtime }

func (i showtimeItem) Title() string {
	if i.showtime.Movie != nil {
		return i.showtime.Movie.Title + " • " + showtimeLabel(i.showtime)
	}
	return showtimeLabel(i.showtime)
}

func (i showtimeItem) Description() string {
	parts := []string{"from " + formatPrice(i.showtime.BasePrice)}
	if r := i.showtime.Room; r != nil {
		room := r.RoomName
		if r.RoomType != "" {
			room += " (" + r.RoomType + ")"
		}
		parts = append([]string{room}, parts...)
	}
	return strings.Join(parts, " • ")
}

func (i showtimeItem) FilterValue() string { return i.Title() }

func buildShowtimeItems(st []model.Showtime) []list.Item {
	items := make([]list.Item, 0, len(st))
	for _, s := range st {
		items = append(items, showtimeItem{showtime: s})
	}
	return items
}

type comboItem struct {
	combo model.Combo
	qty   int
}

func (i comboItem) Title() string {
	if i.qty > 0 {
		return fmt.Sprintf("%s  x%d", i.combo.Name, i.qty)
	}
	return i.combo.Name
}
func (i comboItem) Description() string {
	if i.combo.Description == "" {
		return formatPrice(i.combo.Price)
	}
	return formatPrice(i.combo.Price) + " • " + i.combo.Description
}
func (i comboItem) FilterValue() string { return i.combo.Name }

func buildComboItems(sel *booking.Selector) []list.Item {
	if sel == nil {
		return nil
	}
	combos := sel.Combos()
	items := make([]list.Item, 0, len(combos))
	for _, c := range combos {
		items = append(items, comboItem{combo: c, qty: sel.ComboQuantity(c.ID)})
	}
	return items
}

type ticketItem struct{ ticket model.Ticket }

func (i ticketItem) Title() string {
	title := i.ticket.MovieTitle()
	if title == "" {
		title = fmt.Sprintf("Ticket #%d", i.ticket.ID)
	}
	if i.ticket.Seat != nil {
		title += " • seat " + i.ticket.Seat.Label()
	}
	return title
}

func (i ticketItem) Description() string {
	parts := []string{string(i.ticket.Status), formatPrice(i.ticket.Price)}
	if i.ticket.Showtime != nil {
		parts = append(parts, showtimeLabel(*i.ticket.Showtime))
	} else if i.ticket.ShowTime != "" {
		parts = append(parts, i.ticket.ShowTime)
	}
	if i.ticket.Room != nil && i.ticket.Room.RoomName != "" {
		parts = append(parts, i.ticket.Room.RoomName)
	}
	if n := len(i.ticket.Combos); n > 0 {
		parts = append(parts, fmt.Sprintf("%d combo(s)", n))
	}
	return strings.Join(parts, " • ")
}

func (i ticketItem) FilterValue() string { return i.Title() }

func buildTicketItems(tickets []model.Ticket) []list.Item {
	items := make([]list.Item, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, ticketItem{ticket: t})
	}
	return items
}

type paymentItem struct{ payment model.Payment }

func (i paymentItem) Title() string {
	return fmt.Sprintf("%s • %s", i.payment.OrderID, formatPrice(i.payment.Amount))
}

func (i paymentItem) Description() string {
	parts := []string{string(i.payment.Status)}
	if i.payment.Method != "" {
		parts = append(parts, i.payment.Method)
	}
	if i.payment.Message != "" {
		parts = append(parts, i.payment.Message)
	}
	if i.payment.CreatedAt != "" {
		parts = append(parts, i.payment.CreatedAt)
	}
	return strings.Join(parts, " • ")
}

func (i paymentItem) FilterValue() string { return i.payment.OrderID }

func buildPaymentItems(payments []model.Payment) []list.Item {
	items := make([]list.Item, 0, len(payments))
	for _, p := range payments {
		items = append(items, paymentItem{payment: p})
	}
	return items
}

type promotionItem struct{ promo model.Promotion }

func (i promotionItem) Title() string {
	return fmt.Sprintf("%s • -%s%%", i.promo.Code, trimFloat(i.promo.Discount))
}

func (i promotionItem) Description() string {
	if i.promo.StartDate == "" && i.promo.EndDate == "" {
		return "No end date"
	}
	return i.promo.StartDate + " → " + i.promo.EndDate
}

func (i promotionItem) FilterValue() string { return i.promo.Code }

func buildPromotionItems(promos []model.Promotion) []list.Item {
	items := make([]list.Item, 0, len(promos))
	for _, p := range promos {
		items = append(items, promotionItem{promo: p})
	}
	return items
}

func showtimeLabel(st model.Showtime) string {
	if t := st.Starts(); !t.IsZero() {
		return t.Format("Mon 02 Jan 15:04")
	}
	return strings.TrimSpace(st.ShowtimeDate + " " + st.StartTime)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatPrice renders an amount in whole VND with thousands separators.
func formatPrice(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + " VND"
	if neg {
		return "-" + out
	}
	return out
}
