package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/cinema-ticket-client/internal/booking"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

var (
	seatFree     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	seatVIP      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	seatCouple   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	seatPremium  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	seatTaken    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	seatChosen   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Bold(true)
	screenBanner = lipgloss.NewStyle().Faint(true)
)

// seatGrid groups seats into rows ordered by row label, each row ordered by
// column.  Row order follows the room's RowLabels when present.
func seatGrid(seats []model.Seat, rowLabels string) ([]string, [][]model.Seat) {
	byRow := map[string][]model.Seat{}
	for _, s := range seats {
		byRow[s.RowLabel] = append(byRow[s.RowLabel], s)
	}
	rows := make([]string, 0, len(byRow))
	for r := range byRow {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		pi, pj := strings.Index(rowLabels, rows[i]), strings.Index(rowLabels, rows[j])
		if pi >= 0 && pj >= 0 && pi != pj {
			return pi < pj
		}
		if len(rows[i]) != len(rows[j]) {
			return len(rows[i]) < len(rows[j])
		}
		return rows[i] < rows[j]
	})
	grid := make([][]model.Seat, len(rows))
	for i, r := range rows {
		row := byRow[r]
		sort.Slice(row, func(a, b int) bool { return row[a].ColumnNumber < row[b].ColumnNumber })
		grid[i] = row
	}
	return rows, grid
}

func (m appModel) grid() ([]string, [][]model.Seat) {
	if m.selector == nil {
		return nil, nil
	}
	st := m.selector.Showtime()
	labels := ""
	if st.Room != nil {
		labels = st.Room.RowLabels
	}
	return seatGrid(m.selector.Seats(), labels)
}

func (m appModel) seatMapView() string {
	rows, grid := m.grid()
	var b strings.Builder
	if len(rows) == 0 {
		b.WriteString("This room has no seats.\n\n")
		b.WriteString(hint("esc: back"))
		return b.String()
	}
	width := 0
	for _, r := range grid {
		if len(r) > width {
			width = len(r)
		}
	}
	b.WriteString(screenBanner.Render(strings.Repeat("─", width*4) + "\n" + centre("SCREEN", width*4)))
	b.WriteString("\n\n")
	for i, label := range rows {
		b.WriteString(fmt.Sprintf("%-3s", label))
		for j, s := range grid[i] {
			cell := fmt.Sprintf("%3d", s.ColumnNumber)
			style := seatStyle(s, m.selector.IsSelected(s.ID))
			if i == m.cursorRow && j == m.cursorCol {
				style = style.Reverse(true)
			}
			b.WriteString(style.Render(cell))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(seatFree.Render("■ standard") + "  " + seatVIP.Render("■ vip") + "  " +
		seatCouple.Render("■ couple") + "  " + seatPremium.Render("■ premium") + "  " +
		seatTaken.Render("■ taken") + "  " + seatChosen.Render("■ chosen"))
	b.WriteString("\n\n")
	if s, ok := m.cursorSeat(); ok {
		st := m.selector.Showtime()
		b.WriteString(fmt.Sprintf("Seat %s • %s • %s • %s\n", s.Label(), s.SeatType, s.Status, formatPrice(s.DisplayPrice(st.BasePrice))))
	}
	var chosen []string
	for _, s := range m.selector.SelectedSeats() {
		chosen = append(chosen, s.Label())
	}
	if len(chosen) > 0 {
		b.WriteString("Selected: " + strings.Join(chosen, ", ") + "\n")
	}
	b.WriteString(m.quoteLine())
	b.WriteString("\n")
	b.WriteString(hint("arrows: move • space: select • c: combos • enter: review • esc: back"))
	return b.String()
}

func seatStyle(s model.Seat, selected bool) lipgloss.Style {
	switch {
	case selected:
		return seatChosen
	case !s.Available():
		return seatTaken
	}
	switch s.SeatType {
	case model.SeatVIP:
		return seatVIP
	case model.SeatCouple:
		return seatCouple
	case model.SeatPremium:
		return seatPremium
	default:
		return seatFree
	}
}

func centre(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func (m appModel) cursorSeat() (model.Seat, bool) {
	_, grid := m.grid()
	if m.cursorRow < 0 || m.cursorRow >= len(grid) {
		return model.Seat{}, false
	}
	row := grid[m.cursorRow]
	if m.cursorCol < 0 || m.cursorCol >= len(row) {
		return model.Seat{}, false
	}
	return row[m.cursorCol], true
}

func (m appModel) handleSeatKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	_, grid := m.grid()
	if len(grid) == 0 {
		return m, nil, true
	}
	switch msg.String() {
	case "up", "k":
		if m.cursorRow > 0 {
			m.cursorRow--
		}
	case "down", "j":
		if m.cursorRow < len(grid)-1 {
			m.cursorRow++
		}
	case "left", "h":
		if m.cursorCol > 0 {
			m.cursorCol--
		}
	case "right", "l":
		m.cursorCol++
	case " ", "space":
		if s, ok := m.cursorSeat(); ok {
			if !s.Available() {
				m.flash = fmt.Sprintf("Seat %s is not available.", s.Label())
			} else {
				m.selector.SelectSeat(s)
			}
		}
	case "c":
		m.comboList.SetItems(buildComboItems(m.selector))
		m.state = stateCombos
	case "enter":
		if len(m.selector.SelectedSeatIDs()) == 0 {
			m.flash = "Select at least one seat."
			return m, nil, true
		}
		m.state = stateConfirm
	default:
		return m, nil, false
	}
	if last := len(grid[m.cursorRow]) - 1; m.cursorCol > last {
		m.cursorCol = last
	}
	return m, nil, true
}

func (m *appModel) changeCombo(delta int) {
	item, ok := m.comboList.SelectedItem().(comboItem)
	if !ok || m.selector == nil {
		return
	}
	m.selector.ChangeComboQuantity(item.combo.ID, delta)
	idx := m.comboList.Index()
	m.comboList.SetItems(buildComboItems(m.selector))
	m.comboList.Select(idx)
}

func (m appModel) quoteLine() string {
	if m.selector == nil || !m.selector.Ready() {
		return ""
	}
	q := m.selector.Quote(nil)
	return fmt.Sprintf("Seats %s + combos %s = %s (estimate)", formatPrice(q.Seats), formatPrice(q.Combos), formatPrice(q.Subtotal))
}

func (m appModel) confirmView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Review your booking"))
	b.WriteString("\n\n")
	if m.selector == nil || !m.selector.Ready() {
		b.WriteString(errorText(booking.ErrNotLoaded))
		return b.String()
	}
	st := m.selector.Showtime()
	if st.Movie != nil {
		b.WriteString(st.Movie.Title + "\n")
	}
	b.WriteString(showtimeLabel(st))
	if st.Room != nil {
		b.WriteString(" • " + st.Room.RoomName)
	}
	b.WriteString("\n\n")
	for _, s := range m.selector.SelectedSeats() {
		b.WriteString(fmt.Sprintf("  Seat %-5s %-9s %s\n", s.Label(), s.SeatType, formatPrice(s.DisplayPrice(st.BasePrice))))
	}
	for _, c := range m.selector.ComboLines() {
		b.WriteString(fmt.Sprintf("  %s x%d  %s\n", c.Combo.Name, c.Quantity, formatPrice(c.Combo.Price*float64(c.Quantity))))
	}
	promo := m.promos.Current()
	q := m.selector.Quote(promo)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Subtotal  %s\n", formatPrice(q.Subtotal)))
	if promo != nil {
		b.WriteString(fmt.Sprintf("Promotion %s (-%s%%)  -%s\n", promo.Code, trimFloat(promo.Discount), formatPrice(q.Discount)))
	}
	b.WriteString(okStyle.Render(fmt.Sprintf("Estimated total  %s", formatPrice(q.Total))))
	b.WriteString("\n")
	b.WriteString(hint("The final amount is calculated by the cinema when you book."))
	b.WriteString("\n\n")
	if m.submitter.InFlight() {
		b.WriteString(hint("Booking..."))
	} else {
		b.WriteString(hint("enter: book and pay • p: promotion code • x: remove promotion • esc: back"))
	}
	return b.String()
}

func (m appModel) movieDetailView() string {
	mv := m.movie
	var b strings.Builder
	b.WriteString(titleStyle.Render(mv.Title))
	b.WriteString("\n")
	var facts []string
	if mv.Genre != "" {
		facts = append(facts, mv.Genre)
	}
	if mv.Duration > 0 {
		facts = append(facts, fmt.Sprintf("%d min", mv.Duration))
	}
	if r := mv.Released(); !r.IsZero() {
		facts = append(facts, "released "+r.Format("02 Jan 2006"))
	}
	if len(facts) > 0 {
		b.WriteString(hint(strings.Join(facts, " • ")))
		b.WriteString("\n")
	}
	if mv.Description != "" {
		b.WriteString("\n")
		b.WriteString(wrap(mv.Description, m.width))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if len(m.reviews) == 0 {
		b.WriteString("No reviews yet.\n")
	} else {
		avg := model.AverageStars(m.reviews)
		b.WriteString(fmt.Sprintf("%s %.1f/5 from %d review(s)\n", stars(int(avg+0.5)), avg, len(m.reviews)))
		for i, r := range m.reviews {
			if i == 3 {
				b.WriteString(hint(fmt.Sprintf("  and %d more\n", len(m.reviews)-3)))
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", stars(r.Star), r.Author(), r.Comment))
		}
	}
	b.WriteString("\n")
	if len(m.showtimes) == 0 {
		b.WriteString("No showtimes scheduled.\n")
	} else {
		b.WriteString(m.showtimeList.View())
		b.WriteString("\n")
	}
	keys := "enter: choose seats • r: write a review"
	if mv.TrailerURL != "" {
		keys += " • t: trailer"
	}
	b.WriteString(hint(keys + " • esc: back"))
	return b.String()
}

func (m appModel) profileView() string {
	u := m.profile
	var b strings.Builder
	b.WriteString(titleStyle.Render("Profile"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Name   %s\nEmail  %s\nRole   %s\n\n", u.Name, u.Email, u.Role))
	b.WriteString(hint("e: edit profile • p: change password • esc: back"))
	return b.String()
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func wrap(text string, width int) string {
	if width <= 20 {
		width = 80
	}
	return lipgloss.NewStyle().Width(width - 2).Render(text)
}
