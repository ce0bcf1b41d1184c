package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
	"github.com/iliyamo/cinema-ticket-client/internal/payment"
)

// openPayment shows the result view for sess and starts its poller.
func (m appModel) openPayment(sess model.PaymentSession) (tea.Model, tea.Cmd) {
	if m.poller != nil {
		m.poller.Close()
	}
	opts := payment.Options{
		ConfirmCountdown:  seconds(m.deps.Payment.ConfirmCountdown),
		RedirectCountdown: seconds(m.deps.Payment.RedirectCountdown),
	}
	m.poller = payment.NewPoller(sess, m.deps.API, m.deps.Source, m.deps.Session, opts, m.deps.Log)
	m.snap = m.poller.Snapshot()
	m.state = statePayment
	return m, m.scheduleTick()
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func (m *appModel) scheduleTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return sleepThen(time.Second, pollTickMsg{})
}

// stepPayment applies the result of a tick or a check request.  A started
// check runs as its own command so CHECKING renders while it is in flight.
func (m appModel) stepPayment(snap payment.Snapshot, act payment.Action) (appModel, tea.Cmd) {
	switch act {
	case payment.ActionCheck:
		m.snap = snap
		return m, tea.Batch(m.checkCmd(m.poller), m.spinner.Tick)
	case payment.ActionNavigate:
		m.snap = snap
		m.poller.Close()
		m.poller = nil
		m.flash = "Payment successful. Here are your tickets."
		m.state = stateMenu
		mm, cmd, _ := m.startLoading("Loading tickets", m.fetchTicketsCmd())
		return mm, cmd
	}
	if snap.Seq < m.snap.Seq {
		return m, nil
	}
	return m.applySnapshot(snap)
}

func (m appModel) applySnapshot(snap payment.Snapshot) (appModel, tea.Cmd) {
	prev := m.snap.State
	m.snap = snap
	var cmds []tea.Cmd
	if snap.State == payment.StateSuccess && prev != payment.StateSuccess {
		cmds = append(cmds, m.publishConfirmedCmd(snap.Session))
	}
	if snap.State == payment.StateAwaiting || snap.State == payment.StateSuccess {
		cmds = append(cmds, m.scheduleTick())
	}
	return m, tea.Batch(cmds...)
}

func (m appModel) leavePayment() (appModel, tea.Cmd, bool) {
	if m.poller != nil {
		m.poller.Close()
		m.poller = nil
	}
	switch m.snap.State {
	case payment.StateSuccess:
		m.flash = "Payment successful."
		m.state = stateMenu
		return m.startLoading("Loading tickets", m.fetchTicketsCmd())
	case payment.StateFailed:
		if m.snap.NeedsLogin {
			m.state = stateMenu
			return m.requireLogin()
		}
		m.flash = "Payment failed. Your tickets were not paid."
	default:
		m.flash = "Payment is still pending. It will be checked again next time you start the app."
	}
	m.state = stateMenu
	return m, nil, true
}

func (m appModel) paymentView() string {
	s := m.snap
	var b strings.Builder
	b.WriteString(titleStyle.Render("Payment"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Order   %s\nAmount  %s\n", s.Session.OrderID, formatPrice(s.Session.Amount)))
	if s.Status != nil && s.Status.MomoTransID != "" {
		b.WriteString(fmt.Sprintf("Transaction  %s\n", s.Status.MomoTransID))
	}
	b.WriteString("\n")

	keys := ""
	switch s.State {
	case payment.StateAwaiting:
		b.WriteString("Complete the payment in your browser.\n")
		b.WriteString(hint(s.Session.PaymentURL))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("Checking the result in %ds...\n", s.Countdown))
		keys = "c: check now • o: open payment page • esc: leave"
	case payment.StateChecking:
		b.WriteString(m.spinner.View() + " Checking payment status...\n")
		keys = "esc: leave"
	case payment.StateSuccess:
		b.WriteString(okStyle.Render("Payment successful!"))
		b.WriteString("\n")
		if s.Message != "" {
			b.WriteString(s.Message + "\n")
		}
		b.WriteString(fmt.Sprintf("Showing your tickets in %ds...\n", s.RedirectIn))
		keys = "enter: view tickets now"
	case payment.StateFailed:
		b.WriteString(errorStyle.Render(s.Message))
		b.WriteString("\n")
		if s.NeedsLogin {
			keys = "enter: log in"
		} else {
			keys = "enter: back to menu"
		}
	case payment.StateProcessing:
		b.WriteString("The payment is still being processed.\n")
		if s.Message != "" {
			b.WriteString(s.Message + "\n")
		}
		keys = "c: check again • o: open payment page • esc: leave"
	}
	if s.Note != "" {
		b.WriteString("\n")
		b.WriteString(flashStyle.Render(s.Note))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(hint(keys))
	return b.String()
}
