// Package tui is the terminal front end of the cinema client.  Views are
// states of one bubbletea model; every network call runs in a tea.Cmd and
// reports back as a message.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/booking"
	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
	"github.com/iliyamo/cinema-ticket-client/internal/payment"
	"github.com/iliyamo/cinema-ticket-client/internal/session"
)

type appState int

const (
	stateMenu appState = iota
	stateLoading
	stateMovies
	stateShowtimes
	stateMovieDetail
	stateSeats
	stateCombos
	stateConfirm
	statePayment
	stateTickets
	statePayments
	statePromotions
	stateProfile
	stateForm
	stateError
)

// EventPublisher announces completed bookings; nil disables it.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, sess model.PaymentSession, userID int64) error
}

// Deps are the services the views drive.
type Deps struct {
	API       *api.Client
	Session   *session.Session
	Initiator *payment.Initiator
	Source    payment.ConfirmationSource
	Events    EventPublisher
	ReturnURL string
	Payment   config.PaymentConfig
	Log       *logrus.Logger
	// Resume reopens the payment view for a session persisted by an earlier run.
	Resume *model.PaymentSession
}

type appModel struct {
	ctx  context.Context
	deps Deps

	state     appState
	lastState appState
	err       error
	flash     string
	loading   string

	width  int
	height int

	menuList     list.Model
	movieList    list.Model
	showtimeList list.Model
	comboList    list.Model
	ticketList   list.Model
	paymentList  list.Model
	promoList    list.Model

	showtimeReturn appState

	movie     model.Movie
	reviews   []model.Review
	showtimes []model.Showtime
	profile   model.User

	selector  *booking.Selector
	submitter *booking.Submitter
	promos    *booking.PromotionValidator
	cursorRow int
	cursorCol int

	result  model.BookingResult
	poller  *payment.Poller
	snap    payment.Snapshot
	ticking bool

	form *form

	spinner spinner.Model
}

// New builds the root model.
func New(ctx context.Context, deps Deps) tea.Model {
	m := appModel{
		ctx:       ctx,
		deps:      deps,
		state:     stateMenu,
		submitter: booking.NewSubmitter(deps.API, deps.Session, deps.Log),
		promos:    booking.NewPromotionValidator(deps.API),
	}
	m.menuList = newList("Cinema")
	m.menuList.SetFilteringEnabled(false)
	m.movieList = newList("Movies")
	m.showtimeList = newList("Showtimes")
	m.comboList = newList("Combos")
	m.comboList.SetFilteringEnabled(false)
	m.ticketList = newList("My tickets")
	m.paymentList = newList("Payment history")
	m.promoList = newList("Active promotions")
	m.refreshMenu()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.deps.Resume != nil {
		return func() tea.Msg { return paymentCreatedMsg{sess: *m.deps.Resume} }
	}
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		if m.state == stateForm {
			return m.updateForm(msg)
		}
		if mm, cmd, handled := m.handleKey(msg); handled {
			return mm, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == stateLoading || (m.state == statePayment && m.snap.State == payment.StateChecking) {
			return m, cmd
		}
		return m, nil

	case errMsg:
		return m.handleErr(msg)

	case moviesMsg:
		if msg.err != nil {
			if m.state == stateForm {
				return m.formFailed(msg.err)
			}
			return m, errCmd(msg.err)
		}
		m.form = nil
		m.movieList.Title = msg.title
		m.movieList.ResetFilter()
		m.movieList.SetItems(buildMovieItems(msg.movies))
		m.movieList.Select(0)
		m.state = stateMovies
		return m, nil

	case showtimesMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.showtimeList.Title = msg.title
		m.showtimeList.ResetFilter()
		m.showtimeList.SetItems(buildShowtimeItems(msg.showtimes))
		m.showtimeList.Select(0)
		m.showtimeReturn = stateMenu
		m.state = stateShowtimes
		return m, nil

	case movieDetailMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.movie = msg.movie
		m.reviews = msg.reviews
		m.showtimes = msg.showtimes
		m.showtimeList.Title = "Showtimes • " + msg.movie.Title
		m.showtimeList.ResetFilter()
		m.showtimeList.SetItems(buildShowtimeItems(msg.showtimes))
		m.showtimeList.Select(0)
		m.showtimeReturn = stateMovieDetail
		m.state = stateMovieDetail
		return m, nil

	case seatsLoadedMsg:
		if msg.err != nil {
			return m, errWithReturnCmd(msg.err, m.showtimeReturnOrMenu())
		}
		m.cursorRow, m.cursorCol = 0, 0
		m.comboList.SetItems(buildComboItems(m.selector))
		m.state = stateSeats
		return m, nil

	case promoMsg:
		if msg.err != nil {
			if m.state == stateForm {
				return m.formFailed(msg.err)
			}
			return m, errWithReturnCmd(msg.err, stateConfirm)
		}
		m.form = nil
		m.flash = fmt.Sprintf("Promotion %s applied: -%s%%", msg.promo.Code, trimFloat(msg.promo.Discount))
		m.state = stateConfirm
		return m, nil

	case bookedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, booking.ErrNoSeatSelected) {
				m.flash = "Select at least one seat."
				m.state = stateSeats
				return m, nil
			}
			return m, errWithReturnCmd(msg.err, stateConfirm)
		}
		m.result = msg.result
		m.selector = nil
		m.promos.Remove()
		m.loading = "Creating payment"
		m.state = stateLoading
		return m, tea.Batch(m.createPaymentCmd(msg.result), m.spinner.Tick)

	case paymentCreatedMsg:
		if msg.err != nil && !errors.Is(msg.err, payment.ErrBrowserUnavailable) {
			return m, errWithReturnCmd(msg.err, stateTickets)
		}
		if errors.Is(msg.err, payment.ErrBrowserUnavailable) {
			m.flash = "Open this address to pay: " + msg.sess.PaymentURL
		}
		return m.openPayment(msg.sess)

	case pollTickMsg:
		m.ticking = false
		if m.poller == nil || m.state != statePayment {
			return m, nil
		}
		return m.stepPayment(m.poller.Tick())

	case pollMsg:
		if msg.poller != m.poller || msg.snap.Seq < m.snap.Seq {
			return m, nil
		}
		return m.applySnapshot(msg.snap)

	case ticketsMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.ticketList.SetItems(buildTicketItems(msg.tickets))
		m.ticketList.Select(0)
		m.state = stateTickets
		return m, nil

	case paymentsMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.paymentList.SetItems(buildPaymentItems(msg.payments))
		m.paymentList.Select(0)
		m.state = statePayments
		return m, nil

	case promotionsMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.promoList.SetItems(buildPromotionItems(msg.promotions))
		m.promoList.Select(0)
		m.state = statePromotions
		return m, nil

	case profileMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.profile = msg.user
		m.state = stateProfile
		return m, nil

	case authMsg:
		if msg.err != nil {
			return m.formFailed(msg.err)
		}
		returnTo := stateMenu
		if m.form != nil {
			returnTo = m.form.returnTo
		}
		m.form = nil
		m.flash = "Welcome, " + msg.name + "."
		m.refreshMenu()
		m.state = returnTo
		return m, nil

	case infoMsg:
		if msg.err != nil {
			return m.formFailed(msg.err)
		}
		m.flash = msg.text
		if msg.next != nil {
			m.form = msg.next
			m.state = stateForm
			return m, nil
		}
		m.form = nil
		m.refreshMenu()
		m.state = msg.returnTo
		if msg.reload != nil {
			return m, msg.reload
		}
		return m, nil

	case signedOutMsg:
		if m.poller != nil {
			m.poller.Close()
			m.poller = nil
		}
		m.flash = "Signed out."
		m.refreshMenu()
		m.state = stateMenu
		return m, nil
	}

	var cmd tea.Cmd
	if l := m.activeList(); l != nil {
		*l, cmd = l.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	header := m.headerView()
	body := ""
	switch m.state {
	case stateLoading:
		body = fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), m.loading, hint("Talking to the server..."))
	case stateMenu:
		body = m.menuList.View() + "\n" + hint("enter: open • q: quit")
	case stateMovies:
		body = m.movieList.View() + "\n" + hint("enter: details • type to filter • esc: back")
	case stateShowtimes:
		body = m.showtimeList.View() + "\n" + hint("enter: choose seats • esc: back")
	case stateMovieDetail:
		body = m.movieDetailView()
	case stateSeats:
		body = m.seatMapView()
	case stateCombos:
		body = m.comboList.View() + "\n" + m.quoteLine() + "\n" + hint("+/-: quantity • enter/esc: back to seats")
	case stateConfirm:
		body = m.confirmView()
	case statePayment:
		body = m.paymentView()
	case stateTickets:
		body = m.ticketList.View() + "\n" + hint("esc: back")
	case statePayments:
		body = m.paymentList.View() + "\n" + hint("esc: back")
	case statePromotions:
		body = m.promoList.View() + "\n" + hint("esc: back")
	case stateProfile:
		body = m.profileView()
	case stateForm:
		body = m.form.view()
	case stateError:
		body = errorStyle.Render(errorText(m.err)) + "\n\n" + hint("Press esc to go back or ctrl+c to quit.")
	}
	out := header + "\n\n" + body
	if m.flash != "" && m.state != stateError {
		out += "\n\n" + flashStyle.Render(m.flash)
	}
	return out
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	flashStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
)

func (m appModel) headerView() string {
	title := titleStyle.Render("Cinema")
	var sub []string
	if id := m.deps.Session.Identity(); m.deps.Session.Authenticated() {
		sub = append(sub, "Signed in as "+id.Name)
	} else {
		sub = append(sub, "Guest")
	}
	if m.selector != nil && m.selector.Ready() {
		st := m.selector.Showtime()
		if st.Movie != nil {
			sub = append(sub, st.Movie.Title)
		}
		sub = append(sub, showtimeLabel(st))
	}
	return title + "  " + hint(strings.Join(sub, " • "))
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	if l := m.activeList(); l != nil && l.SettingFilter() {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit, true
		}
		return m, nil, false
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true
	case "q":
		if m.state == stateMenu {
			return m, tea.Quit, true
		}
	case "esc":
		if l := m.activeList(); l != nil && l.IsFiltered() {
			l.ResetFilter()
			return m, nil, true
		}
		mm, cmd := m.goBack()
		return mm, cmd, true
	}
	m.flash = ""

	switch m.state {
	case stateMenu:
		if msg.Type == tea.KeyEnter {
			return m.openMenuItem()
		}
	case stateMovies:
		if msg.Type == tea.KeyEnter {
			item, ok := m.movieList.SelectedItem().(movieItem)
			if !ok {
				return m, nil, true
			}
			return m.startLoading("Loading "+item.movie.Title, m.fetchMovieDetailCmd(item.movie.ID))
		}
	case stateShowtimes:
		if msg.Type == tea.KeyEnter {
			return m.openSelectedShowtime()
		}
	case stateMovieDetail:
		switch msg.String() {
		case "enter":
			return m.openSelectedShowtime()
		case "r":
			if !m.deps.Session.Authenticated() {
				return m.requireLogin()
			}
			m.form = newReviewForm(m.movie)
			m.state = stateForm
			return m, nil, true
		case "t":
			if m.movie.TrailerURL != "" {
				return m, openURLCmd(m.movie.TrailerURL), true
			}
		}
		var cmd tea.Cmd
		m.showtimeList, cmd = m.showtimeList.Update(msg)
		return m, cmd, true
	case stateSeats:
		return m.handleSeatKey(msg)
	case stateCombos:
		switch msg.String() {
		case "+", "=", "right", "l":
			m.changeCombo(1)
			return m, nil, true
		case "-", "left", "h":
			m.changeCombo(-1)
			return m, nil, true
		case "enter":
			m.state = stateSeats
			return m, nil, true
		}
	case stateConfirm:
		switch msg.String() {
		case "p":
			m.form = newPromoForm()
			m.state = stateForm
			return m, nil, true
		case "x":
			m.promos.Remove()
			m.flash = "Promotion removed."
			return m, nil, true
		case "enter":
			if m.submitter.InFlight() {
				return m, nil, true
			}
			if !m.deps.Session.Authenticated() {
				return m.requireLogin()
			}
			return m.startLoading("Booking tickets", m.bookCmd(m.selector, m.promos.Current()))
		}
	case statePayment:
		switch msg.String() {
		case "c":
			if m.poller != nil {
				mm, cmd := m.stepPayment(m.poller.CheckNow())
				return mm, cmd, true
			}
		case "o":
			return m, openURLCmd(m.snap.Session.PaymentURL), true
		case "enter":
			if m.snap.State == payment.StateSuccess {
				return m.leavePayment()
			}
			if m.snap.State == payment.StateFailed {
				if m.snap.NeedsLogin {
					return m.requireLogin()
				}
				return m.leavePayment()
			}
		}
	case stateProfile:
		switch msg.String() {
		case "e":
			m.form = newProfileForm(m.profile)
			m.state = stateForm
			return m, nil, true
		case "p":
			m.form = newPasswordForm()
			m.state = stateForm
			return m, nil, true
		}
	}
	return m, nil, false
}

func (m appModel) openMenuItem() (appModel, tea.Cmd, bool) {
	item, ok := m.menuList.SelectedItem().(menuItem)
	if !ok {
		return m, nil, true
	}
	switch item.action {
	case actionAllMovies:
		return m.startLoading("Loading movies", m.fetchMoviesCmd("All movies"))
	case actionNowShowing:
		return m.startLoading("Loading showtimes", m.fetchNowShowingCmd())
	case actionUpcoming:
		return m.startLoading("Loading showtimes", m.fetchUpcomingCmd())
	case actionSearch:
		m.form = newSearchForm()
		m.state = stateForm
	case actionPromotions:
		return m.startLoading("Loading promotions", m.fetchPromotionsCmd())
	case actionTickets:
		if !m.deps.Session.Authenticated() {
			return m.requireLogin()
		}
		return m.startLoading("Loading tickets", m.fetchTicketsCmd())
	case actionPayments:
		if !m.deps.Session.Authenticated() {
			return m.requireLogin()
		}
		return m.startLoading("Loading payments", m.fetchPaymentsCmd())
	case actionProfile:
		if !m.deps.Session.Authenticated() {
			return m.requireLogin()
		}
		return m.startLoading("Loading profile", m.fetchProfileCmd())
	case actionLogin:
		m.form = newLoginForm()
		m.state = stateForm
	case actionRegister:
		m.form = newRegisterForm()
		m.state = stateForm
	case actionForgot:
		m.form = newForgotForm()
		m.state = stateForm
	case actionLogout:
		return m, m.signOutCmd(), true
	case actionQuit:
		return m, tea.Quit, true
	}
	return m, nil, true
}

func (m appModel) openSelectedShowtime() (appModel, tea.Cmd, bool) {
	item, ok := m.showtimeList.SelectedItem().(showtimeItem)
	if !ok {
		return m, nil, true
	}
	m.selector = booking.NewSelector()
	m.promos.Remove()
	return m.startLoading("Loading seat map", m.loadSeatsCmd(m.selector, item.showtime.ID))
}

func (m appModel) startLoading(title string, cmd tea.Cmd) (appModel, tea.Cmd, bool) {
	m.lastState = m.state
	m.loading = title
	m.state = stateLoading
	return m, tea.Batch(cmd, m.spinner.Tick), true
}

func (m appModel) requireLogin() (appModel, tea.Cmd, bool) {
	m.form = newLoginForm()
	m.form.returnTo = m.state
	m.flash = "Please log in to continue."
	m.state = stateForm
	return m, nil, true
}

func (m appModel) goBack() (appModel, tea.Cmd) {
	switch m.state {
	case stateMovies, stateTickets, statePayments, statePromotions, stateProfile:
		m.state = stateMenu
	case stateShowtimes:
		m.state = stateMenu
	case stateMovieDetail:
		if len(m.movieList.Items()) > 0 {
			m.state = stateMovies
		} else {
			m.state = stateMenu
		}
	case stateSeats:
		m.selector = nil
		m.promos.Remove()
		m.state = m.showtimeReturnOrMenu()
	case stateCombos, stateConfirm:
		m.state = stateSeats
	case statePayment:
		mm, cmd, _ := m.leavePayment()
		return mm, cmd
	case stateError:
		m.state = m.lastState
	case stateLoading:
		m.state = m.lastState
	}
	return m, nil
}

func (m appModel) showtimeReturnOrMenu() appState {
	if m.showtimeReturn == stateMovieDetail {
		return stateMovieDetail
	}
	if len(m.showtimeList.Items()) > 0 {
		return stateShowtimes
	}
	return stateMenu
}

func (m appModel) handleErr(msg errMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, api.ErrUnauthenticated) {
		if m.state == stateLoading {
			m.state = m.lastState
		}
		mm, cmd, _ := m.requireLogin()
		return mm, cmd
	}
	m.err = msg.err
	if msg.returnStateSet {
		m.lastState = msg.returnState
	} else {
		m.lastState = recoverStateFrom(m.state, m.lastState)
	}
	m.state = stateError
	return m, nil
}

func (m *appModel) activeList() *list.Model {
	switch m.state {
	case stateMenu:
		return &m.menuList
	case stateMovies:
		return &m.movieList
	case stateShowtimes:
		return &m.showtimeList
	case stateCombos:
		return &m.comboList
	case stateTickets:
		return &m.ticketList
	case statePayments:
		return &m.paymentList
	case statePromotions:
		return &m.promoList
	default:
		return nil
	}
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 8
	if h < 6 {
		h = 6
	}
	for _, l := range []*list.Model{&m.menuList, &m.movieList, &m.comboList, &m.ticketList, &m.paymentList, &m.promoList} {
		l.SetSize(m.width, h)
	}
	m.showtimeList.SetSize(m.width, h/2+2)
}

func (m *appModel) refreshMenu() {
	m.menuList.SetItems(buildMenuItems(m.deps.Session.Authenticated()))
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Filter = caseInsensitiveFilter
	l.SetFilteringEnabled(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

func caseInsensitiveFilter(term string, targets []string) []list.Rank {
	term = strings.ToLower(term)
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}
	return list.DefaultFilter(term, lower)
}

func recoverStateFrom(state, last appState) appState {
	switch state {
	case stateLoading, stateError:
		if last == stateLoading || last == stateError {
			return stateMenu
		}
		return last
	default:
		return state
	}
}

// errorText renders an error for the user.  Validation messages from the
// backend are shown verbatim.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	if ve, ok := api.IsValidation(err); ok {
		return ve.Message
	}
	switch {
	case errors.Is(err, api.ErrNotFound):
		return "Not found."
	case errors.Is(err, api.ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, booking.ErrNotLoaded):
		return "The seat map is not loaded. Go back and open the showtime again."
	case errors.Is(err, booking.ErrInvalidCode):
		return "Promotion code is invalid or expired."
	case errors.Is(err, booking.ErrSubmitInFlight):
		return "A booking is already being submitted."
	}
	return err.Error()
}

func sleepThen(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}
