package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliyamo/cinema-ticket-client/internal/booking"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
	"github.com/iliyamo/cinema-ticket-client/internal/payment"
)

type errMsg struct {
	err            error
	returnState    appState
	returnStateSet bool
}

type moviesMsg struct {
	movies []model.Movie
	title  string
	err    error
}

type showtimesMsg struct {
	showtimes []model.Showtime
	title     string
	err       error
}

type movieDetailMsg struct {
	movie     model.Movie
	reviews   []model.Review
	showtimes []model.Showtime
	err       error
}

type seatsLoadedMsg struct{ err error }

type promoMsg struct {
	promo booking.Promotion
	err   error
}

type bookedMsg struct {
	result model.BookingResult
	err    error
}

type paymentCreatedMsg struct {
	sess model.PaymentSession
	err  error
}

type pollTickMsg struct{}

type pollMsg struct {
	poller *payment.Poller
	snap   payment.Snapshot
}

type ticketsMsg struct {
	tickets []model.Ticket
	err     error
}

type paymentsMsg struct {
	payments []model.Payment
	err      error
}

type promotionsMsg struct {
	promotions []model.Promotion
	err        error
}

type profileMsg struct {
	user model.User
	err  error
}

type authMsg struct {
	name string
	err  error
}

// infoMsg reports a completed form action.  next, when set, is the form to
// continue with; otherwise the view returns to returnTo and runs reload.
type infoMsg struct {
	text     string
	next     *form
	returnTo appState
	reload   tea.Cmd
	err      error
}

type signedOutMsg struct{}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg { return errMsg{err: err} }
}

func errWithReturnCmd(err error, returnState appState) tea.Cmd {
	return func() tea.Msg {
		return errMsg{err: err, returnState: returnState, returnStateSet: true}
	}
}

func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := payment.SystemBrowser.Open(url); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m appModel) fetchMoviesCmd(title string) tea.Cmd {
	return func() tea.Msg {
		movies, err := m.deps.API.Movies(m.ctx)
		return moviesMsg{movies: movies, title: title, err: err}
	}
}

func (m appModel) searchCmd(term string) tea.Cmd {
	return func() tea.Msg {
		movies, err := m.deps.API.SearchMovies(m.ctx, term)
		title := "All movies"
		if term != "" {
			title = fmt.Sprintf("Search • %q", term)
		}
		return moviesMsg{movies: movies, title: title, err: err}
	}
}

func (m appModel) fetchNowShowingCmd() tea.Cmd {
	return func() tea.Msg {
		st, err := m.deps.API.NowShowing(m.ctx)
		return showtimesMsg{showtimes: sortShowtimes(st), title: "Now showing", err: err}
	}
}

func (m appModel) fetchUpcomingCmd() tea.Cmd {
	return func() tea.Msg {
		st, err := m.deps.API.Upcoming(m.ctx)
		return showtimesMsg{showtimes: sortShowtimes(st), title: "Coming soon", err: err}
	}
}

// fetchMovieDetailCmd loads the movie, its showtimes and its reviews.
// Reviews are optional: a failure there leaves the list empty.
func (m appModel) fetchMovieDetailCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		movie, err := m.deps.API.Movie(m.ctx, id)
		if err != nil {
			return movieDetailMsg{err: err}
		}
		st, err := m.deps.API.ShowtimesForMovie(m.ctx, id)
		if err != nil {
			return movieDetailMsg{err: err}
		}
		reviews, err := m.deps.API.Reviews(m.ctx, id)
		if err != nil {
			m.deps.Log.WithField("movie_id", id).Warnf("load reviews: %v", err)
			reviews = nil
		}
		return movieDetailMsg{movie: movie, reviews: reviews, showtimes: sortShowtimes(st)}
	}
}

func (m appModel) loadSeatsCmd(sel *booking.Selector, showtimeID int64) tea.Cmd {
	return func() tea.Msg {
		return seatsLoadedMsg{err: sel.Load(m.ctx, m.deps.API, showtimeID)}
	}
}

func (m appModel) validatePromoCmd(code string) tea.Cmd {
	promos := m.promos
	return func() tea.Msg {
		p, err := promos.Validate(m.ctx, code)
		return promoMsg{promo: p, err: err}
	}
}

func (m appModel) bookCmd(sel *booking.Selector, promo *booking.Promotion) tea.Cmd {
	sub := m.submitter
	return func() tea.Msg {
		if sel == nil {
			return bookedMsg{err: booking.ErrNotLoaded}
		}
		res, err := sub.SubmitSelection(m.ctx, sel, promo)
		return bookedMsg{result: res, err: err}
	}
}

func (m appModel) createPaymentCmd(res model.BookingResult) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.deps.Initiator.Create(m.ctx, res.TicketIDs(), m.deps.ReturnURL)
		return paymentCreatedMsg{sess: sess, err: err}
	}
}

func (m appModel) checkCmd(p *payment.Poller) tea.Cmd {
	return func() tea.Msg {
		return pollMsg{poller: p, snap: p.Check(m.ctx)}
	}
}

func (m appModel) publishConfirmedCmd(sess model.PaymentSession) tea.Cmd {
	if m.deps.Events == nil {
		return nil
	}
	events, userID, log := m.deps.Events, m.deps.Session.Identity().ID, m.deps.Log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
		defer cancel()
		if err := events.PublishBookingConfirmed(ctx, sess, userID); err != nil {
			log.WithField("order_id", sess.OrderID).Warnf("booking confirmed event not published: %v", err)
		}
		return nil
	}
}

func (m appModel) fetchTicketsCmd() tea.Cmd {
	return func() tea.Msg {
		t, err := m.deps.API.TicketHistory(m.ctx)
		return ticketsMsg{tickets: t, err: err}
	}
}

func (m appModel) fetchPaymentsCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.deps.API.PaymentHistory(m.ctx)
		return paymentsMsg{payments: p, err: err}
	}
}

func (m appModel) fetchPromotionsCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.deps.API.ActivePromotions(m.ctx)
		return promotionsMsg{promotions: p, err: err}
	}
}

func (m appModel) fetchProfileCmd() tea.Cmd {
	return func() tea.Msg {
		u, err := m.deps.API.Me(m.ctx)
		return profileMsg{user: u, err: err}
	}
}

func (m appModel) loginCmd(req model.LoginRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.Login(m.ctx, req)
		if err != nil {
			return authMsg{err: err}
		}
		if err := m.deps.Session.SignIn(m.ctx, res); err != nil {
			return authMsg{err: err}
		}
		return authMsg{name: res.Name}
	}
}

func (m appModel) registerCmd(req model.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.Register(m.ctx, req)
		if err != nil {
			return infoMsg{err: err}
		}
		email := res.Email
		if email == "" {
			email = req.Email
		}
		return infoMsg{text: messageOr(res.Message, "Account created. Check your email for the verification code."), next: newOTPForm(email)}
	}
}

func (m appModel) verifyOTPCmd(req model.VerifyOTPRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.VerifyOTP(m.ctx, req)
		if err != nil {
			return authMsg{err: err}
		}
		if err := m.deps.Session.SignIn(m.ctx, res); err != nil {
			return authMsg{err: err}
		}
		return authMsg{name: res.Name}
	}
}

func (m appModel) resendOTPCmd(email string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.ResendOTP(m.ctx, email)
		if err != nil {
			return infoMsg{err: err}
		}
		return infoMsg{text: messageOr(res.Message, "A new code was sent."), next: newOTPForm(email)}
	}
}

func (m appModel) forgotCmd(email string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.ForgotPassword(m.ctx, email)
		if err != nil {
			return infoMsg{err: err}
		}
		return infoMsg{text: messageOr(res.Message, "Check your email for the reset code."), next: newResetForm(email)}
	}
}

func (m appModel) resetCmd(req model.ResetPasswordRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.ResetPassword(m.ctx, req)
		if err != nil {
			return infoMsg{err: err}
		}
		return infoMsg{text: messageOr(res.Message, "Password reset. You can log in now."), next: newLoginForm()}
	}
}

func (m appModel) postReviewCmd(req model.ReviewRequest) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.deps.API.PostReview(m.ctx, req); err != nil {
			return infoMsg{err: err}
		}
		return infoMsg{text: "Thanks for your review.", returnTo: stateMovieDetail, reload: m.fetchMovieDetailCmd(req.MovieID)}
	}
}

func (m appModel) updateProfileCmd(req model.UpdateProfileRequest) tea.Cmd {
	return func() tea.Msg {
		u, err := m.deps.API.UpdateMe(m.ctx, req)
		if err != nil {
			return infoMsg{err: err}
		}
		if err := m.deps.Session.UpdateProfile(m.ctx, u); err != nil {
			return infoMsg{err: err}
		}
		return infoMsg{text: "Profile updated.", returnTo: stateProfile, reload: m.fetchProfileCmd()}
	}
}

func (m appModel) changePasswordCmd(req model.ChangePasswordRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.API.ChangePassword(m.ctx, req)
		if err != nil {
			return infoMsg{err: err}
		}
		return infoMsg{text: messageOr(res.Message, "Password changed."), returnTo: stateProfile}
	}
}

func (m appModel) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Session.SignOut(m.ctx); err != nil {
			return errMsg{err: err}
		}
		return signedOutMsg{}
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func sortShowtimes(st []model.Showtime) []model.Showtime {
	sort.SliceStable(st, func(i, j int) bool { return st[i].Starts().Before(st[j].Starts()) })
	return st
}
