package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

type formKind int

const (
	formLogin formKind = iota
	formRegister
	formVerifyOTP
	formForgot
	formReset
	formSearch
	formPromo
	formReview
	formProfile
	formPassword
)

// formError is a message shown on the form as typed.
type formError string

func (e formError) Error() string { return string(e) }

type form struct {
	kind     formKind
	title    string
	labels   []string
	inputs   []textinput.Model
	focus    int
	busy     bool
	err      string
	returnTo appState

	// email carries the address between the register, OTP and reset steps.
	email   string
	movieID int64
}

func newForm(kind formKind, title string, returnTo appState, fields ...string) *form {
	f := &form{kind: kind, title: title, returnTo: returnTo, labels: fields}
	for range fields {
		in := textinput.New()
		in.CharLimit = 256
		in.Width = 40
		f.inputs = append(f.inputs, in)
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) secret(i int) *form {
	f.inputs[i].EchoMode = textinput.EchoPassword
	f.inputs[i].EchoCharacter = '•'
	return f
}

func (f *form) set(i int, v string) *form {
	f.inputs[i].SetValue(v)
	return f
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		b.WriteString(f.labels[i])
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	if f.err != "" {
		b.WriteString(errorStyle.Render(f.err))
		b.WriteString("\n\n")
	}
	if f.busy {
		b.WriteString(hint("Submitting..."))
	} else {
		b.WriteString(hint("tab: next field • enter: submit • esc: cancel"))
	}
	return b.String()
}

func newLoginForm() *form {
	return newForm(formLogin, "Log in", stateMenu, "Email", "Password").secret(1)
}

func newRegisterForm() *form {
	return newForm(formRegister, "Create an account", stateMenu, "Name", "Email", "Password (at least 6 characters)").secret(2)
}

func newOTPForm(email string) *form {
	f := newForm(formVerifyOTP, "Verify your email", stateMenu, "Email", "Code sent to your email (ctrl+r: resend)")
	f.email = email
	f.set(0, email)
	f.move(1)
	return f
}

func newForgotForm() *form {
	return newForm(formForgot, "Forgot password", stateMenu, "Email")
}

func newResetForm(email string) *form {
	f := newForm(formReset, "Reset password", stateMenu, "Email", "Code sent to your email", "New password").secret(2)
	f.email = email
	f.set(0, email)
	f.move(1)
	return f
}

func newSearchForm() *form {
	return newForm(formSearch, "Search movies", stateMenu, "Title")
}

func newPromoForm() *form {
	return newForm(formPromo, "Promotion code", stateConfirm, "Code")
}

func newReviewForm(movie model.Movie) *form {
	f := newForm(formReview, "Review • "+movie.Title, stateMovieDetail, "Stars (1-5)", "Comment")
	f.movieID = movie.ID
	return f
}

func newProfileForm(u model.User) *form {
	return newForm(formProfile, "Edit profile", stateProfile, "Name", "Email").set(0, u.Name).set(1, u.Email)
}

func newPasswordForm() *form {
	return newForm(formPassword, "Change password", stateProfile, "Current password", "New password (at least 6 characters)").secret(0).secret(1)
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if f == nil {
		m.state = stateMenu
		return m, nil
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.form = nil
		m.state = f.returnTo
		return m, nil
	case "tab", "down":
		f.move(1)
		return m, nil
	case "shift+tab", "up":
		f.move(-1)
		return m, nil
	case "ctrl+r":
		if f.kind == formVerifyOTP && !f.busy {
			f.busy = true
			return m, m.resendOTPCmd(f.value(0))
		}
	case "enter":
		if f.busy {
			return m, nil
		}
		if f.focus < len(f.inputs)-1 {
			f.move(1)
			return m, nil
		}
		cmd, err := m.submitForm(f)
		if err != nil {
			f.err = errorText(err)
			return m, nil
		}
		f.err = ""
		f.busy = true
		return m, cmd
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return m, cmd
}

// submitForm checks the form locally and returns the command that sends it.
func (m appModel) submitForm(f *form) (tea.Cmd, error) {
	switch f.kind {
	case formLogin:
		req := model.LoginRequest{Email: f.value(0), Password: f.inputs[1].Value()}
		return m.loginCmd(req), m.deps.API.Validate(req)
	case formRegister:
		req := model.RegisterRequest{Name: f.value(0), Email: f.value(1), Password: f.inputs[2].Value()}
		return m.registerCmd(req), m.deps.API.Validate(req)
	case formVerifyOTP:
		req := model.VerifyOTPRequest{Email: f.value(0), OTPCode: f.value(1)}
		return m.verifyOTPCmd(req), m.deps.API.Validate(req)
	case formForgot:
		req := model.EmailRequest{Email: f.value(0)}
		return m.forgotCmd(req.Email), m.deps.API.Validate(req)
	case formReset:
		req := model.ResetPasswordRequest{Email: f.value(0), OTPCode: f.value(1), NewPassword: f.inputs[2].Value()}
		return m.resetCmd(req), m.deps.API.Validate(req)
	case formSearch:
		return m.searchCmd(f.value(0)), nil
	case formPromo:
		if f.value(0) == "" {
			return nil, formError("Enter a promotion code.")
		}
		return m.validatePromoCmd(f.value(0)), nil
	case formReview:
		star, err := strconv.Atoi(f.value(0))
		if err != nil || star < 1 || star > 5 {
			return nil, formError("Stars must be a number from 1 to 5.")
		}
		req := model.ReviewRequest{Star: star, Comment: f.value(1), MovieID: f.movieID}
		return m.postReviewCmd(req), m.deps.API.Validate(req)
	case formProfile:
		req := model.UpdateProfileRequest{Name: f.value(0), Email: f.value(1)}
		return m.updateProfileCmd(req), m.deps.API.Validate(req)
	case formPassword:
		req := model.ChangePasswordRequest{OldPassword: f.inputs[0].Value(), NewPassword: f.inputs[1].Value()}
		return m.changePasswordCmd(req), m.deps.API.Validate(req)
	}
	return nil, formError("Unknown form.")
}

// formFailed puts a failed submission's message back on the form.
func (m appModel) formFailed(err error) (tea.Model, tea.Cmd) {
	if m.form == nil {
		return m, errCmd(err)
	}
	if errors.Is(err, api.ErrUnauthenticated) && m.form.kind != formLogin {
		mm, cmd, _ := m.requireLogin()
		return mm, cmd
	}
	m.form.busy = false
	m.form.err = errorText(err)
	m.state = stateForm
	return m, nil
}
