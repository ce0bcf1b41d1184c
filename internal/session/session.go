package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Fixed key names.  They match what the web client stored in local storage,
// so a shared Redis or MySQL store stays readable by both.
const (
	KeyToken          = "token"
	KeyUserName       = "userName"
	KeyUserEmail      = "userEmail"
	KeyUserRole       = "userRole"
	KeyUserID         = "userId"
	KeyCurrentPayment = "currentPayment"
	KeyAmount         = "amount"
)

// allKeys is everything SignOut removes.
var allKeys = []string{KeyToken, KeyUserName, KeyUserEmail, KeyUserRole, KeyUserID, KeyCurrentPayment, KeyAmount}

// Identity is the signed-in user as remembered by the client.
type Identity struct {
	ID    int64
	Name  string
	Email string
	Role  model.Role
}

// Claims are the parts of the bearer token the client looks at.  The token
// is not verified here; the backend does that on every call.
type Claims struct {
	Subject string
	Role    string
	Expires time.Time
}

// Session is the typed accessor over a Store.  Identity fields are cached in
// memory after Load so Token can be called from any goroutine without I/O.
type Session struct {
	store Store
	now   func() time.Time

	mu    sync.RWMutex
	token string
	ident Identity
}

// New wraps store.  Call Load before use.
func New(store Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Load reads the identity keys from the store.
func (s *Session) Load(ctx context.Context) error {
	vals := make(map[string]string, 5)
	for _, k := range []string{KeyToken, KeyUserName, KeyUserEmail, KeyUserRole, KeyUserID} {
		v, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("load %s: %w", k, err)
		}
		if ok {
			vals[k] = v
		}
	}
	id, _ := strconv.ParseInt(vals[KeyUserID], 10, 64)
	s.mu.Lock()
	s.token = vals[KeyToken]
	s.ident = Identity{
		ID:    id,
		Name:  vals[KeyUserName],
		Email: vals[KeyUserEmail],
		Role:  model.Role(vals[KeyUserRole]),
	}
	s.mu.Unlock()
	return nil
}

// Token returns the bearer token, or "" when none is stored or the token's
// exp claim has passed.
func (s *Session) Token() string {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()
	if tok == "" {
		return ""
	}
	if c, err := parseClaims(tok); err == nil && !c.Expires.IsZero() && !s.now().Before(c.Expires) {
		return ""
	}
	return tok
}

// Authenticated reports whether a usable token is stored.
func (s *Session) Authenticated() bool { return s.Token() != "" }

// Identity returns the remembered user.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ident
}

// Claims decodes the stored token.
func (s *Session) Claims() (Claims, error) {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()
	if tok == "" {
		return Claims{}, fmt.Errorf("no token stored")
	}
	return parseClaims(tok)
}

// SignIn remembers the result of a login or OTP verification.
func (s *Session) SignIn(ctx context.Context, a model.AuthResponse) error {
	pairs := [][2]string{
		{KeyToken, a.Token},
		{KeyUserName, a.Name},
		{KeyUserEmail, a.Email},
		{KeyUserRole, string(a.Role)},
		{KeyUserID, strconv.FormatInt(a.ID, 10)},
	}
	for _, p := range pairs {
		if err := s.store.Set(ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("store %s: %w", p[0], err)
		}
	}
	s.mu.Lock()
	s.token = a.Token
	s.ident = Identity{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
	s.mu.Unlock()
	return nil
}

// UpdateProfile refreshes the remembered name and email after a profile edit.
func (s *Session) UpdateProfile(ctx context.Context, u model.User) error {
	if err := s.store.Set(ctx, KeyUserName, u.Name); err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyUserEmail, u.Email); err != nil {
		return err
	}
	s.mu.Lock()
	s.ident.Name = u.Name
	s.ident.Email = u.Email
	s.mu.Unlock()
	return nil
}

// SignOut forgets the user and any in-flight payment.  The in-memory
// identity is cleared even when the store fails.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.ident = Identity{}
	s.mu.Unlock()
	return s.store.Delete(ctx, allKeys...)
}

// SavePayment persists the in-flight payment session.
func (s *Session) SavePayment(ctx context.Context, p model.PaymentSession) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyCurrentPayment, string(b)); err != nil {
		return fmt.Errorf("store %s: %w", KeyCurrentPayment, err)
	}
	if err := s.store.Set(ctx, KeyAmount, strconv.FormatFloat(p.Amount, 'f', -1, 64)); err != nil {
		return fmt.Errorf("store %s: %w", KeyAmount, err)
	}
	return nil
}

// Payment returns the persisted payment session, if any.  A corrupt entry is
// dropped and reported as absent.
func (s *Session) Payment(ctx context.Context) (model.PaymentSession, bool, error) {
	v, ok, err := s.store.Get(ctx, KeyCurrentPayment)
	if err != nil || !ok {
		return model.PaymentSession{}, false, err
	}
	var p model.PaymentSession
	if err := json.Unmarshal([]byte(v), &p); err != nil || p.OrderID == "" {
		_ = s.store.Delete(ctx, KeyCurrentPayment, KeyAmount)
		return model.PaymentSession{}, false, nil
	}
	return p, true, nil
}

// ClearPayment removes the persisted payment session.
func (s *Session) ClearPayment(ctx context.Context) error {
	return s.store.Delete(ctx, KeyCurrentPayment, KeyAmount)
}

// parseClaims reads sub, role and exp without verifying the signature.
func parseClaims(raw string) (Claims, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return Claims{}, err
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("unexpected claims type")
	}
	var c Claims
	if sub, err := mc.GetSubject(); err == nil {
		c.Subject = sub
	}
	if role, ok := mc["role"].(string); ok {
		c.Role = role
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.Expires = exp.Time
	}
	return c, nil
}
