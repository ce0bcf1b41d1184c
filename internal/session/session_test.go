package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "an@example.com",
		"role": "CUSTOMER",
		"exp":  exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSignInThenLoadRestoresIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store)
	tok := signedToken(t, time.Now().Add(time.Hour))

	require.NoError(t, s.SignIn(ctx, model.AuthResponse{Token: tok, ID: 42, Name: "An", Email: "an@example.com", Role: model.RoleCustomer}))

	again := New(store)
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, tok, again.Token())
	assert.Equal(t, Identity{ID: 42, Name: "An", Email: "an@example.com", Role: model.RoleCustomer}, again.Identity())

	c, err := again.Claims()
	require.NoError(t, err)
	assert.Equal(t, "an@example.com", c.Subject)
	assert.Equal(t, "CUSTOMER", c.Role)
}

func TestExpiredTokenIsNotOffered(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())
	tok := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, s.SignIn(ctx, model.AuthResponse{Token: tok, ID: 1}))
	assert.True(t, s.Authenticated())

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, "", s.Token())
	assert.False(t, s.Authenticated())
}

func TestOpaqueTokenIsPassedThrough(t *testing.T) {
	s := New(NewMemoryStore())
	require.NoError(t, s.SignIn(context.Background(), model.AuthResponse{Token: "not-a-jwt", ID: 1}))
	assert.Equal(t, "not-a-jwt", s.Token())
}

func TestSignOutClearsEveryKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store)
	require.NoError(t, s.SignIn(ctx, model.AuthResponse{Token: "t", ID: 1, Name: "An"}))
	require.NoError(t, s.SavePayment(ctx, model.PaymentSession{PaymentID: 1, OrderID: "ORD-1", Amount: 250000, PaymentURL: "https://pay"}))
	require.Equal(t, 7, store.Len())

	require.NoError(t, s.SignOut(ctx))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, "", s.Token())
	assert.Equal(t, Identity{}, s.Identity())
}

func TestPaymentRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore())
	p := model.PaymentSession{PaymentID: 9, OrderID: "ORD-9", Amount: 120000, PaymentURL: "https://pay/9"}
	require.NoError(t, s.SavePayment(ctx, p))

	got, ok, err := s.Payment(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.OrderID, got.OrderID)
	assert.Equal(t, p.Amount, got.Amount)

	require.NoError(t, s.ClearPayment(ctx))
	_, ok, err = s.Payment(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptPaymentIsDropped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyCurrentPayment, "{not json"))
	s := New(store)

	_, ok, err := s.Payment(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, present, _ := store.Get(ctx, KeyCurrentPayment)
	assert.False(t, present)
}

func TestFileStorePersistsPlain(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs, err := OpenFileStore(path, "")
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, KeyUserName, "An"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"userName":"An"`)

	reopened, err := OpenFileStore(path, "")
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, KeyUserName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "An", v)

	require.NoError(t, reopened.Delete(ctx, KeyUserName))
	_, ok, _ = reopened.Get(ctx, KeyUserName)
	assert.False(t, ok)
}

func TestFileStoreEncrypted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.bin")
	fs, err := OpenFileStore(path, "correct horse")
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, KeyToken, "secret-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
	assert.Equal(t, fileMagic, string(raw[:len(fileMagic)]))

	reopened, err := OpenFileStore(path, "correct horse")
	require.NoError(t, err)
	v, _, _ := reopened.Get(ctx, KeyToken)
	assert.Equal(t, "secret-token", v)

	_, err = OpenFileStore(path, "wrong")
	assert.ErrorIs(t, err, ErrBadPassphrase)
	_, err = OpenFileStore(path, "")
	assert.ErrorIs(t, err, ErrBadPassphrase)
}
