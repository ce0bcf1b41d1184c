package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/logging"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
	"github.com/iliyamo/cinema-ticket-client/internal/payment"
	"github.com/iliyamo/cinema-ticket-client/internal/session"
)

func TestConfirmationSourceSelection(t *testing.T) {
	log := logging.Discard()
	client := api.New(config.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil, log)
	hub := payment.NewHub(0)

	cfg := config.Config{Payment: config.PaymentConfig{ConfirmMode: ModeSimulated}}
	assert.IsType(t, &payment.SimulatedSource{}, confirmationSource(cfg, client, hub, log))

	cfg.Payment.ConfirmMode = ModePush
	assert.IsType(t, &payment.SimulatedSource{}, confirmationSource(cfg, client, hub, log), "push without a feed")

	cfg.Callback.Enabled = true
	assert.IsType(t, &payment.PushSource{}, confirmationSource(cfg, client, hub, log))

	cfg.Payment.ConfirmMode = "carrier-pigeon"
	assert.IsType(t, &payment.SimulatedSource{}, confirmationSource(cfg, client, hub, log))
}

func TestOpenStoreBackends(t *testing.T) {
	log := logging.Discard()
	ctx := context.Background()

	cfg := config.Config{Session: config.SessionConfig{Backend: "memory"}}
	st, err := openStore(ctx, cfg, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, st)

	cfg.Session = config.SessionConfig{Backend: "redis", File: filepath.Join(t.TempDir(), "s.json")}
	st, err = openStore(ctx, cfg, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &session.FileStore{}, st, "redis falls back to the file")

	cfg.Session = config.SessionConfig{Backend: "file", File: filepath.Join(t.TempDir(), "s.json")}
	st, err = openStore(ctx, cfg, nil, log)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, session.KeyToken, "tok"))
	v, ok, err := st.Get(ctx, session.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
}

func TestResumePaymentFromStore(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()
	path := filepath.Join(t.TempDir(), "s.json")

	first, err := session.OpenFileStore(path, "pass")
	require.NoError(t, err)
	saved := model.PaymentSession{PaymentID: 8, OrderID: "ORDER_8", Amount: 70000, PaymentURL: "https://pay.example/8"}
	require.NoError(t, session.New(first).SavePayment(ctx, saved))
	require.NoError(t, first.Close())

	again, err := session.OpenFileStore(path, "pass")
	require.NoError(t, err)
	sess := session.New(again)
	require.NoError(t, sess.Load(ctx))
	got := resumePayment(ctx, sess, log)
	require.NotNil(t, got)
	assert.Equal(t, saved.OrderID, got.OrderID)
	assert.Equal(t, saved.PaymentURL, got.PaymentURL)

	require.NoError(t, sess.ClearPayment(ctx))
	assert.Nil(t, resumePayment(ctx, sess, log))
}
