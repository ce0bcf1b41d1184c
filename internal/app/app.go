// Package app wires configuration, storage, the backend client, the payment
// confirmation sources and the terminal UI into one runnable program.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/api"
	"github.com/iliyamo/cinema-ticket-client/internal/callback"
	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/database"
	"github.com/iliyamo/cinema-ticket-client/internal/httpcache"
	"github.com/iliyamo/cinema-ticket-client/internal/logging"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
	"github.com/iliyamo/cinema-ticket-client/internal/payment"
	"github.com/iliyamo/cinema-ticket-client/internal/queue"
	"github.com/iliyamo/cinema-ticket-client/internal/session"
	"github.com/iliyamo/cinema-ticket-client/internal/tui"
)

// Confirmation modes accepted in PAYMENT_CONFIRM_MODE.
const (
	ModeSimulated = "simulated"
	ModePush      = "push"
)

// Run starts the client and blocks until the UI exits or ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.WithFields(logrus.Fields{"env": cfg.Env, "api": cfg.API.BaseURL}).Info("starting cinema client")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	store, err := openStore(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer store.Close()

	sess := session.New(store)
	if err := sess.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	client := api.New(cfg.API, sess, log, api.WithTransport(cacheTransport(rdb, log)))

	hub := payment.NewHub(0)
	if cfg.Callback.Enabled {
		srv := callback.NewServer(cfg.Callback, config.LoadRateLimitConfig(), rdb, hub, log)
		go func() {
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithField("component", "callback").Errorf("listener stopped: %v", err)
			}
		}()
	}
	var events tui.EventPublisher
	if cfg.Queue.Enabled {
		consumer := queue.NewConsumer(cfg.Queue.URL, hub, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithField("component", "queue").Errorf("consumer stopped: %v", err)
			}
		}()
		events = queue.NewEventPublisher(cfg.Queue.URL, log)
	}

	deps := tui.Deps{
		API:       client,
		Session:   sess,
		Initiator: payment.NewInitiator(client, sess, payment.SystemBrowser, log),
		Source:    confirmationSource(cfg, client, hub, log),
		Events:    events,
		ReturnURL: cfg.ReturnURL(),
		Payment:   cfg.Payment,
		Log:       log,
	}
	deps.Resume = resumePayment(ctx, sess, log)

	prog := tea.NewProgram(tui.New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}
	log.Info("cinema client stopped")
	return nil
}

// resumePayment returns the payment session an earlier run left pending.
func resumePayment(ctx context.Context, sess *session.Session, log *logrus.Logger) *model.PaymentSession {
	p, ok, err := sess.Payment(ctx)
	if err != nil {
		log.Warnf("read saved payment: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	log.WithField("order_id", p.OrderID).Info("resuming saved payment")
	return &p
}

// openStore picks the session backend.  Redis and MySQL fall back to the
// file store when they cannot be reached.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log *logrus.Logger) (session.Store, error) {
	entry := log.WithField("component", "session")
	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		if rdb != nil {
			return session.NewRedisStore(rdb, cfg.Session.Prefix, cfg.Session.Namespace), nil
		}
		entry.Warn("redis unavailable, using the session file")
	case "mysql":
		db, err := database.Open(cfg.DB)
		if err == nil {
			err = database.EnsureSchema(ctx, db)
			if err == nil {
				return session.NewSQLStore(db, cfg.Session.Namespace), nil
			}
			_ = db.Close()
		}
		entry.Warnf("mysql unavailable, using the session file: %v", err)
	}
	fs, err := session.OpenFileStore(cfg.Session.File, cfg.Session.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	return fs, nil
}

// cacheTransport caches catalog reads in Redis when available, else in
// process memory.
func cacheTransport(rdb *redis.Client, log *logrus.Logger) http.RoundTripper {
	var backend httpcache.Backend = httpcache.NewMemoryBackend()
	if rdb != nil {
		backend = httpcache.NewRedisBackend(rdb)
	}
	return httpcache.New(config.LoadCacheConfig(), backend, http.DefaultTransport, log)
}

// confirmationSource returns the step the payment poller runs before it
// reads the status.  Push mode needs the callback listener or the queue to
// feed the hub; without either it falls back to the simulated callback.
func confirmationSource(cfg config.Config, client *api.Client, hub *payment.Hub, log *logrus.Logger) payment.ConfirmationSource {
	switch cfg.Payment.ConfirmMode {
	case ModePush:
		if cfg.Callback.Enabled || cfg.Queue.Enabled {
			return payment.NewPushSource(hub, cfg.Payment.PushWait, log)
		}
		log.Warn("push confirmation needs CALLBACK_ENABLED or QUEUE_ENABLED, using simulated callback")
	case ModeSimulated, "":
	default:
		log.Warnf("unknown PAYMENT_CONFIRM_MODE %q, using simulated callback", cfg.Payment.ConfirmMode)
	}
	return payment.NewSimulatedSource(client, cfg.Payment.SettleDelay, log)
}
