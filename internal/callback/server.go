package callback

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/config"
	"github.com/iliyamo/cinema-ticket-client/internal/middleware"
)

// RegisterRoutes mounts the listener's routes.  The return redirect and the
// health check are public; relayed notifications need a relay token.
func RegisterRoutes(e *echo.Echo, h *Handler, jwtSecret string, limit echo.MiddlewareFunc) {
	e.GET("/health", Health)
	e.GET("/payment-result", h.PaymentResult, limit)

	g := e.Group("/v1",
		limit,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RelayRole),
	)
	g.POST("/payments/notify", h.Notify)
}

// Server is the callback listener.
type Server struct {
	echo *echo.Echo
	addr string
	log  *logrus.Entry
}

// NewServer builds the listener.  rdb may be nil; the rate limiter then
// keeps its buckets in memory.
func NewServer(cfg config.CallbackConfig, rl config.RateLimitConfig, rdb *redis.Client, pub Publisher, log *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	entry := log.WithField("component", "callback")
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry.WithFields(logrus.Fields{"method": v.Method, "uri": v.URI, "status": v.Status}).Debug("request")
			return nil
		},
	}))

	limit := middleware.RateLimit(rl, middleware.NewLimiter(rl, rdb), log)
	RegisterRoutes(e, NewHandler(pub, log), cfg.JWTSecret, limit)
	return &Server{echo: e, addr: cfg.Addr, log: entry}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.addr)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
