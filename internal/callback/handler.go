// Package callback runs the local HTTP listener that receives the wallet's
// return redirect and payment notifications relayed by the backend.  Every
// accepted request becomes a model.PaymentNotification for the push
// confirmation source; none of them settles a payment on its own.
package callback

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-client/internal/middleware"
	"github.com/iliyamo/cinema-ticket-client/internal/model"
)

// Publisher receives notifications; payment.Hub implements it.
type Publisher interface {
	Publish(n model.PaymentNotification)
}

// Sources recorded on notifications.
const (
	SourceRedirect = "redirect"
	SourceRelay    = "relay"
)

// Handler serves the listener's routes.
type Handler struct {
	pub      Publisher
	validate *validator.Validate
	log      *logrus.Entry
}

// NewHandler returns a handler publishing to pub.
func NewHandler(pub Publisher, log *logrus.Logger) *Handler {
	return &Handler{pub: pub, validate: validator.New(), log: log.WithField("component", "callback")}
}

const resultPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Payment received</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:4em">
<h2>%s</h2><p>Order %s. You can close this tab and return to the terminal.</p>
</body></html>`

// PaymentResult handles GET /payment-result, the returnUrl the wallet sends
// the browser to.  The query carries the provider's orderId, resultCode and
// message.
func (h *Handler) PaymentResult(c echo.Context) error {
	orderID := strings.TrimSpace(c.QueryParam("orderId"))
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "orderId is required"})
	}
	n := model.PaymentNotification{
		OrderID: orderID,
		Message: c.QueryParam("message"),
		Source:  SourceRedirect,
	}
	title := "Payment submitted"
	if rc := c.QueryParam("resultCode"); rc != "" {
		code, err := strconv.Atoi(rc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "resultCode must be an integer"})
		}
		n.ResultCode = &code
		if code != 0 {
			title = "Payment was not completed"
		}
	}
	h.pub.Publish(n)
	h.log.WithFields(logrus.Fields{"order_id": orderID, "source": n.Source}).Info("payment redirect received")
	return c.HTML(http.StatusOK, fmt.Sprintf(resultPage, html.EscapeString(title), html.EscapeString(orderID)))
}

// Notify handles POST /v1/payments/notify from the backend relay.
func (h *Handler) Notify(c echo.Context) error {
	var n model.PaymentNotification
	if err := c.Bind(&n); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(n); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "orderId is required"})
	}
	switch n.Status {
	case "", model.PaymentPending, model.PaymentCompleted, model.PaymentFailed:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	n.Source = SourceRelay
	h.pub.Publish(n)
	h.log.WithFields(logrus.Fields{
		"order_id": n.OrderID,
		"status":   n.Status,
		"relay":    c.Get(middleware.SubjectKey),
	}).Info("payment notification relayed")
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

// Health reports that the listener is up.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
