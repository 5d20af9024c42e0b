package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	"github.com/K-i-Q/credit-chat-companion/model"
	paymentsvc "github.com/K-i-Q/credit-chat-companion/service/payment"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *slog.Logger
}

// POST /v1/payments/pix
// @Summary Create a PIX charge for credits
// @Success 200 {object} model.ChargeCreated
// @Failure 400,401,500,502
func (h *Controller) CreatePix(c echo.Context) error {
	var req model.CreatePixReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid credits"})
	}
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	res, err := h.Svc.CreatePurchase(c.Request().Context(), userID, jwtx.EmailFromContext(c), req.Credits)
	if err != nil {
		return h.chargeError(c, "create pix failed", err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /v1/donations
func (h *Controller) CreateDonation(c echo.Context) error {
	var req model.CreateDonationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid amount"})
	}
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	res, err := h.Svc.CreateDonation(c.Request().Context(), userID, jwtx.EmailFromContext(c), req.Amount)
	if err != nil {
		return h.chargeError(c, "create donation failed", err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /v1/payments/pix/status
func (h *Controller) PixStatus(c echo.Context) error {
	return h.status(c, h.Svc.PurchaseStatus)
}

// POST /v1/donations/status
func (h *Controller) DonationStatus(c echo.Context) error {
	return h.status(c, h.Svc.DonationStatus)
}

func (h *Controller) status(c echo.Context, lookup func(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error)) error {
	var req model.PaymentStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid payment_id"})
	}
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	st, err := lookup(c.Request().Context(), userID, req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Payment not found"})
		case errors.Is(err, paymentsvc.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		h.Log.Error("payment status failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, st)
}

// POST /v1/payments/webhook
//
// The gateway acknowledgment endpoint. Malformed pings and unknown
// payments answer {ok:true}; only validation and I/O failures answer
// non-200 so the gateway redelivers.
func (h *Controller) Webhook(c echo.Context) error {
	raw, _ := io.ReadAll(c.Request().Body)
	paymentID := paymentsvc.ExtractPaymentID(raw, c.QueryParams())
	if paymentID == "" {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}

	res, err := h.Svc.HandleNotification(c.Request().Context(), paymentID)
	if err != nil {
		h.Log.Error("webhook reconcile failed", "payment_id", paymentID, "err", err)
		switch {
		case errors.Is(err, paymentsvc.ErrAmountMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Payment amount mismatch"})
		case errors.Is(err, paymentsvc.ErrNotConfigured):
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment gateway not configured"})
		case errors.Is(err, paymentsvc.ErrUpstream):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "Failed to fetch payment"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	if res.NewBalance != nil {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "new_balance": *res.NewBalance})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *Controller) chargeError(c echo.Context, msg string, err error) error {
	switch {
	case errors.Is(err, paymentsvc.ErrNotConfigured):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment gateway not configured"})
	case errors.Is(err, paymentsvc.ErrUpstream):
		h.Log.Error(msg, "err", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider request failed"})
	}
	h.Log.Error(msg, "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
