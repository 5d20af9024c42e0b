package referral

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	"github.com/K-i-Q/credit-chat-companion/model"
	referralsvc "github.com/K-i-Q/credit-chat-companion/service/referral"
)

type Controller struct {
	Svc referralsvc.Service
	Log *slog.Logger
}

// POST /v1/referral/code
// @Summary Get or create the caller's referral code
func (h *Controller) Code(c echo.Context) error {
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	code, err := h.Svc.Code(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("referral code failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"code": code})
}

// POST /v1/referral/apply
func (h *Controller) Apply(c echo.Context) error {
	var req model.ApplyReferralReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid code"})
	}
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	res, err := h.Svc.Apply(c.Request().Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, referralsvc.ErrBadCode):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid code"})
		case errors.Is(err, referralsvc.ErrOwnCode):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Cannot use your own code"})
		case errors.Is(err, referralsvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Referral not found"})
		}
		h.Log.Error("referral apply failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	if res.AlreadyApplied {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "already_redeemed": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
