package invite

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	"github.com/K-i-Q/credit-chat-companion/model"
	invitesvc "github.com/K-i-Q/credit-chat-companion/service/invite"
)

type Controller struct {
	Svc invitesvc.Service
	Log *slog.Logger
}

// POST /v1/invites/redeem
// @Summary Redeem an invite code for credits
// @Success 200 {object} map[string]any
// @Failure 400,401,404,500
func (h *Controller) Redeem(c echo.Context) error {
	var req model.RedeemInviteReq
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

	res, err := h.Svc.Redeem(c.Request().Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, invitesvc.ErrBadCode):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid code"})
		case errors.Is(err, invitesvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Invite not found"})
		}
		h.Log.Error("invite redeem failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to redeem invite"})
	}

	if res.AlreadyRedeemed {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "already_redeemed": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "new_balance": res.NewBalance})
}
