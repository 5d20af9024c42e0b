package wallet

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	walletsvc "github.com/K-i-Q/credit-chat-companion/service/wallet"
)

type Controller struct {
	Svc walletsvc.Service
	Log *slog.Logger
}

// GET /v1/wallet
// @Summary Current balance and ledger history
func (h *Controller) Summary(c echo.Context) error {
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	balance, ledger, err := h.Svc.Summary(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("wallet summary failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": balance, "ledger": ledger})
}
