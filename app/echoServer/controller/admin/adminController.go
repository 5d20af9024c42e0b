package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	"github.com/K-i-Q/credit-chat-companion/model"
	authsvc "github.com/K-i-Q/credit-chat-companion/service/auth"
	invitesvc "github.com/K-i-Q/credit-chat-companion/service/invite"
	walletsvc "github.com/K-i-Q/credit-chat-companion/service/wallet"
)

type Controller struct {
	Wallet  walletsvc.Service
	Invites invitesvc.Service
	Users   authsvc.Service
	Log     *slog.Logger
}

// POST /v1/admin/credits
// @Summary Grant credits to a user
// @Success 200 {object} map[string]any
// @Failure 400,401,403,500
func (h *Controller) Credits(c echo.Context) error {
	var req model.TopupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user_id or amount"})
	}
	actorID, _ := jwtx.UserIDFromContext(c)

	newBalance, err := h.Wallet.Grant(c.Request().Context(), req.UserID, req.Amount,
		model.Meta{"source": "admin", "by": actorID})
	if err != nil {
		h.Log.Error("admin topup failed", "user_id", req.UserID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "new_balance": newBalance})
}

// GET /v1/admin/invites
func (h *Controller) ListInvites(c echo.Context) error {
	invites, err := h.Invites.List(c.Request().Context())
	if err != nil {
		h.Log.Error("list invites failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if invites == nil {
		invites = []model.Invite{}
	}
	return c.JSON(http.StatusOK, echo.Map{"invites": invites})
}

// POST /v1/admin/invites
func (h *Controller) CreateInvite(c echo.Context) error {
	var req model.CreateInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid credits"})
	}
	actorID, _ := jwtx.UserIDFromContext(c)

	inv, err := h.Invites.Create(c.Request().Context(), actorID, req.Code, req.Credits)
	if err != nil {
		switch {
		case errors.Is(err, invitesvc.ErrBadCode):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid code format"})
		case errors.Is(err, invitesvc.ErrCodeTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Code already exists"})
		}
		h.Log.Error("create invite failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"invite": inv})
}

// POST /v1/admin/invites/delete
func (h *Controller) DeleteInvite(c echo.Context) error {
	var req model.DeleteInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid invite_id"})
	}

	if err := h.Invites.Delete(c.Request().Context(), req.InviteID); err != nil {
		if errors.Is(err, invitesvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Coupon not found"})
		}
		h.Log.Error("delete invite failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// GET /v1/admin/users
func (h *Controller) ListUsers(c echo.Context) error {
	users, err := h.Users.ListUsers(c.Request().Context())
	if err != nil {
		h.Log.Error("list users failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if users == nil {
		users = []model.AdminUserRow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

type roleReq struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=user admin"`
}

// POST /v1/admin/role
func (h *Controller) SetRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user_id or role"})
	}

	if err := h.Users.SetRole(c.Request().Context(), req.UserID, req.Role); err != nil {
		if errors.Is(err, authsvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		h.Log.Error("set role failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

type deleteUserReq struct {
	UserID string `json:"user_id" validate:"required"`
}

// POST /v1/admin/users/delete
func (h *Controller) DeleteUser(c echo.Context) error {
	var req deleteUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user_id"})
	}
	actorID, _ := jwtx.UserIDFromContext(c)

	if err := h.Users.DeleteUser(c.Request().Context(), actorID, req.UserID); err != nil {
		switch {
		case errors.Is(err, authsvc.ErrSelfTarget):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Cannot delete your own account"})
		case errors.Is(err, authsvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		h.Log.Error("delete user failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
