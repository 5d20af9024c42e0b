package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	"github.com/K-i-Q/credit-chat-companion/model"
	chatsvc "github.com/K-i-Q/credit-chat-companion/service/chat"
)

type Controller struct {
	Svc chatsvc.Service
	Log *slog.Logger
}

// POST /v1/chat
//
// Streams the assistant reply as server-sent events. Pre-stream failures
// (validation, missing provider key) answer JSON; once the first event is
// written the response is committed and later failures arrive in-stream.
func (h *Controller) Chat(c echo.Context) error {
	var req model.ChatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Messages are required"})
	}
	userID, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	res := c.Response()
	started := false
	emit := func(ev model.ChatEvent) error {
		if !started {
			res.Header().Set(echo.HeaderContentType, "text/event-stream")
			res.Header().Set("Cache-Control", "no-cache")
			res.Header().Set("Connection", "keep-alive")
			res.WriteHeader(http.StatusOK)
			started = true
		}
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", b); err != nil {
			return err
		}
		res.Flush()
		return nil
	}

	err = h.Svc.Stream(c.Request().Context(), userID, req, emit)
	if err == nil {
		return nil
	}

	var debitErr *chatsvc.DebitError
	switch {
	case errors.As(err, &debitErr):
		// The reply already streamed; the charge is the only casualty.
		h.Log.Error("chat debit failed", "user_id", userID, "err", err)
		return nil
	case errors.Is(err, chatsvc.ErrNotConfigured) && !started:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "OPENAI_API_KEY is not set on the server"})
	case errors.Is(err, chatsvc.ErrNoMessages) && !started:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Messages are required"})
	case errors.Is(err, chatsvc.ErrNoCredits) && !started:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient balance"})
	}

	h.Log.Error("chat stream failed", "user_id", userID, "err", err)
	if !started {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return nil
}
