package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/admin"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/auth"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/chat"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/invite"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/payment"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/referral"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/wallet"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/jwtx"
	"github.com/K-i-Q/credit-chat-companion/model"
)

type C struct {
	Auth     *auth.Controller
	Chat     *chat.Controller
	Payment  *payment.Controller
	Wallet   *wallet.Controller
	Invite   *invite.Controller
	Referral *referral.Controller
	Admin    *admin.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/auth/register", c.Auth.Register)
	pub.POST("/auth/login", c.Auth.Login)

	// Gateway notifications carry no user token.
	pub.POST("/payments/webhook", c.Payment.Webhook)

	// Authenticated
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
	}))

	authed.POST("/chat", c.Chat.Chat)

	authed.POST("/payments/pix", c.Payment.CreatePix)
	authed.POST("/payments/pix/status", c.Payment.PixStatus)
	authed.POST("/donations", c.Payment.CreateDonation)
	authed.POST("/donations/status", c.Payment.DonationStatus)

	authed.GET("/wallet", c.Wallet.Summary)

	authed.POST("/invites/redeem", c.Invite.Redeem)
	authed.POST("/referral/code", c.Referral.Code)
	authed.POST("/referral/apply", c.Referral.Apply)

	// Admin
	adm := authed.Group("/admin", requireAdmin)
	adm.POST("/credits", c.Admin.Credits)
	adm.GET("/invites", c.Admin.ListInvites)
	adm.POST("/invites", c.Admin.CreateInvite)
	adm.POST("/invites/delete", c.Admin.DeleteInvite)
	adm.GET("/users", c.Admin.ListUsers)
	adm.POST("/role", c.Admin.SetRole)
	adm.POST("/users/delete", c.Admin.DeleteUser)
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, err := jwtx.RoleFromContext(c)
		if err != nil || role != model.RoleAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		return next(c)
	}
}
