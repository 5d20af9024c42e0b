// Package main credit chat API.
//
// @title           Credit Chat Companion API
// @version         1.0
// @description     Credits-based chat service (PIX purchases, invites, referrals).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/K-i-Q/credit-chat-companion/app/echoServer"
	adminctrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/admin"
	authctrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/auth"
	chatctrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/chat"
	invitectrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/invite"
	paymentctrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/payment"
	referralctrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/referral"
	walletctrl "github.com/K-i-Q/credit-chat-companion/app/echoServer/controller/wallet"
	"github.com/K-i-Q/credit-chat-companion/app/echoServer/validation"
	"github.com/K-i-Q/credit-chat-companion/config"
	inviterepo "github.com/K-i-Q/credit-chat-companion/repository/invite"
	mercadopagorepo "github.com/K-i-Q/credit-chat-companion/repository/mercadopago"
	paymentrepo "github.com/K-i-Q/credit-chat-companion/repository/payment"
	referralrepo "github.com/K-i-Q/credit-chat-companion/repository/referral"
	userrepo "github.com/K-i-Q/credit-chat-companion/repository/user"
	walletrepo "github.com/K-i-Q/credit-chat-companion/repository/wallet"
	authsvc "github.com/K-i-Q/credit-chat-companion/service/auth"
	chatsvc "github.com/K-i-Q/credit-chat-companion/service/chat"
	invitesvc "github.com/K-i-Q/credit-chat-companion/service/invite"
	paymentsvc "github.com/K-i-Q/credit-chat-companion/service/payment"
	referralsvc "github.com/K-i-Q/credit-chat-companion/service/referral"
	walletsvc "github.com/K-i-Q/credit-chat-companion/service/wallet"
	"github.com/K-i-Q/credit-chat-companion/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	wr := walletrepo.New(db)
	pr := paymentrepo.New(db)
	ir := inviterepo.New(db)
	rr := referralrepo.New(db)

	// The gateway client stays nil without credentials; PIX endpoints
	// then answer "not configured" instead of crashing at boot.
	var mp mercadopagorepo.Client
	if cfg.MercadoPagoAccessToken != "" {
		mp = mercadopagorepo.NewHTTP(cfg.MercadoPagoAccessToken)
	} else {
		log.Warn("MERCADOPAGO_ACCESS_TOKEN not set, PIX endpoints disabled")
	}

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	ws := walletsvc.New(wr)
	ps := paymentsvc.New(pr, wr, rr, mp, cfg)
	is := invitesvc.New(ir, wr)
	rs := referralsvc.New(rr)
	cs := chatsvc.New(ws, cfg)

	// controllers
	authC := &authctrl.Controller{Svc: as, Log: log}
	chatC := &chatctrl.Controller{Svc: cs, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}
	walletC := &walletctrl.Controller{Svc: ws, Log: log}
	inviteC := &invitectrl.Controller{Svc: is, Log: log}
	referralC := &referralctrl.Controller{Svc: rs, Log: log}
	adminC := &adminctrl.Controller{Wallet: ws, Invites: is, Users: as, Log: log}

	// echo
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e, cfg.CORSOrigin)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:     authC,
		Chat:     chatC,
		Payment:  paymentC,
		Wallet:   walletC,
		Invite:   inviteC,
		Referral: referralC,
		Admin:    adminC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)
	e.Logger.Fatal(e.Start(":" + port))
}
