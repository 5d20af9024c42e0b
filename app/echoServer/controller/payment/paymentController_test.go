package payment

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/K-i-Q/credit-chat-companion/model"
	paymentsvc "github.com/K-i-Q/credit-chat-companion/service/payment"
)

type fakeSvc struct {
	result *paymentsvc.Result
	err    error
	gotID  string
}

var _ paymentsvc.Service = (*fakeSvc)(nil)

func (f *fakeSvc) CreatePurchase(ctx context.Context, userID, email string, credits int64) (*model.ChargeCreated, error) {
	return nil, f.err
}

func (f *fakeSvc) CreateDonation(ctx context.Context, userID, email string, amount float64) (*model.ChargeCreated, error) {
	return nil, f.err
}

func (f *fakeSvc) PurchaseStatus(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error) {
	return nil, f.err
}

func (f *fakeSvc) DonationStatus(ctx context.Context, userID, paymentID string) (*model.ChargeStatus, error) {
	return nil, f.err
}

func (f *fakeSvc) HandleNotification(ctx context.Context, paymentID string) (*paymentsvc.Result, error) {
	f.gotID = paymentID
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &paymentsvc.Result{}, nil
}

func postWebhook(t *testing.T, svc paymentsvc.Service, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	h := &Controller{Svc: svc, Log: slog.New(slog.NewTextHandler(os.Stderr, nil))}
	require.NoError(t, h.Webhook(e.NewContext(req, rec)))
	return rec
}

func TestWebhookAcknowledgesEmptyPing(t *testing.T) {
	svc := &fakeSvc{}
	rec := postWebhook(t, svc, "/v1/payments/webhook", `{"type":"test"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Empty(t, svc.gotID)
}

func TestWebhookExtractsIDFromBody(t *testing.T) {
	svc := &fakeSvc{}
	rec := postWebhook(t, svc, "/v1/payments/webhook", `{"action":"payment.updated","data":{"id":12345}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "12345", svc.gotID)
}

func TestWebhookExtractsIDFromQuery(t *testing.T) {
	svc := &fakeSvc{}
	rec := postWebhook(t, svc, "/v1/payments/webhook?type=payment&data.id=777", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "777", svc.gotID)
}

func TestWebhookReportsNewBalance(t *testing.T) {
	bal := int64(25)
	svc := &fakeSvc{result: &paymentsvc.Result{NewBalance: &bal}}
	rec := postWebhook(t, svc, "/v1/payments/webhook", `{"data":{"id":1}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true,"new_balance":25}`, rec.Body.String())
}

func TestWebhookErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"amount mismatch", paymentsvc.ErrAmountMismatch, http.StatusBadRequest},
		{"not configured", paymentsvc.ErrNotConfigured, http.StatusInternalServerError},
		{"upstream", paymentsvc.ErrUpstream, http.StatusBadGateway},
		{"storage", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postWebhook(t, &fakeSvc{err: tc.err}, "/v1/payments/webhook", `{"data":{"id":1}}`)
			require.Equal(t, tc.code, rec.Code)
		})
	}
}
