package mercadopagorepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/K-i-Q/credit-chat-companion/util/httpx"
)

const defaultBaseURL = "https://api.mercadopago.com"

type httpClient struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

func NewHTTP(accessToken string) Client {
	return &httpClient{accessToken: accessToken, baseURL: defaultBaseURL, client: httpx.Client()}
}

// NewHTTPWithBase points the client at a non-default API host (tests).
func NewHTTPWithBase(accessToken, baseURL string) Client {
	return &httpClient{accessToken: accessToken, baseURL: baseURL, client: httpx.Client()}
}

type apiError struct {
	Message string `json:"message"`
	Error_  string `json:"error"`
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out any, headers map[string]string) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error_
		}
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("mercadopago %s %s: %s", method, path, msg)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *httpClient) CreatePayment(ctx context.Context, req CreatePaymentReq) (*Payment, error) {
	body := map[string]any{
		"transaction_amount": req.TransactionAmount,
		"description":        req.Description,
		"payment_method_id":  "pix",
		"payer":              map[string]any{"email": req.PayerEmail},
		"external_reference": req.ExternalReference,
		"metadata":           req.Metadata,
	}
	if req.NotificationURL != "" {
		body["notification_url"] = req.NotificationURL
	}

	var out Payment
	err := c.do(ctx, http.MethodPost, "/v1/payments", body, &out,
		map[string]string{"X-Idempotency-Key": req.ExternalReference})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Me(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisplayName mirrors the receiver-name fallback chain shown on PIX
// checkout: nickname, then full name, then email.
func (a *Account) DisplayName() string {
	if a.Nickname != "" {
		return a.Nickname
	}
	name := a.FirstName
	if a.LastName != "" {
		if name != "" {
			name += " "
		}
		name += a.LastName
	}
	if name != "" {
		return name
	}
	return a.Email
}
