// README: Payment gateway adapter. The core only ever sees the Gateway
// interface; the HTTP implementation targets a Razorpay-style REST API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"raahi/internal/types"
)

type PaymentInfo struct {
	ID     string
	Amount types.Money
	Status string
}

type Gateway interface {
	CreateOrder(ctx context.Context, amount types.Money, receipt string) (orderID string, err error)
	FetchPayment(ctx context.Context, paymentID string) (PaymentInfo, error)
}

type HTTPGateway struct {
	baseURL string
	keyID   string
	secret  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, keyID, secret string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		keyID:   keyID,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type createOrderReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResp struct {
	ID string `json:"id"`
}

func (g *HTTPGateway) CreateOrder(ctx context.Context, amount types.Money, receipt string) (string, error) {
	body, err := json.Marshal(createOrderReq{
		Amount:   amount.Amount,
		Currency: amount.Currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway create order: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("gateway create order: status %d", resp.StatusCode)
	}
	var out createOrderResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

type fetchPaymentResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (g *HTTPGateway) FetchPayment(ctx context.Context, paymentID string) (PaymentInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return PaymentInfo{}, err
	}
	req.SetBasicAuth(g.keyID, g.secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return PaymentInfo{}, fmt.Errorf("gateway fetch payment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return PaymentInfo{}, fmt.Errorf("gateway fetch payment: status %d", resp.StatusCode)
	}
	var out fetchPaymentResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PaymentInfo{}, err
	}
	return PaymentInfo{
		ID:     out.ID,
		Amount: types.Money{Amount: out.Amount, Currency: out.Currency},
		Status: out.Status,
	}, nil
}
