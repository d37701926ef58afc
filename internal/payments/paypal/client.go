package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avalogan/silkstrands-backend/internal/payments"
	"github.com/avalogan/silkstrands-backend/pkg/config"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/money"
)

// itemNameLimit is PayPal's maximum item name length; longer names are
// rejected by the orders API, so we truncate before sending.
const itemNameLimit = 127

// Order is the created checkout order awaiting buyer approval.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CaptureResult is the outcome of capturing an approved order.
type CaptureResult struct {
	OrderID     string
	CaptureID   string
	Status      string
	PayerEmail  string
	PayerName   string
	CompletedAt time.Time
}

// Completed reports whether the capture settled the payment.
func (r *CaptureResult) Completed() bool {
	return r != nil && r.Status == "COMPLETED"
}

// API is the subset of PayPal's orders v2 surface the flow needs.
type API interface {
	CreateOrder(ctx context.Context, req payments.IntentRequest) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
}

// Client talks to PayPal's REST API directly; there is no official Go SDK
// worth carrying for two endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	currency   string
	logg       *logger.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient builds a PayPal orders client from config.
func NewClient(cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal credentials are not configured")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		currency:   strings.ToUpper(cfg.Currency),
		logg:       logg,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns a cached OAuth token, refreshing via the
// client-credentials grant when it is missing or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to build paypal token request")
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paypal token request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paypal token request returned %d", resp.StatusCode))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode paypal token response")
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

type orderAmount struct {
	CurrencyCode string          `json:"currency_code"`
	Value        string          `json:"value"`
	Breakdown    *orderBreakdown `json:"breakdown,omitempty"`
}

type orderBreakdown struct {
	ItemTotal orderAmount `json:"item_total"`
}

type orderItem struct {
	Name       string      `json:"name"`
	UnitAmount orderAmount `json:"unit_amount"`
	Quantity   string      `json:"quantity"`
}

type purchaseUnit struct {
	ReferenceID string      `json:"reference_id,omitempty"`
	Amount      orderAmount `json:"amount"`
	Items       []orderItem `json:"items,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

// CreateOrder creates an orders-v2 order for the request total. The item
// breakdown is recomputed from the same total so PayPal's arithmetic check
// never rejects the unit.
func (c *Client) CreateOrder(ctx context.Context, req payments.IntentRequest) (*Order, error) {
	currency := c.currency
	if req.Currency != "" {
		currency = strings.ToUpper(req.Currency)
	}

	items := make([]orderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orderItem{
			Name: truncateName(item.Name),
			UnitAmount: orderAmount{
				CurrencyCode: currency,
				Value:        money.FixedMajor(item.Price),
			},
			Quantity: strconv.Itoa(item.Quantity),
		})
	}

	total := orderAmount{CurrencyCode: currency, Value: money.FixedMajor(req.Amount)}
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: req.OrderID,
			Amount: orderAmount{
				CurrencyCode: currency,
				Value:        total.Value,
				Breakdown:    &orderBreakdown{ItemTotal: total},
			},
			Items: items,
		}},
	}

	var order Order
	if err := c.post(ctx, "/v2/checkout/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		Email string `json:"email_address"`
		Name  struct {
			Given   string `json:"given_name"`
			Surname string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var capture captureResponse
	if err := c.post(ctx, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &capture); err != nil {
		return nil, err
	}

	result := &CaptureResult{
		OrderID:     capture.ID,
		Status:      capture.Status,
		PayerEmail:  capture.Payer.Email,
		PayerName:   strings.TrimSpace(capture.Payer.Name.Given + " " + capture.Payer.Name.Surname),
		CompletedAt: time.Now().UTC(),
	}
	for _, unit := range capture.PurchaseUnits {
		for _, cap := range unit.Payments.Captures {
			result.CaptureID = cap.ID
		}
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode paypal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to build paypal request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paypal request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logg.Error(c.logg.WithFields(ctx, map[string]any{
			"path":   path,
			"status": resp.StatusCode,
		}), "paypal api rejected request", pkgerrors.New(pkgerrors.CodeDependency, string(snippet)))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paypal api returned %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode paypal response")
	}
	return nil
}

func truncateName(name string) string {
	if len(name) <= itemNameLimit {
		return name
	}
	// Cut on a rune boundary so a multi-byte character is never split.
	runes := []rune(name)
	if len(runes) <= itemNameLimit {
		return name
	}
	return string(runes[:itemNameLimit])
}
