package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/avalogan/silkstrands-backend/internal/checkout"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	"github.com/avalogan/silkstrands-backend/internal/payments/card"
	"github.com/avalogan/silkstrands-backend/internal/payments/paypal"
)

type stubCheckoutService struct {
	cardCalls     int
	startCalls    int
	completeCalls int
	cancelCalls   int

	outcome *payments.Outcome
	order   *paypal.Order
	intent  *payments.IntentRequest
	err     error
}

func (s *stubCheckoutService) ProcessCard(ctx context.Context, cartID uuid.UUID, form *checkout.Form, details card.Details) (*payments.Outcome, error) {
	s.cardCalls++
	return s.outcome, s.err
}

func (s *stubCheckoutService) StartPayPal(ctx context.Context, cartID uuid.UUID, form *checkout.Form) (*paypal.Order, *payments.IntentRequest, error) {
	s.startCalls++
	return s.order, s.intent, s.err
}

func (s *stubCheckoutService) CompletePayPal(ctx context.Context, cartID uuid.UUID, form *checkout.Form, paypalOrderID string) (*payments.Outcome, error) {
	s.completeCalls++
	return s.outcome, s.err
}

func (s *stubCheckoutService) CancelPayPal(ctx context.Context, paypalOrderID string) {
	s.cancelCalls++
}

func checkoutForm(method string) map[string]any {
	return map[string]any{
		"email":          "jordan@example.com",
		"first_name":     "Jordan",
		"last_name":      "Blake",
		"address":        "12 Main St",
		"city":           "Austin",
		"state":          "TX",
		"zip":            "78701",
		"country":        "US",
		"payment_method": method,
	}
}

func checkoutBody(t *testing.T, method string, withCard bool) []byte {
	t.Helper()
	payload := map[string]any{
		"cart_id": uuid.NewString(),
		"form":    checkoutForm(method),
	}
	if withCard {
		payload["card"] = map[string]any{
			"number":    "4242424242424242",
			"exp_month": 12,
			"exp_year":  2030,
			"cvc":       "123",
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestCheckoutCardSuccess(t *testing.T) {
	svc := &stubCheckoutService{
		outcome: &payments.Outcome{
			Type:     payments.OutcomeSuccess,
			Provider: payments.ProviderStripe,
			Payment:  &payments.PaymentRecord{TransactionID: "pi_123"},
		},
	}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "card", true)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.cardCalls != 1 {
		t.Fatalf("expected one card call, got %d", svc.cardCalls)
	}
	var envelope struct {
		Data payments.Outcome `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Payment == nil || envelope.Data.Payment.TransactionID != "pi_123" {
		t.Fatalf("unexpected outcome payload: %+v", envelope.Data)
	}
}

func TestCheckoutCardRequiresDetails(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "card", false)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.cardCalls != 0 {
		t.Fatalf("service should not run without card details")
	}
	var envelope struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Details["card"] == "" {
		t.Fatalf("expected card field detail, got %+v", envelope.Error.Details)
	}
}

func TestCheckoutCardDeclinedMapsTo402(t *testing.T) {
	svc := &stubCheckoutService{
		outcome: &payments.Outcome{
			Type:     payments.OutcomeError,
			Provider: payments.ProviderStripe,
			Message:  "Your card was declined. Check that you have sufficient funds or try a different card.",
		},
	}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "card", true)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != svc.outcome.Message {
		t.Fatalf("expected decline message passed through, got %q", envelope.Error.Message)
	}
}

func TestCheckoutPayPalStart(t *testing.T) {
	svc := &stubCheckoutService{
		order:  &paypal.Order{ID: "PP-ORDER-1", Status: "CREATED"},
		intent: &payments.IntentRequest{OrderID: "SS-abc12345"},
	}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "paypal", false)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.startCalls != 1 {
		t.Fatalf("expected one start call, got %d", svc.startCalls)
	}
	var envelope struct {
		Data struct {
			Order   paypal.Order `json:"paypal_order"`
			OrderID string       `json:"order_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.ID != "PP-ORDER-1" || envelope.Data.OrderID != "SS-abc12345" {
		t.Fatalf("unexpected start payload: %+v", envelope.Data)
	}
}

func TestCheckoutPayPalCompleteCancelledOutcome(t *testing.T) {
	// A nil outcome means the buyer abandoned PayPal approval; the response
	// is a plain 200, not an error banner.
	svc := &stubCheckoutService{outcome: nil}
	handler := CheckoutPayPalComplete(svc, nil)

	payload := map[string]any{
		"cart_id":         uuid.NewString(),
		"form":            checkoutForm("paypal"),
		"paypal_order_id": "PP-ORDER-1",
	}
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/paypal/complete", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["status"] != "cancelled" {
		t.Fatalf("expected cancelled status, got %+v", envelope.Data)
	}
}

func TestCheckoutPayPalCancel(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := CheckoutPayPalCancel(svc, nil)

	raw := []byte(`{"paypal_order_id":"PP-ORDER-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/paypal/cancel", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cancelCalls != 1 {
		t.Fatalf("expected cancel recorded, got %d calls", svc.cancelCalls)
	}
}

func TestCheckoutUnknownMethod(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "wire", false)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.cardCalls+svc.startCalls != 0 {
		t.Fatalf("service should not run for unknown methods")
	}
}
