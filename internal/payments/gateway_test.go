package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/types"
)

type stubIntentAPI struct {
	created *stripe.PaymentIntentParams
	calls   int
	intent  *stripe.PaymentIntent
	err     error
}

func (s *stubIntentAPI) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.calls++
	s.created = params
	return s.intent, s.err
}

func (s *stubIntentAPI) Get(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.calls++
	return s.intent, s.err
}

func (s *stubIntentAPI) Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	s.calls++
	return s.intent, s.err
}

func validRequest() IntentRequest {
	return IntentRequest{
		OrderID:  "SS-1001",
		Amount:   decimal.RequireFromString("45.99"),
		Currency: "usd",
		Customer: Customer{Email: "ava@example.com", Name: "Ava Logan"},
		Items: []LineItem{
			{ID: "silk-22|jet-black|22|", Name: "Silk 22\"", Price: decimal.RequireFromString("45.99"), Quantity: 1},
		},
		Shipping: Shipping{
			Name:    "Ava Logan",
			Address: types.Address{Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"},
		},
	}
}

func TestCreateIntentConvertsAmountOnce(t *testing.T) {
	api := &stubIntentAPI{intent: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"}}
	gateway, err := NewStripeGateway(api, nil)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	result, err := gateway.CreateIntent(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if result.IntentID != "pi_1" || result.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := *api.created.Amount; got != 4599 {
		t.Fatalf("expected 4599 minor units, got %d", got)
	}
	if api.created.Metadata["order_id"] != "SS-1001" {
		t.Fatalf("missing order metadata: %v", api.created.Metadata)
	}
	if api.created.Metadata["shipping_address"] == "" {
		t.Fatalf("expected flattened shipping address in metadata")
	}
}

func TestCreateIntentPreconditionsSkipNetwork(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IntentRequest)
	}{
		{"zero amount", func(r *IntentRequest) { r.Amount = decimal.Zero }},
		{"bad email", func(r *IntentRequest) { r.Customer.Email = "not-an-email" }},
		{"no items", func(r *IntentRequest) { r.Items = nil }},
		{"missing address", func(r *IntentRequest) { r.Shipping.Address = types.Address{State: "TX"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubIntentAPI{intent: &stripe.PaymentIntent{ID: "pi_1"}}
			gateway, _ := NewStripeGateway(api, nil)
			req := validRequest()
			tt.mutate(&req)

			_, err := gateway.CreateIntent(context.Background(), req)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
			if api.calls != 0 {
				t.Fatalf("precondition failure must not reach the provider, saw %d calls", api.calls)
			}
		})
	}
}

func TestCreateIntentEnforcesMinimumCharge(t *testing.T) {
	api := &stubIntentAPI{}
	gateway, _ := NewStripeGateway(api, nil)
	req := validRequest()
	req.Amount = decimal.RequireFromString("0.49")

	_, err := gateway.CreateIntent(context.Background(), req)
	if err == nil {
		t.Fatalf("expected minimum charge rejection")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "Invalid amount" {
		t.Fatalf("expected Invalid amount message, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("sub-minimum amount must not reach the provider")
	}
}

func TestCreateIntentSurfacesProviderMessage(t *testing.T) {
	api := &stubIntentAPI{err: &stripe.Error{Msg: "Your account cannot currently make live charges."}}
	gateway, _ := NewStripeGateway(api, nil)

	_, err := gateway.CreateIntent(context.Background(), validRequest())
	if err == nil {
		t.Fatalf("expected provider error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "Your account cannot currently make live charges." {
		t.Fatalf("expected provider message to surface, got %v", err)
	}
}

func TestCreateIntentSurfacesWrappedProviderMessage(t *testing.T) {
	api := &stubIntentAPI{err: fmt.Errorf("create intent: %w", &stripe.Error{Msg: "Your card's issuer is unavailable."})}
	gateway, _ := NewStripeGateway(api, nil)

	_, err := gateway.CreateIntent(context.Background(), validRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "Your card's issuer is unavailable." {
		t.Fatalf("expected wrapped provider message to surface, got %v", err)
	}
}

func TestCreateIntentGenericFallbackMessage(t *testing.T) {
	api := &stubIntentAPI{err: errors.New("dial tcp: i/o timeout")}
	gateway, _ := NewStripeGateway(api, nil)

	_, err := gateway.CreateIntent(context.Background(), validRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "failed to create payment intent" {
		t.Fatalf("expected generic fallback, got %v", err)
	}
}

func TestDemoGatewayIsDeterministicPerOrder(t *testing.T) {
	gateway := NewDemoGateway(0, nil)

	first, err := gateway.CreateIntent(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("demo create: %v", err)
	}
	second, err := gateway.CreateIntent(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("demo create: %v", err)
	}
	if first.IntentID != second.IntentID || first.ClientSecret != second.ClientSecret {
		t.Fatalf("demo intents must be deterministic for a fixed order id")
	}

	status, err := gateway.GetIntent(context.Background(), first.IntentID)
	if err != nil {
		t.Fatalf("demo get: %v", err)
	}
	if status.AmountMinor != 4599 {
		t.Fatalf("expected 4599 minor units, got %d", status.AmountMinor)
	}
}

func TestDemoGatewayHonorsCancellation(t *testing.T) {
	gateway := NewDemoGateway(time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gateway.CreateIntent(ctx, validRequest()); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestDemoGatewayValidatesLikeProduction(t *testing.T) {
	gateway := NewDemoGateway(0, nil)
	req := validRequest()
	req.Customer.Email = "bad"
	if _, err := gateway.CreateIntent(context.Background(), req); err == nil {
		t.Fatalf("demo gateway must apply the same preconditions")
	}
}
