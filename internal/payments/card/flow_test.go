package card

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/avalogan/silkstrands-backend/internal/payments"
)

type stubTokenizer struct {
	token string
	err   error
	calls int
}

func (s *stubTokenizer) Tokenize(_ context.Context, _ Details, _ Billing) (string, error) {
	s.calls++
	return s.token, s.err
}

type stubConfirmer struct {
	intent *stripe.PaymentIntent
	err    error
	calls  int
	gotPM  string
}

func (s *stubConfirmer) Confirm(_ context.Context, _ string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	s.calls++
	if params != nil && params.PaymentMethod != nil {
		s.gotPM = *params.PaymentMethod
	}
	return s.intent, s.err
}

type stubResolver struct {
	intent *stripe.PaymentIntent
	err    error
	calls  int
}

func (s *stubResolver) Await(_ context.Context, _ *stripe.PaymentIntent) (*stripe.PaymentIntent, error) {
	s.calls++
	return s.intent, s.err
}

type stubRecorder struct {
	err   error
	calls int
}

func (s *stubRecorder) RecordConfirmation(_ context.Context, _ string) error {
	s.calls++
	return s.err
}

func testDetails() Details {
	return Details{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}

func succeededIntent(id string) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}
}

func newTestFlow(t *testing.T, params FlowParams) *Flow {
	t.Helper()
	flow, err := NewFlow(params)
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	return flow
}

func TestSubmitSucceeds(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: succeededIntent("pi_test_1")}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{Name: "Ada"})
	if result.State != StateSucceeded {
		t.Fatalf("state = %s, want %s (%s)", result.State, StateSucceeded, result.Message)
	}
	if result.TransactionID != "pi_test_1" {
		t.Fatalf("transaction id = %q", result.TransactionID)
	}
	if confirmer.gotPM != "pm_test_1" {
		t.Fatalf("confirm used payment method %q, want the tokenized one", confirmer.gotPM)
	}
	if result.CompletedAt.IsZero() {
		t.Fatal("expected a completion timestamp")
	}
}

func TestSubmitRequiresIntent(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: succeededIntent("pi_test_1")}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

	result := flow.Submit(context.Background(), "  ", testDetails(), Billing{})
	if result.State != StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if tokenizer.calls != 0 || confirmer.calls != 0 {
		t.Fatalf("no provider call expected without an intent, got tokenize=%d confirm=%d",
			tokenizer.calls, confirmer.calls)
	}
}

func TestTokenizeFailureShortCircuits(t *testing.T) {
	tokenizer := &stubTokenizer{err: &stripe.Error{Code: stripe.ErrorCodeInvalidNumber}}
	confirmer := &stubConfirmer{intent: succeededIntent("pi_test_1")}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if confirmer.calls != 0 {
		t.Fatalf("confirm called %d times after tokenization failed", confirmer.calls)
	}
}

func TestDeclineMapsToSuggestion(t *testing.T) {
	cases := []struct {
		name string
		code stripe.ErrorCode
		want string
	}{
		{"declined", stripe.ErrorCodeCardDeclined, "Your card was declined. Check that you have sufficient funds or try a different card."},
		{"expired", stripe.ErrorCodeExpiredCard, "Your card has expired. Please use a different card."},
		{"cvc", stripe.ErrorCodeIncorrectCVC, "The security code is incorrect. Please re-enter it and try again."},
		{"processing", stripe.ErrorCodeProcessingError, "Something went wrong while processing your card. Please try again in a moment."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokenizer := &stubTokenizer{token: "pm_test_1"}
			confirmer := &stubConfirmer{err: &stripe.Error{Code: tc.code}}
			flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

			result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
			if result.State != StateFailed {
				t.Fatalf("state = %s, want failed", result.State)
			}
			if result.Message != tc.want {
				t.Fatalf("message = %q, want %q", result.Message, tc.want)
			}
		})
	}
}

func TestWrappedDeclineStillMapsToSuggestion(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{err: fmt.Errorf("confirm intent: %w", &stripe.Error{Code: stripe.ErrorCodeCardDeclined})}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if result.Message != "Your card was declined. Check that you have sufficient funds or try a different card." {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestRequiresActionWithoutResolverSuspends(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: &stripe.PaymentIntent{
		ID:     "pi_test_1",
		Status: stripe.PaymentIntentStatusRequiresAction,
	}}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateRequiresAction {
		t.Fatalf("state = %s, want %s", result.State, StateRequiresAction)
	}
}

func TestRequiresActionResolvedToSuccess(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: &stripe.PaymentIntent{
		ID:     "pi_test_1",
		Status: stripe.PaymentIntentStatusRequiresAction,
	}}
	resolver := &stubResolver{intent: succeededIntent("pi_test_1")}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer, Resolver: resolver})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateSucceeded {
		t.Fatalf("state = %s, want succeeded (%s)", result.State, result.Message)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls)
	}
}

func TestAbandonedChallengeFails(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: &stripe.PaymentIntent{
		ID:     "pi_test_1",
		Status: stripe.PaymentIntentStatusRequiresAction,
	}}
	resolver := &stubResolver{err: errors.New("customer closed challenge")}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer, Resolver: resolver})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if result.Message != "authentication was not completed, please try again" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestNonSucceededStatusFails(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: &stripe.PaymentIntent{
		ID:     "pi_test_1",
		Status: stripe.PaymentIntentStatusRequiresPaymentMethod,
	}}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if result.TransactionID != "" {
		t.Fatalf("failed result must not carry a transaction id, got %q", result.TransactionID)
	}
}

func TestRecorderFailureKeepsSuccess(t *testing.T) {
	tokenizer := &stubTokenizer{token: "pm_test_1"}
	confirmer := &stubConfirmer{intent: succeededIntent("pi_test_1")}
	recorder := &stubRecorder{err: errors.New("record store down")}
	flow := newTestFlow(t, FlowParams{Tokenizer: tokenizer, Confirmer: confirmer, Recorder: recorder})

	result := flow.Submit(context.Background(), "pi_test_1", testDetails(), Billing{})
	if result.State != StateSucceeded {
		t.Fatalf("state = %s, want succeeded despite recorder failure", result.State)
	}
	if recorder.calls != 1 {
		t.Fatalf("recorder calls = %d, want 1", recorder.calls)
	}
}

func TestOutcomeConversion(t *testing.T) {
	success := Result{
		State:         StateSucceeded,
		TransactionID: "pi_test_1",
		MethodLabel:   "Visa •••• 4242",
	}
	outcome := success.Outcome(payments.OrderData{OrderID: "order-1"})
	if !outcome.Succeeded() {
		t.Fatal("expected success outcome")
	}
	if outcome.Provider != payments.ProviderStripe {
		t.Fatalf("provider = %s", outcome.Provider)
	}
	if outcome.Order == nil || outcome.Order.TransactionID != "pi_test_1" {
		t.Fatal("order snapshot must carry the transaction id")
	}

	failure := Result{State: StateFailed, Message: "declined"}
	outcome = failure.Outcome(payments.OrderData{OrderID: "order-1"})
	if outcome.Succeeded() {
		t.Fatal("expected error outcome")
	}
	if outcome.Payment != nil || outcome.Order != nil {
		t.Fatal("error outcome must not carry payment or order data")
	}
}
