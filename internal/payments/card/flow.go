package card

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentmethod"

	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

// State names the card flow's positions. Succeeded and Failed are terminal;
// RequiresAction is the 3-D Secure suspension point.
type State string

const (
	StateIdle           State = "idle"
	StateCollecting     State = "collecting-card-input"
	StateSubmitting     State = "submitting"
	StateRequiresAction State = "requires-action"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// Details is the raw card input bound to billing details at tokenization.
type Details struct {
	Number   string `json:"number" validate:"required"`
	ExpMonth int64  `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear  int64  `json:"exp_year" validate:"required"`
	CVC      string `json:"cvc" validate:"required"`
}

// Billing binds the cardholder identity and address to the token.
type Billing struct {
	Name    string
	Email   string
	Phone   string
	Line1   string
	City    string
	State   string
	Zip     string
	Country string
}

// Result is the flow's resolution for one submission.
type Result struct {
	State         State
	Message       string
	TransactionID string
	MethodLabel   string
	CompletedAt   time.Time
}

// Tokenizer exchanges raw card data for a provider payment-method token.
type Tokenizer interface {
	Tokenize(ctx context.Context, details Details, billing Billing) (string, error)
}

// Confirmer finalizes an intent with a payment-method token.
type Confirmer interface {
	Confirm(ctx context.Context, intentID string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

// ChallengeResolver awaits an out-of-band authentication challenge. The call
// blocks until the provider resolves the challenge or the customer abandons
// it; the flow only reaches a terminal state afterwards.
type ChallengeResolver interface {
	Await(ctx context.Context, intent *stripe.PaymentIntent) (*stripe.PaymentIntent, error)
}

// Recorder is the optional post-success server-side confirmation used for
// record keeping. Its failure never reverts a payment that the provider
// already completed.
type Recorder interface {
	RecordConfirmation(ctx context.Context, intentID string) error
}

type stripeTokenizer struct{}

// NewStripeTokenizer returns the production tokenizer.
func NewStripeTokenizer() Tokenizer {
	return stripeTokenizer{}
}

func (stripeTokenizer) Tokenize(ctx context.Context, details Details, billing Billing) (string, error) {
	params := &stripe.PaymentMethodParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(details.Number),
			ExpMonth: stripe.Int64(details.ExpMonth),
			ExpYear:  stripe.Int64(details.ExpYear),
			CVC:      stripe.String(details.CVC),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name:  stripe.String(billing.Name),
			Email: stripe.String(billing.Email),
			Phone: stripe.String(billing.Phone),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(billing.Line1),
				City:       stripe.String(billing.City),
				State:      stripe.String(billing.State),
				PostalCode: stripe.String(billing.Zip),
				Country:    stripe.String(billing.Country),
			},
		},
	}
	pm, err := paymentmethod.New(params)
	if err != nil {
		return "", err
	}
	return pm.ID, nil
}

// Flow drives one card payment from submission to a terminal state.
type Flow struct {
	tokenizer Tokenizer
	confirmer Confirmer
	resolver  ChallengeResolver
	recorder  Recorder
	logg      *logger.Logger
}

// FlowParams wires the flow's collaborators.
type FlowParams struct {
	Tokenizer Tokenizer
	Confirmer Confirmer
	Resolver  ChallengeResolver
	Recorder  Recorder
	Logger    *logger.Logger
}

// NewFlow builds the card confirmation flow.
func NewFlow(params FlowParams) (*Flow, error) {
	if params.Tokenizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tokenizer required")
	}
	if params.Confirmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "confirmer required")
	}
	return &Flow{
		tokenizer: params.Tokenizer,
		confirmer: params.Confirmer,
		resolver:  params.Resolver,
		recorder:  params.Recorder,
		logg:      params.Logger,
	}, nil
}

// Submit runs collecting → submitting → terminal. Intent creation must have
// succeeded before this is called; confirmation is never attempted first.
func (f *Flow) Submit(ctx context.Context, intentID string, details Details, billing Billing) Result {
	if strings.TrimSpace(intentID) == "" {
		return Result{State: StateFailed, Message: "payment was not set up correctly, please retry"}
	}

	token, err := f.tokenizer.Tokenize(ctx, details, billing)
	if err != nil {
		// Malformed card data short-circuits before confirmation.
		return Result{State: StateFailed, Message: declineMessage(err)}
	}

	intent, err := f.confirmer.Confirm(ctx, intentID, &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(token),
	})
	if err != nil {
		return Result{State: StateFailed, Message: declineMessage(err)}
	}

	if intent.Status == stripe.PaymentIntentStatusRequiresAction {
		if f.resolver == nil {
			return Result{State: StateRequiresAction, Message: "additional authentication required"}
		}
		// Suspension point: blocks until the challenge resolves or the
		// customer abandons it.
		intent, err = f.resolver.Await(ctx, intent)
		if err != nil {
			return Result{State: StateFailed, Message: "authentication was not completed, please try again"}
		}
	}

	// Terminal success requires the literal succeeded status; anything else
	// (requires_payment_method after a decline included) is a failure.
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return Result{State: StateFailed, Message: statusMessage(intent)}
	}

	if f.recorder != nil {
		if recordErr := f.recorder.RecordConfirmation(ctx, intent.ID); recordErr != nil && f.logg != nil {
			f.logg.Warn(f.logg.WithField(ctx, "intent_id", intent.ID),
				"post-success confirmation record failed; payment outcome unchanged")
		}
	}

	return Result{
		State:         StateSucceeded,
		TransactionID: intent.ID,
		MethodLabel:   methodLabel(intent),
		CompletedAt:   time.Now().UTC(),
	}
}

// Outcome converts a flow result into the normalized payment outcome.
func (r Result) Outcome(order payments.OrderData) *payments.Outcome {
	if r.State != StateSucceeded {
		message := r.Message
		if message == "" {
			message = "payment could not be completed"
		}
		return &payments.Outcome{
			Type:     payments.OutcomeError,
			Provider: payments.ProviderStripe,
			Message:  message,
		}
	}

	order.MethodLabel = r.MethodLabel
	order.TransactionID = r.TransactionID
	order.CompletedAt = r.CompletedAt
	return &payments.Outcome{
		Type:     payments.OutcomeSuccess,
		Provider: payments.ProviderStripe,
		Payment: &payments.PaymentRecord{
			Provider:      payments.ProviderStripe,
			TransactionID: r.TransactionID,
			Status:        string(stripe.PaymentIntentStatusSucceeded),
			MethodLabel:   r.MethodLabel,
			CompletedAt:   r.CompletedAt,
		},
		Order: &order,
	}
}

// declineMessage maps provider error codes onto human-readable suggestions
// instead of raw codes.
func declineMessage(err error) string {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return "payment could not be processed, please try again"
	}
	switch stripeErr.Code {
	case stripe.ErrorCodeCardDeclined:
		return "Your card was declined. Check that you have sufficient funds or try a different card."
	case stripe.ErrorCodeExpiredCard:
		return "Your card has expired. Please use a different card."
	case stripe.ErrorCodeIncorrectCVC:
		return "The security code is incorrect. Please re-enter it and try again."
	case stripe.ErrorCodeIncorrectNumber, stripe.ErrorCodeInvalidNumber:
		return "The card number looks invalid. Please check it and try again."
	case stripe.ErrorCodeProcessingError:
		return "Something went wrong while processing your card. Please try again in a moment."
	}
	if stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return "payment could not be processed, please try again"
}

func statusMessage(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	if intent.Status == stripe.PaymentIntentStatusRequiresPaymentMethod {
		return "Your card was declined. Check that you have sufficient funds or try a different card."
	}
	return "payment did not complete, please try again"
}

// methodLabel builds a masked descriptor such as "Visa •••• 4242".
func methodLabel(intent *stripe.PaymentIntent) string {
	if intent.LatestCharge != nil &&
		intent.LatestCharge.PaymentMethodDetails != nil &&
		intent.LatestCharge.PaymentMethodDetails.Card != nil {
		card := intent.LatestCharge.PaymentMethodDetails.Card
		return brandName(string(card.Brand)) + " •••• " + card.Last4
	}
	return "Card"
}

func brandName(brand string) string {
	switch brand {
	case "visa":
		return "Visa"
	case "mastercard":
		return "Mastercard"
	case "amex":
		return "American Express"
	case "discover":
		return "Discover"
	case "":
		return "Card"
	}
	return strings.ToUpper(brand[:1]) + brand[1:]
}
