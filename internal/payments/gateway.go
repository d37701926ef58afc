package payments

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/money"
	pkgstripe "github.com/avalogan/silkstrands-backend/pkg/stripe"
)

// MinimumChargeMinorUnits is the smallest amount Stripe accepts in cents.
const MinimumChargeMinorUnits = 50

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IntentGateway creates and inspects provider payment intents.
type IntentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error)
	GetIntent(ctx context.Context, intentID string) (*IntentStatus, error)
}

// StripeIntentAPI is the subset of Stripe intent operations the gateway and
// the card flow need; the wrapper keeps both testable.
type StripeIntentAPI interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

type stripeIntentWrapper struct{}

// NewStripeIntentAPI wraps the initialized Stripe client.
func NewStripeIntentAPI(api *pkgstripe.Client) StripeIntentAPI {
	if api == nil {
		return nil
	}
	return &stripeIntentWrapper{}
}

func (w *stripeIntentWrapper) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *stripeIntentWrapper) Get(ctx context.Context, id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params == nil {
		params = &stripe.PaymentIntentParams{}
	}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

func (w *stripeIntentWrapper) Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.Confirm(id, params)
}

type stripeGateway struct {
	api  StripeIntentAPI
	logg *logger.Logger
}

// NewStripeGateway builds the production intent gateway.
func NewStripeGateway(api StripeIntentAPI, logg *logger.Logger) (IntentGateway, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe intent api required")
	}
	return &stripeGateway{api: api, logg: logg}, nil
}

func (g *stripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	if err := validateIntentRequest(req); err != nil {
		return nil, err
	}

	// Single rounding point for the whole order; per-item cent sums never
	// reach the provider.
	cents := money.MinorUnits(req.Amount)
	if err := money.ValidateMinimum(cents, MinimumChargeMinorUnits); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid amount").
			WithDetails(map[string]any{"error": err.Error()})
	}

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(cents),
		Currency:     stripe.String(strings.ToLower(req.Currency)),
		ReceiptEmail: stripe.String(req.Customer.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Metadata = intentMetadata(req, cents)

	intent, err := g.api.Create(ctx, params)
	if err != nil {
		return nil, wrapProviderError(err, "failed to create payment intent")
	}

	if g.logg != nil {
		fields := g.logg.WithFields(ctx, map[string]any{
			"intent_id":    intent.ID,
			"amount_minor": cents,
		})
		g.logg.Info(fields, "payment_intent.created")
	}

	return &IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (g *stripeGateway) GetIntent(ctx context.Context, intentID string) (*IntentStatus, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	intent, err := g.api.Get(ctx, intentID, nil)
	if err != nil {
		return nil, wrapProviderError(err, "failed to look up payment intent")
	}
	return &IntentStatus{
		IntentID:    intent.ID,
		Status:      string(intent.Status),
		AmountMinor: intent.Amount,
		Currency:    string(intent.Currency),
	}, nil
}

// validateIntentRequest enforces the gateway preconditions. Violations must
// surface before any network traffic.
func validateIntentRequest(req IntentRequest) error {
	details := map[string]string{}
	if !money.Positive(req.Amount) {
		details["amount"] = "must be greater than zero"
	}
	if !emailPattern.MatchString(req.Customer.Email) {
		details["email"] = "must be a valid email"
	}
	if len(req.Items) == 0 {
		details["items"] = "at least one item is required"
	}
	if !req.Shipping.Address.Complete() {
		details["shipping"] = "address line and city are required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment intent request").WithDetails(details)
	}
	return nil
}

// intentMetadata builds the bookkeeping block visible on the provider
// dashboard.
func intentMetadata(req IntentRequest, cents int64) map[string]string {
	return map[string]string{
		"order_id":         req.OrderID,
		"customer_email":   req.Customer.Email,
		"customer_name":    req.Customer.Name,
		"item_count":       strconv.Itoa(len(req.Items)),
		"total":            req.Amount.StringFixed(2),
		"total_minor":      strconv.FormatInt(cents, 10),
		"shipping_address": req.Shipping.Address.Flatten(),
	}
}

// wrapProviderError surfaces the provider's own message when one exists and
// falls back to a generic one otherwise. Network-level failures follow the
// same path as provider rejections; no retry happens at this layer.
func wrapProviderError(err error, fallback string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, stripeErr.Msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fallback)
}
