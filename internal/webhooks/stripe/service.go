package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/avalogan/silkstrands-backend/internal/notify"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/money"
	"github.com/avalogan/silkstrands-backend/pkg/types"
)

// ServiceParams wires the webhook service.
type ServiceParams struct {
	Mailer          notify.Mailer
	BusinessAddress string
	Logger          *logger.Logger
}

// Service reacts to Stripe payment-intent events. The synchronous checkout
// path already ran its effects by the time most events arrive; the webhook
// is the asynchronous backstop for payments confirmed out of band, so it
// only sends the business notification built from intent metadata.
type Service struct {
	mailer          notify.Mailer
	businessAddress string
	logg            *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		mailer:          params.Mailer,
		businessAddress: params.BusinessAddress,
		logg:            params.Logger,
	}, nil
}

// HandleEvent routes one verified event. Unhandled types are acknowledged
// so Stripe stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		return s.paymentSucceeded(ctx, &intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		s.paymentFailed(ctx, &intent)
		return nil
	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)),
			"unhandled stripe event acknowledged")
		return nil
	}
}

func (s *Service) paymentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	ctx = s.logg.WithProvider(ctx, string(payments.ProviderStripe))
	order := orderFromMetadata(intent)
	ctx = s.logg.WithOrderID(ctx, order.OrderID)
	s.logg.Info(ctx, fmt.Sprintf("payment intent %s succeeded", intent.ID))

	if s.businessAddress == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, notify.BusinessEmail(order, s.businessAddress)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send order notification")
	}
	return nil
}

func (s *Service) paymentFailed(ctx context.Context, intent *stripe.PaymentIntent) {
	ctx = s.logg.WithProvider(ctx, string(payments.ProviderStripe))
	if intent.LastPaymentError != nil {
		ctx = s.logg.WithField(ctx, "decline_code", string(intent.LastPaymentError.DeclineCode))
	}
	s.logg.Warn(ctx, fmt.Sprintf("payment intent %s failed", intent.ID))
}

// orderFromMetadata reconstructs the order summary the gateway attached to
// the intent at creation time.
func orderFromMetadata(intent *stripe.PaymentIntent) payments.OrderData {
	meta := intent.Metadata
	total := money.FromMinorUnits(intent.Amount)
	if raw, ok := meta["total"]; ok {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			total = parsed
		}
	}
	return payments.OrderData{
		OrderID: meta["order_id"],
		Customer: payments.Customer{
			Email: meta["customer_email"],
			Name:  meta["customer_name"],
		},
		Total:         total,
		MethodLabel:   "Card",
		TransactionID: intent.ID,
		Shipping: payments.Shipping{
			Name: meta["customer_name"],
			// The gateway stored the address flattened; keep it printable.
			Address: types.Address{Line1: meta["shipping_address"]},
		},
	}
}
