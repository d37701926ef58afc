package paypal

import (
	"context"
	"time"

	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

// State names the PayPal flow's positions. Captured, Cancelled and Error
// are terminal; Cancelled is not an error, the buyer just walked away from
// the approval page.
type State string

const (
	StateOrderCreated State = "order-created"
	StateApproved     State = "approved"
	StateCaptured     State = "captured"
	StateCancelled    State = "cancelled"
	StateError        State = "error"
)

// Result is the flow's resolution for one attempt.
type Result struct {
	State       State
	Message     string
	OrderID     string
	CaptureID   string
	PayerName   string
	CompletedAt time.Time
}

// Flow drives one PayPal payment: create order, await approval, capture.
type Flow struct {
	api  API
	logg *logger.Logger
}

// NewFlow builds the PayPal flow.
func NewFlow(api API, logg *logger.Logger) (*Flow, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal api is required")
	}
	return &Flow{api: api, logg: logg}, nil
}

// Start creates the order the buyer approves. The request total is the
// single source of truth; the client recomputes the breakdown from it.
func (f *Flow) Start(ctx context.Context, req payments.IntentRequest) (*Order, error) {
	order, err := f.api.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if f.logg != nil {
		f.logg.Info(f.logg.WithOrderID(f.logg.WithProvider(ctx, "paypal"), order.ID),
			"paypal order created")
	}
	return order, nil
}

// Complete captures an approved order and resolves the terminal state.
func (f *Flow) Complete(ctx context.Context, orderID string) Result {
	capture, err := f.api.CaptureOrder(ctx, orderID)
	if err != nil {
		if f.logg != nil {
			f.logg.Error(f.logg.WithOrderID(ctx, orderID), "paypal capture failed", err)
		}
		return Result{
			State:   StateError,
			OrderID: orderID,
			Message: "PayPal payment could not be completed. Please try again.",
		}
	}
	if !capture.Completed() {
		return Result{
			State:   StateError,
			OrderID: orderID,
			Message: "PayPal did not complete the payment. Please try again.",
		}
	}
	return Result{
		State:       StateCaptured,
		OrderID:     capture.OrderID,
		CaptureID:   capture.CaptureID,
		PayerName:   capture.PayerName,
		CompletedAt: capture.CompletedAt,
	}
}

// Cancel records buyer abandonment. No provider call is made; the unpaid
// order simply expires on PayPal's side.
func (f *Flow) Cancel(ctx context.Context, orderID string) Result {
	if f.logg != nil {
		f.logg.Info(f.logg.WithOrderID(ctx, orderID), "paypal checkout cancelled by buyer")
	}
	return Result{State: StateCancelled, OrderID: orderID}
}

// Outcome converts a flow result into the normalized payment outcome.
// Cancellation yields nil: the checkout returns to the form with no error
// banner.
func (r Result) Outcome(order payments.OrderData) *payments.Outcome {
	switch r.State {
	case StateCancelled:
		return nil
	case StateCaptured:
		transactionID := r.CaptureID
		if transactionID == "" {
			transactionID = r.OrderID
		}
		order.MethodLabel = "PayPal"
		order.TransactionID = transactionID
		order.CompletedAt = r.CompletedAt
		return &payments.Outcome{
			Type:     payments.OutcomeSuccess,
			Provider: payments.ProviderPayPal,
			Payment: &payments.PaymentRecord{
				Provider:      payments.ProviderPayPal,
				TransactionID: transactionID,
				Status:        "COMPLETED",
				MethodLabel:   "PayPal",
				CompletedAt:   r.CompletedAt,
			},
			Order: &order,
		}
	default:
		message := r.Message
		if message == "" {
			message = "PayPal payment could not be completed. Please try again."
		}
		return &payments.Outcome{
			Type:     payments.OutcomeError,
			Provider: payments.ProviderPayPal,
			Message:  message,
		}
	}
}
