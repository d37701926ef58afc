package effects

import (
	"context"

	"github.com/google/uuid"

	"github.com/avalogan/silkstrands-backend/internal/notify"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/metrics"
)

// CartClearer empties a cart after its order completes.
type CartClearer interface {
	Clear(cartID uuid.UUID)
}

// Dispatcher runs the side effects of a completed order. Each step is
// isolated: a failed email is logged and counted but never unwinds the
// cart clear or the recorded payment, which already happened at the
// provider.
type Dispatcher struct {
	carts           CartClearer
	mailer          notify.Mailer
	invoices        *InvoiceStore
	businessAddress string
	metrics         *metrics.PaymentMetrics
	logg            *logger.Logger
}

// DispatcherParams wires the dispatcher's collaborators.
type DispatcherParams struct {
	Carts           CartClearer
	Mailer          notify.Mailer
	Invoices        *InvoiceStore
	BusinessAddress string
	Metrics         *metrics.PaymentMetrics
	Logger          *logger.Logger
}

// NewDispatcher builds the post-payment effects dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart clearer is required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer is required")
	}
	if params.Invoices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &Dispatcher{
		carts:           params.Carts,
		mailer:          params.Mailer,
		invoices:        params.Invoices,
		businessAddress: params.BusinessAddress,
		metrics:         params.Metrics,
		logg:            params.Logger,
	}, nil
}

// OrderCompleted records the invoice source, clears the cart, and sends
// the confirmation emails.
func (d *Dispatcher) OrderCompleted(ctx context.Context, cartID uuid.UUID, order payments.OrderData) {
	ctx = d.logg.WithOrderID(ctx, order.OrderID)

	// Record first so the invoice survives even if everything after fails.
	d.invoices.Record(order)

	d.carts.Clear(cartID)
	d.logg.Info(d.logg.WithCartID(ctx, cartID.String()), "cart cleared after completed order")

	d.send(ctx, notify.ConfirmationEmail(order), "customer confirmation")
	if d.businessAddress != "" {
		d.send(ctx, notify.BusinessEmail(order, d.businessAddress), "business notification")
	}
}

func (d *Dispatcher) send(ctx context.Context, msg notify.Message, kind string) {
	if err := d.mailer.Send(ctx, msg); err != nil {
		if d.metrics != nil {
			d.metrics.IncEmail("failed")
		}
		d.logg.Warn(d.logg.WithField(ctx, "email_kind", kind),
			"email delivery failed, order outcome unchanged")
		return
	}
	if d.metrics != nil {
		d.metrics.IncEmail("sent")
	}
}
