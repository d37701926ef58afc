package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/avalogan/silkstrands-backend/internal/cart"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	"github.com/avalogan/silkstrands-backend/internal/payments/card"
	"github.com/avalogan/silkstrands-backend/internal/payments/paypal"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/metrics"
)

// CardFlow runs one card payment to a terminal state.
type CardFlow interface {
	Submit(ctx context.Context, intentID string, details card.Details, billing Billing) card.Result
}

// PayPalFlow runs one PayPal payment through create, capture or cancel.
type PayPalFlow interface {
	Start(ctx context.Context, req payments.IntentRequest) (*paypal.Order, error)
	Complete(ctx context.Context, orderID string) paypal.Result
	Cancel(ctx context.Context, orderID string) paypal.Result
}

// EffectsDispatcher runs the post-payment side effects for a completed
// order. It is called at most once per transaction.
type EffectsDispatcher interface {
	OrderCompleted(ctx context.Context, cartID uuid.UUID, order payments.OrderData)
}

// SessionStore persists processed-transaction flags so a finalized
// transaction stays finalized across restarts and instances.
// *redis.Client satisfies it.
type SessionStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CheckoutSessionKey(sessionID string) string
}

// Billing is re-exported so callers build card billing from the form.
type Billing = card.Billing

// Orchestrator validates the checkout form, selects exactly one payment
// rail, normalizes the flow result into an outcome, and triggers
// post-payment effects exactly once per transaction.
type Orchestrator struct {
	carts      *cart.Store
	gateway    payments.IntentGateway
	cardFlow   CardFlow
	paypalFlow PayPalFlow
	effects    EffectsDispatcher
	validate   *validator.Validate
	metrics    *metrics.PaymentMetrics
	currency   string
	sessions   SessionStore
	sessionTTL time.Duration
	logg       *logger.Logger

	mu        sync.Mutex
	processed map[string]struct{}
	pending   map[string]pendingApproval
}

// pendingApproval holds the intent request minted when a PayPal approval
// order was created. Capture charges this snapshot, not the live cart.
type pendingApproval struct {
	req     *payments.IntentRequest
	created time.Time
}

// Params wires the orchestrator's collaborators.
type Params struct {
	Carts      *cart.Store
	Gateway    payments.IntentGateway
	CardFlow   CardFlow
	PayPalFlow PayPalFlow
	Effects    EffectsDispatcher
	Metrics    *metrics.PaymentMetrics
	Currency   string
	Sessions   SessionStore
	SessionTTL time.Duration
	Logger     *logger.Logger
}

// New builds the checkout orchestrator.
func New(params Params) (*Orchestrator, error) {
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart store is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intent gateway is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if params.Currency == "" {
		params.Currency = "usd"
	}
	if params.SessionTTL <= 0 {
		params.SessionTTL = 24 * time.Hour
	}
	return &Orchestrator{
		carts:      params.Carts,
		gateway:    params.Gateway,
		cardFlow:   params.CardFlow,
		paypalFlow: params.PayPalFlow,
		effects:    params.Effects,
		validate:   NewValidator(),
		metrics:    params.Metrics,
		currency:   params.Currency,
		sessions:   params.Sessions,
		sessionTTL: params.SessionTTL,
		logg:       params.Logger,
		processed:  map[string]struct{}{},
		pending:    map[string]pendingApproval{},
	}, nil
}

// Prepare validates the form against the cart and returns the intent
// request both rails consume. Validation failure costs zero provider
// calls.
func (o *Orchestrator) Prepare(ctx context.Context, cartID uuid.UUID, form *Form) (*payments.IntentRequest, error) {
	if err := Validate(o.validate, form); err != nil {
		return nil, err
	}

	snapshot, err := o.carts.Get(cartID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]payments.LineItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, payments.LineItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Shade:    item.Shade,
			Length:   item.Length,
		})
	}

	return &payments.IntentRequest{
		OrderID:  newOrderID(),
		Amount:   snapshot.Total,
		Currency: o.currency,
		Customer: form.Customer(),
		Items:    items,
		Shipping: form.Shipping(),
	}, nil
}

// ProcessCard runs the card rail end to end: validate, create intent,
// confirm, finalize.
func (o *Orchestrator) ProcessCard(ctx context.Context, cartID uuid.UUID, form *Form, details card.Details) (*payments.Outcome, error) {
	if o.cardFlow == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "card payments are not configured")
	}
	form.Method = MethodCard

	req, err := o.Prepare(ctx, cartID, form)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	intent, err := o.gateway.CreateIntent(ctx, *req)
	if err != nil {
		return nil, err
	}

	billing := Billing{
		Name:    form.FullName(),
		Email:   form.Email,
		Phone:   form.Phone,
		Line1:   form.Address,
		City:    form.City,
		State:   form.State,
		Zip:     form.Zip,
		Country: form.Country,
	}
	result := o.cardFlow.Submit(ctx, intent.IntentID, details, billing)
	outcome := result.Outcome(o.orderData(req))
	o.finalize(ctx, cartID, outcome, time.Since(started))
	return outcome, nil
}

// StartPayPal validates the form and creates the approval order.
func (o *Orchestrator) StartPayPal(ctx context.Context, cartID uuid.UUID, form *Form) (*paypal.Order, *payments.IntentRequest, error) {
	if o.paypalFlow == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal payments are not configured")
	}
	form.Method = MethodPayPal

	req, err := o.Prepare(ctx, cartID, form)
	if err != nil {
		return nil, nil, err
	}
	order, err := o.paypalFlow.Start(ctx, *req)
	if err != nil {
		return nil, nil, err
	}
	o.stashApproval(order.ID, req)
	return order, req, nil
}

// CompletePayPal captures an approved order and finalizes the outcome.
// Capture charges the snapshot minted when the approval order was created,
// so cart edits made during approval never change the order. The snapshot
// is rebuilt from the cart only when the approval outlived this process.
func (o *Orchestrator) CompletePayPal(ctx context.Context, cartID uuid.UUID, form *Form, paypalOrderID string) (*payments.Outcome, error) {
	if o.paypalFlow == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal payments are not configured")
	}
	form.Method = MethodPayPal

	req := o.approvalRequest(paypalOrderID)
	if req == nil {
		var err error
		req, err = o.Prepare(ctx, cartID, form)
		if err != nil {
			return nil, err
		}
	} else if err := Validate(o.validate, form); err != nil {
		return nil, err
	}

	started := time.Now()
	result := o.paypalFlow.Complete(ctx, paypalOrderID)
	outcome := result.Outcome(o.orderData(req))
	o.finalize(ctx, cartID, outcome, time.Since(started))
	if outcome == nil || outcome.Succeeded() {
		o.dropApproval(paypalOrderID)
	}
	return outcome, nil
}

// CapturePayPal captures an already-approved order using caller-supplied
// order data, for storefront clients that drove the approval themselves.
// The cart ID may be uuid.Nil when the client holds its own cart.
func (o *Orchestrator) CapturePayPal(ctx context.Context, cartID uuid.UUID, order payments.OrderData, paypalOrderID string) (*payments.Outcome, error) {
	if o.paypalFlow == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal payments are not configured")
	}
	if order.OrderID == "" {
		order.OrderID = newOrderID()
	}

	started := time.Now()
	result := o.paypalFlow.Complete(ctx, paypalOrderID)
	outcome := result.Outcome(order)
	o.finalize(ctx, cartID, outcome, time.Since(started))
	return outcome, nil
}

// CancelPayPal records buyer abandonment; it is not an error and produces
// no outcome.
func (o *Orchestrator) CancelPayPal(ctx context.Context, paypalOrderID string) {
	if o.paypalFlow == nil {
		return
	}
	o.dropApproval(paypalOrderID)
	o.paypalFlow.Cancel(ctx, paypalOrderID)
}

// stashApproval remembers the intent request behind a PayPal approval
// order until it is captured or cancelled. Stale entries from abandoned
// approvals are pruned on the way in.
func (o *Orchestrator) stashApproval(paypalOrderID string, req *payments.IntentRequest) {
	now := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, entry := range o.pending {
		if now.Sub(entry.created) > o.sessionTTL {
			delete(o.pending, id)
		}
	}
	o.pending[paypalOrderID] = pendingApproval{req: req, created: now}
}

func (o *Orchestrator) approvalRequest(paypalOrderID string) *payments.IntentRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.pending[paypalOrderID]
	if !ok {
		return nil
	}
	return entry.req
}

func (o *Orchestrator) dropApproval(paypalOrderID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, paypalOrderID)
}

// orderData snapshots customer, items and total at confirmation time.
func (o *Orchestrator) orderData(req *payments.IntentRequest) payments.OrderData {
	items := make([]payments.LineItem, len(req.Items))
	copy(items, req.Items)
	return payments.OrderData{
		OrderID:  req.OrderID,
		Customer: req.Customer,
		Items:    items,
		Total:    req.Amount,
		Shipping: req.Shipping,
	}
}

// finalize records metrics and, on success, dispatches post-payment effects
// exactly once per transaction. Re-finalizing the same transaction is a
// no-op.
func (o *Orchestrator) finalize(ctx context.Context, cartID uuid.UUID, outcome *payments.Outcome, took time.Duration) {
	if outcome == nil {
		return
	}

	provider := string(outcome.Provider)
	if o.metrics != nil {
		o.metrics.ObserveDuration(provider, took)
	}

	if !outcome.Succeeded() {
		if o.metrics != nil {
			o.metrics.IncFailure(provider)
		}
		o.logg.Warn(o.logg.WithProvider(ctx, provider), "checkout attempt failed")
		return
	}

	if o.metrics != nil {
		o.metrics.IncSuccess(provider)
	}

	if o.alreadyFinalized(ctx, outcome.Payment.TransactionID) {
		o.logg.Info(o.logg.WithOrderID(ctx, outcome.Order.OrderID),
			"transaction already finalized, skipping effects")
		return
	}

	if o.effects != nil && outcome.Order != nil {
		o.effects.OrderCompleted(ctx, cartID, *outcome.Order)
	}
}

// alreadyFinalized marks the transaction processed, first in process then
// in the session store. The in-process map catches duplicates when no
// store is configured; the store makes the flag survive restarts. A store
// failure never blocks effects, it only narrows the guard to this process.
func (o *Orchestrator) alreadyFinalized(ctx context.Context, transactionID string) bool {
	o.mu.Lock()
	_, done := o.processed[transactionID]
	if !done {
		o.processed[transactionID] = struct{}{}
	}
	o.mu.Unlock()
	if done {
		return true
	}

	if o.sessions == nil {
		return false
	}
	key := o.sessions.CheckoutSessionKey(transactionID)
	set, err := o.sessions.SetNX(ctx, key, "1", o.sessionTTL)
	if err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "key", key),
			"session store unavailable, using in-process guard only")
		return false
	}
	return !set
}

func newOrderID() string {
	return "SS-" + uuid.NewString()[:8]
}
