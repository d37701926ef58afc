package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/avalogan/silkstrands-backend/api/responses"
	"github.com/avalogan/silkstrands-backend/api/validators"
	"github.com/avalogan/silkstrands-backend/internal/checkout"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	"github.com/avalogan/silkstrands-backend/internal/payments/card"
	"github.com/avalogan/silkstrands-backend/internal/payments/paypal"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

type checkoutService interface {
	ProcessCard(ctx context.Context, cartID uuid.UUID, form *checkout.Form, details card.Details) (*payments.Outcome, error)
	StartPayPal(ctx context.Context, cartID uuid.UUID, form *checkout.Form) (*paypal.Order, *payments.IntentRequest, error)
	CompletePayPal(ctx context.Context, cartID uuid.UUID, form *checkout.Form, paypalOrderID string) (*payments.Outcome, error)
	CancelPayPal(ctx context.Context, paypalOrderID string)
}

type checkoutRequest struct {
	CartID string        `json:"cart_id" validate:"required"`
	Form   checkout.Form `json:"form" validate:"required"`
	Card   *card.Details `json:"card"`

	// PayPalOrderID is set on the complete/cancel legs of the PayPal flow.
	PayPalOrderID string `json:"paypal_order_id"`
}

func (p checkoutRequest) cartID() (uuid.UUID, error) {
	id, err := uuid.Parse(p.CartID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id")
	}
	return id, nil
}

// Checkout runs a full checkout attempt on the selected payment rail.
func Checkout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartID, err := payload.cartID()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch payload.Form.Method {
		case checkout.MethodCard:
			if payload.Card == nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "card details are required").
						WithDetails(map[string]any{"card": "this field is required"}))
				return
			}
			outcome, err := svc.ProcessCard(r.Context(), cartID, &payload.Form, *payload.Card)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			writeOutcome(w, r, logg, outcome)
		case checkout.MethodPayPal:
			order, req, err := svc.StartPayPal(r.Context(), cartID, &payload.Form)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{
				"paypal_order": order,
				"order_id":     req.OrderID,
			})
		default:
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
					WithDetails(map[string]any{"payment_method": "must be one of card, paypal"}))
		}
	}
}

// CheckoutPayPalComplete captures the approved order and finalizes.
func CheckoutPayPalComplete(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.PayPalOrderID == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required"))
			return
		}
		cartID, err := payload.cartID()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.CompletePayPal(r.Context(), cartID, &payload.Form, payload.PayPalOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOutcome(w, r, logg, outcome)
	}
}

type cancelPayPalRequest struct {
	PayPalOrderID string `json:"paypal_order_id" validate:"required"`
}

// CheckoutPayPalCancel records buyer abandonment; always a 200, never an
// error banner.
func CheckoutPayPalCancel(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var payload cancelPayPalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.CancelPayPal(r.Context(), payload.PayPalOrderID)
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// writeOutcome maps a payment outcome onto the wire: success stays 200,
// declines are 402 with the mapped human-readable message.
func writeOutcome(w http.ResponseWriter, r *http.Request, logg *logger.Logger, outcome *payments.Outcome) {
	if outcome == nil {
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
		return
	}
	if !outcome.Succeeded() {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodePaymentDeclined, outcome.Message))
		return
	}
	responses.WriteSuccess(w, outcome)
}
