package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avalogan/silkstrands-backend/api/responses"
	"github.com/avalogan/silkstrands-backend/api/validators"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

type paypalCapturer interface {
	CapturePayPal(ctx context.Context, cartID uuid.UUID, order payments.OrderData, paypalOrderID string) (*payments.Outcome, error)
}

type processPayPalRequest struct {
	OrderID  string          `json:"orderID" validate:"required"`
	PayerID  string          `json:"payerID"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Customer customerPayload `json:"customer" validate:"required"`
	Items    []itemPayload   `json:"items" validate:"required,min=1,dive"`
	Shipping shippingPayload `json:"shipping"`
	CartID   string          `json:"cart_id"`
}

func (p processPayPalRequest) toOrderData() payments.OrderData {
	items := make([]payments.LineItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, payments.LineItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Shade:    item.Shade,
			Length:   item.Length,
		})
	}
	name := p.Shipping.Name
	if name == "" {
		name = p.Customer.Name
	}
	return payments.OrderData{
		Customer: payments.Customer{
			Email: p.Customer.Email,
			Name:  p.Customer.Name,
			Phone: p.Customer.Phone,
		},
		Items:    items,
		Total:    p.Amount,
		Shipping: payments.Shipping{Name: name, Address: p.Shipping.Address},
	}
}

// ProcessPayPalPayment captures an approved PayPal order and runs the
// post-payment effects. The storefront client drives the approval popup
// itself and posts the approved order here.
func ProcessPayPalPayment(capturer paypalCapturer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if capturer == nil {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paypal unavailable"))
			return
		}

		var payload processPayPalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		cartID := uuid.Nil
		if payload.CartID != "" {
			parsed, err := uuid.Parse(payload.CartID)
			if err != nil {
				responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id"))
				return
			}
			cartID = parsed
		}

		outcome, err := capturer.CapturePayPal(r.Context(), cartID, payload.toOrderData(), payload.OrderID)
		if err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}
		if !outcome.Succeeded() {
			responses.WriteLegacyError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodePaymentDeclined, outcome.Message))
			return
		}
		responses.WriteLegacy(w, http.StatusOK, map[string]any{
			"success": true,
			"payment": outcome.Payment,
			"order":   outcome.Order,
		})
	}
}
