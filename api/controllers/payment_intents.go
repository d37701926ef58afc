package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/avalogan/silkstrands-backend/api/responses"
	"github.com/avalogan/silkstrands-backend/api/validators"
	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
	"github.com/avalogan/silkstrands-backend/pkg/money"
	"github.com/avalogan/silkstrands-backend/pkg/types"
)

type createIntentRequest struct {
	// Amount is in minor units; clients send cents.
	Amount   int64             `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency"`
	Customer customerPayload   `json:"customer" validate:"required"`
	Items    []itemPayload     `json:"items" validate:"required,min=1,dive"`
	Shipping shippingPayload   `json:"shipping" validate:"required"`
	Metadata map[string]string `json:"metadata"`
}

type customerPayload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

type itemPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"required,min=1"`
	Shade    string          `json:"color"`
	Length   string          `json:"length"`
}

type shippingPayload struct {
	Name    string        `json:"name"`
	Address types.Address `json:"address"`
}

func (p createIntentRequest) toIntentRequest() payments.IntentRequest {
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
	return payments.IntentRequest{
		OrderID:  p.Metadata["order_id"],
		Amount:   money.FromMinorUnits(p.Amount),
		Currency: p.Currency,
		Customer: payments.Customer{
			Email: p.Customer.Email,
			Name:  p.Customer.Name,
			Phone: p.Customer.Phone,
		},
		Items:    items,
		Shipping: payments.Shipping{Name: name, Address: p.Shipping.Address},
	}
}

// CreatePaymentIntent creates a provider payment intent for the amount the
// client computed, returning the client secret the card widget mounts with.
// Response shapes are the flat ones the deployed storefront parses.
func CreatePaymentIntent(gateway payments.IntentGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		result, err := gateway.CreateIntent(r.Context(), payload.toIntentRequest())
		if err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		responses.WriteLegacy(w, http.StatusOK, map[string]any{
			"client_secret":     result.ClientSecret,
			"payment_intent_id": result.IntentID,
		})
	}
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// ConfirmPayment reports whether an intent reached the succeeded status.
// The card widget confirms client-side; this is the server-side check the
// storefront polls afterwards.
func ConfirmPayment(gateway payments.IntentGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		status, err := gateway.GetIntent(r.Context(), payload.PaymentIntentID)
		if err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		if status.Status != "succeeded" {
			responses.WriteLegacy(w, http.StatusOK, map[string]any{
				"success": false,
				"status":  status.Status,
			})
			return
		}
		responses.WriteLegacy(w, http.StatusOK, map[string]any{
			"success":        true,
			"payment_intent": status,
		})
	}
}

// GetPaymentIntent is the read-only intent status lookup.
func GetPaymentIntent(gateway payments.IntentGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		intentID := chi.URLParam(r, "id")
		if intentID == "" {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required"))
			return
		}

		status, err := gateway.GetIntent(r.Context(), intentID)
		if err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}
		responses.WriteLegacy(w, http.StatusOK, status)
	}
}
