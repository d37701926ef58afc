package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avalogan/silkstrands-backend/api/responses"
	"github.com/avalogan/silkstrands-backend/api/validators"
	"github.com/avalogan/silkstrands-backend/internal/cart"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

func cartIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "cartID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id")
	}
	return id, nil
}

// CartCreate allocates a new server-side cart.
func CartCreate(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := store.Create()
		snapshot, err := store.Get(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

// CartGet returns the cart with totals recomputed.
func CartGet(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := store.Get(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

type addItemRequest struct {
	ID       string          `json:"id"`
	Slug     string          `json:"slug" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Image    string          `json:"image"`
	Shade    string          `json:"shade"`
	Length   string          `json:"length"`
	PackSize string          `json:"pack_size"`

	OriginalPrice *decimal.Decimal `json:"original_price"`
	Discount      *decimal.Decimal `json:"discount"`
	Savings       *decimal.Decimal `json:"savings"`
}

// CartAddItem adds a catalog variant to the cart, merging with an existing
// line for the same variant.
func CartAddItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.AddItem(id, cart.Item{
			ID:            payload.ID,
			Slug:          payload.Slug,
			Name:          payload.Name,
			Price:         payload.Price,
			Image:         payload.Image,
			Shade:         payload.Shade,
			Length:        payload.Length,
			PackSize:      payload.PackSize,
			OriginalPrice: payload.OriginalPrice,
			Discount:      payload.Discount,
			Savings:       payload.Savings,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartUpdateItem sets a line's quantity; zero or less removes the line.
func CartUpdateItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID := chi.URLParam(r, "itemID")

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.UpdateQuantity(id, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CartRemoveItem removes a line; removing an absent line is a no-op.
func CartRemoveItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.RemoveItem(id, chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CartClear empties the cart.
func CartClear(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cartIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Clear(id)
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
