package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avalogan/silkstrands-backend/api/responses"
	"github.com/avalogan/silkstrands-backend/internal/effects"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

// OrderInvoice renders the invoice for a completed order on demand.
func OrderInvoice(invoices *effects.InvoiceStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if invoices == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices unavailable"))
			return
		}

		orderID := chi.URLParam(r, "orderID")
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}

		invoice, err := invoices.Generate(orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}
