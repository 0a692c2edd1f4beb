package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/snapmarket/snapmarket-backend/api/responses"
	"github.com/snapmarket/snapmarket-backend/api/validators"
	"github.com/snapmarket/snapmarket-backend/internal/payments"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

type purchasePayload struct {
	EntryID uuid.UUID `json:"entry_id" validate:"required"`
}

// PurchaseEntry selects an entry on the caller's request and opens a checkout
// session.
func PurchaseEntry(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload purchasePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.InitiatePurchase(r.Context(), buyerID, requestID, payload.EntryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// PaymentList returns the caller's payment history.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
