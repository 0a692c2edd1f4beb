package controllers

import (
	"net/http"

	"github.com/snapmarket/snapmarket-backend/api/middleware"
	"github.com/snapmarket/snapmarket-backend/api/responses"
	"github.com/snapmarket/snapmarket-backend/api/validators"
	"github.com/snapmarket/snapmarket-backend/internal/users"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

type userSyncPayload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
}

// UserGetMe returns the caller's mirrored profile.
func UserGetMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UserSyncMe mirrors the caller's identity provider profile locally.
func UserSyncMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload userSyncPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Sync(r.Context(), userID, users.SyncInput{
			Email:    payload.Email,
			Name:     payload.Name,
			Verified: middleware.VerifiedFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
