package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/snapmarket/snapmarket-backend/api/middleware"
	"github.com/snapmarket/snapmarket-backend/api/responses"
	"github.com/snapmarket/snapmarket-backend/api/validators"
	"github.com/snapmarket/snapmarket-backend/internal/entries"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

type entryPresignPayload struct {
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,min=1"`
}

type entryCreatePayload struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=2000"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	FileKey      string          `json:"file_key" validate:"required"`
	ThumbnailKey string          `json:"thumbnail_key" validate:"required"`
}

// EntryPresign returns signed PUT URLs for a new asset pair on a request.
func EntryPresign(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload entryPresignPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.PresignUpload(r.Context(), sellerID, requestID, entries.PresignInput{
			MimeType:  payload.MimeType,
			SizeBytes: payload.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// EntryCreate records a submitted entry once its objects are uploaded.
func EntryCreate(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		sellerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload entryCreatePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), sellerID, middleware.UserNameFromContext(r.Context()), entries.CreateInput{
			RequestID:    requestID,
			Title:        payload.Title,
			Description:  payload.Description,
			Price:        payload.Price,
			FileKey:      payload.FileKey,
			ThumbnailKey: payload.ThumbnailKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// EntryList returns a request's entries, newest first.
func EntryList(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		requestID, err := pathID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), requestID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// EntryDownload returns a signed GET URL for a purchased asset.
func EntryDownload(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entryID, err := pathID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Download(r.Context(), userID, requestID, entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
