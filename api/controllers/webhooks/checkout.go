package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/snapmarket/snapmarket-backend/api/responses"
	checkoutwebhook "github.com/snapmarket/snapmarket-backend/internal/webhooks/checkout"
	"github.com/snapmarket/snapmarket-backend/pkg/checkout"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

type CheckoutWebhookService interface {
	HandleEvent(ctx context.Context, event *checkoutwebhook.Event) error
}

type checkoutWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type checkoutClient interface {
	SigningSecret() string
}

// CheckoutWebhook handles the provider's payment settlement callbacks.
// Verified events always get a 2xx ACK, even when processing fails; the
// provider retries and the settlement itself is idempotent.
func CheckoutWebhook(svc CheckoutWebhookService, client checkoutClient, guard checkoutWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(checkout.SignatureHeader)
		if err := checkout.VerifySignature(client.SigningSecret(), payload, sigHeader); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature"))
			return
		}

		var event checkoutwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		if event.EventID == "" {
			event.EventID = event.SessionID + ":" + event.Status
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.EventID)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "idempotency check failed", err)
			}
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			_ = guard.Delete(ctx, event.EventID)
			if logg != nil {
				logCtx := logg.WithField(ctx, "session_id", event.SessionID)
				logg.Error(logCtx, "checkout event processing failed", err)
			}
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "session_id", event.SessionID), "checkout event processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
