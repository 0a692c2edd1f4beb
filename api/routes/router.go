package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snapmarket/snapmarket-backend/api/controllers"
	webhookcontrollers "github.com/snapmarket/snapmarket-backend/api/controllers/webhooks"
	"github.com/snapmarket/snapmarket-backend/api/middleware"
	"github.com/snapmarket/snapmarket-backend/internal/entries"
	"github.com/snapmarket/snapmarket-backend/internal/payments"
	"github.com/snapmarket/snapmarket-backend/internal/requests"
	"github.com/snapmarket/snapmarket-backend/internal/users"
	checkoutwebhook "github.com/snapmarket/snapmarket-backend/internal/webhooks/checkout"
	"github.com/snapmarket/snapmarket-backend/pkg/checkout"
	"github.com/snapmarket/snapmarket-backend/pkg/config"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	HealthDeps      map[string]controllers.HealthPinger
	RequestsService requests.Service
	EntriesService  entries.Service
	PaymentsService payments.Service
	UsersService    users.Service
	CheckoutClient  *checkout.Client
	WebhookService  *checkoutwebhook.Service
	WebhookGuard    *checkoutwebhook.IdempotencyGuard
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.HealthDeps))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/checkout", webhookcontrollers.CheckoutWebhook(params.WebhookService, params.CheckoutClient, params.WebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.UserGetMe(params.UsersService, logg))
			r.Put("/me", controllers.UserSyncMe(params.UsersService, logg))
		})

		r.Route("/v1/requests", func(r chi.Router) {
			r.Get("/", controllers.RequestList(params.RequestsService, logg))
			r.Get("/mine", controllers.RequestListMine(params.RequestsService, logg))
			r.Get("/{requestId}", controllers.RequestGet(params.RequestsService, logg))
			r.Get("/{requestId}/entries", controllers.EntryList(params.EntriesService, logg))
			r.Get("/{requestId}/entries/{entryId}/download", controllers.EntryDownload(params.EntriesService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireVerified(logg))
				r.Post("/", controllers.RequestCreate(params.RequestsService, logg))
				r.Post("/{requestId}/close", controllers.RequestClose(params.RequestsService, logg))
				r.Post("/{requestId}/entries/presign", controllers.EntryPresign(params.EntriesService, logg))
				r.Post("/{requestId}/entries", controllers.EntryCreate(params.EntriesService, logg))
				r.Post("/{requestId}/purchase", controllers.PurchaseEntry(params.PaymentsService, logg))
			})
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(params.PaymentsService, logg))
		})
	})

	return r
}
