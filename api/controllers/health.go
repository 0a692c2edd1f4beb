package controllers

import (
	"context"
	"net/http"

	"github.com/snapmarket/snapmarket-backend/api/responses"
	"github.com/snapmarket/snapmarket-backend/pkg/config"
	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

// HealthPinger is the readiness surface a dependency exposes.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SnapMarket-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness of the backing dependencies.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]HealthPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SnapMarket-Env", cfg.App.Env)

		statuses := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				statuses[name] = "unavailable"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(statuses))
				return
			}
			statuses[name] = "ok"
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
