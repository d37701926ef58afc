package controllers

import (
	"context"
	"net/http"

	"github.com/avalogan/silkstrands-backend/api/responses"
	"github.com/avalogan/silkstrands-backend/pkg/config"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

type redisPinger interface {
	Ping(ctx context.Context) error
}

// Health reports which integrations are configured, without exposing any
// secret material.
func Health(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteLegacy(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"env":               cfg.App.Env,
			"demo_mode":         cfg.Checkout.DemoMode,
			"stripe_configured": cfg.Stripe.Configured(),
			"paypal_configured": cfg.PayPal.Configured(),
			"email_configured":  cfg.Email.Configured(),
		})
	}
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SilkStrands-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, redis redisPinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SilkStrands-Env", cfg.App.Env)
		if redis != nil {
			if err := redis.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not reachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
