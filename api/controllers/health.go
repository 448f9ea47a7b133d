package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/pkg/config"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// ReadinessCheck is one dependency checked by /health/ready.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Snapwall-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and reports the first failure as DEPENDENCY_ERROR.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Snapwall-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, check := range checks {
			if check.Ping == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready").WithDetails(map[string]any{"check": check.Name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
