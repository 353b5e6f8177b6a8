package handlers

import (
	"net/http"

	"github.com/HydrikMasqued/quartermaster/api/responses"
	"github.com/HydrikMasqued/quartermaster/pkg/config"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
)

func Healthz(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithFields(r.Context(), map[string]any{
			"env":  cfg.App.Env,
			"path": r.URL.Path,
		})
		logg.Info(ctx, "health.check")

		w.Header().Set("X-Quartermaster-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
