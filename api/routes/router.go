package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HydrikMasqued/quartermaster/api/handlers"
	"github.com/HydrikMasqued/quartermaster/api/middleware"
	"github.com/HydrikMasqued/quartermaster/internal/archives"
	"github.com/HydrikMasqued/quartermaster/internal/ledger"
	"github.com/HydrikMasqued/quartermaster/pkg/config"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
)

// NewRouter wires the HTTP surface. Every route is a thin adapter over the
// ledger and archive services.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	ledgerService ledger.Service,
	archiveService archives.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", handlers.Healthz(cfg, logg))

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/guilds/{guildID}", func(r chi.Router) {
			r.Post("/contributions", handlers.AddContribution(ledgerService, logg))
			r.Post("/quantity-overrides", handlers.RecordQuantityOverride(ledgerService, logg))
			r.Post("/redistributions", handlers.Redistribute(ledgerService, logg))

			r.Get("/stock", handlers.CurrentStock(ledgerService, logg))
			r.Get("/stock/series", handlers.StockSeries(ledgerService, logg))
			r.Get("/audit", handlers.AuditTrail(ledgerService, logg))
			r.Get("/quantity-changes", handlers.QuantityChangeHistory(ledgerService, logg))

			r.Delete("/events/{kind}/{eventID}", handlers.RemoveEvent(ledgerService, logg))

			r.Post("/archives", handlers.ArchiveEpoch(archiveService, logg))
			r.Get("/archives", handlers.ListArchives(archiveService, logg))
		})

		r.Get("/archives/{archiveID}", handlers.GetArchive(archiveService, logg))
	})

	return r
}
