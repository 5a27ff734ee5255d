package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaydesk/relaydesk/internal/handler/events"
	"github.com/relaydesk/relaydesk/internal/handler/operator"
	settingshandler "github.com/relaydesk/relaydesk/internal/handler/settings"
	"github.com/relaydesk/relaydesk/internal/handler/webhook"
	"github.com/relaydesk/relaydesk/internal/middleware"
	"github.com/relaydesk/relaydesk/internal/service/console"
	settingsreg "github.com/relaydesk/relaydesk/internal/settings"
	"github.com/relaydesk/relaydesk/pkg/logging"
	"github.com/relaydesk/relaydesk/pkg/utils"
)

// RouterConfig carries the request-facing configuration the router needs.
type RouterConfig struct {
	AuthToken          string
	CORSAllowedOrigins []string
}

// NewRouter wires HTTP routes to core services. Every console endpoint sits
// behind the shared-secret check; health and metrics stay open.
func NewRouter(cfg RouterConfig, svc *console.Service, registry *settingsreg.Registry, gatherer prometheus.Gatherer, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	webhookHandler := webhook.New(svc, logger)
	operatorHandler := operator.New(svc, logger)
	settingsHandler := settingshandler.New(svc, registry, cfg.AuthToken, logger)
	eventsHandler := events.New(svc, logger)
	wsHandler := events.NewWebSocket(svc, logger)

	r.Group(func(g chi.Router) {
		g.Use(middleware.SharedSecret(cfg.AuthToken))

		webhookHandler.RegisterRoutes(g)
		operatorHandler.RegisterRoutes(g)
		settingsHandler.RegisterRoutes(g)
		eventsHandler.RegisterRoutes(g)
		wsHandler.RegisterRoutes(g)
	})

	return r
}
