package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	exchangehandler "curio/internal/exchange/handler"
	"curio/internal/platform/metrics"
	"curio/internal/platform/middleware"
	registryhandler "curio/internal/registry/handler"
	"curio/pkg/domain"
)

// RouterConfig carries everything the router needs to assemble the HTTP
// surface. Transport concerns only; business logic stays in the services.
type RouterConfig struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	AdminToken string
	Admin      domain.AccountID

	Registry *registryhandler.Handler
	Exchange *exchangehandler.Handler
}

// NewRouter wires all public endpoints behind the shared middleware stack.
// Caller-facing routes require a bearer token; administrative routes use the
// admin token header instead.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		cfg.Registry.Register(r)
		cfg.Exchange.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.AdminToken, cfg.Admin, cfg.Logger))
		cfg.Registry.RegisterAdmin(r)
	})

	return r
}
