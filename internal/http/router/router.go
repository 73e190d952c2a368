// Package router arma el chi.Router completo del servicio: rutas de
// provider, administración, health y métricas.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/socialgate/internal/http/handlers"
	"github.com/dropDatabas3/socialgate/internal/http/middlewares"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/provider"
)

// Options agrupa las dependencias que el router necesita para montar todo.
type Options struct {
	Deps  provider.Deps
	Pings map[string]handlers.PingFunc
}

// New construye el handler raíz. Devuelve también los nombres de las
// plataformas montadas, para loguearlos en el arranque.
func New(opts Options) (http.Handler, []string) {
	r := chi.NewRouter()

	mgmt := handlers.NewManagement(opts.Deps.Accounts)
	health := handlers.NewHealth(opts.Pings)

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/management", func(mr chi.Router) {
		mr.Post("/update-token", mgmt.UpdateToken)
	})

	mounted := provider.Mount(r, opts.Deps)
	if len(mounted) == 0 {
		logger.L().Warn("no providers mounted; only management and health routes are live")
	}

	// Orden: recover por fuera de todo, luego request-id para que logging
	// ya lo tenga disponible.
	h := middlewares.Chain(r,
		middlewares.WithRecover(),
		middlewares.WithRequestID(),
		middlewares.WithNoStore(),
		middlewares.WithLogging(),
	)

	return h, mounted
}
