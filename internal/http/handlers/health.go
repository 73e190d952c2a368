package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// PingFunc verifica conectividad de un backend (cache redis, pool de
// postgres). Los backends fs no necesitan ping.
type PingFunc func(ctx context.Context) error

// Health expone healthz (proceso vivo) y readyz (dependencias alcanzables).
type Health struct {
	deps map[string]PingFunc
}

// NewHealth crea el handler. deps puede ser nil o vacío; readyz entonces
// siempre responde ok.
func NewHealth(deps map[string]PingFunc) *Health {
	return &Health{deps: deps}
}

// Healthz responde 200 mientras el proceso esté vivo.
func (h *Health) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readyz verifica cada dependencia con un timeout corto y reporta por nombre.
func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for name, ping := range h.deps {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}
