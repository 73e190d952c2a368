// Package metrics expone los contadores Prometheus del gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins cuenta callbacks de OAuth por plataforma y resultado
	// (ok | idp_error | exchange_error | identity_unresolvable | error).
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialgate",
		Name:      "logins_total",
		Help:      "OAuth callback outcomes per platform.",
	}, []string{"provider", "result"})

	// Posts cuenta acciones de publicación por plataforma, modo y resultado.
	Posts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialgate",
		Name:      "posts_total",
		Help:      "Publish actions per platform, mode (live|dry-run) and result.",
	}, []string{"provider", "mode", "result"})

	// TokenRotations cuenta rotaciones de secret token por resultado
	// (ok | forbidden | conflict | bad_request | error).
	TokenRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialgate",
		Name:      "token_rotations_total",
		Help:      "Secret token rotations by result.",
	}, []string{"result"})

	// UpstreamDuration mide la latencia de las llamadas remotas opacas
	// (exchange, userinfo, publish).
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialgate",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of opaque remote calls to the platforms.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "call"})
)
