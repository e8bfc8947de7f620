package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "souschef_gateway_calls_total",
		Help: "AI gateway round trips by operation and outcome.",
	}, []string{"operation", "status"})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "souschef_sessions_created_total",
		Help: "Fridge sessions created from successful scans.",
	})
)

func observeGateway(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	gatewayCalls.WithLabelValues(operation, status).Inc()
}
