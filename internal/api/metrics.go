package api

import (
	"net/http"

	"github.com/Priya8975/harmony-node/internal/store"
	ws "github.com/Priya8975/harmony-node/internal/websocket"
)

type MetricsHandler struct {
	store          Store
	hub            *ws.Hub
	breakerEnabled bool
	eventRateLimit int
	errs           *errorWriter
}

func NewMetricsHandler(s Store, hub *ws.Hub, breakerEnabled bool, eventRateLimit int, errs *errorWriter) *MetricsHandler {
	return &MetricsHandler{store: s, hub: hub, breakerEnabled: breakerEnabled, eventRateLimit: eventRateLimit, errs: errs}
}

// Metrics returns node-wide counts for operators.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.store.GetNodeMetrics(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	type metricsResponse struct {
		store.NodeMetrics
		WebSocketClients      int  `json:"websocket_clients"`
		CircuitBreakerEnabled bool `json:"circuit_breaker_enabled"`
		EventRateLimit        int  `json:"event_rate_limit"`
	}

	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		NodeMetrics:           *metrics,
		WebSocketClients:      clients,
		CircuitBreakerEnabled: h.breakerEnabled,
		EventRateLimit:        h.eventRateLimit,
	})
}
