package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/harmony-node/internal/auth"
	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/Priya8975/harmony-node/internal/engine"
	"github.com/Priya8975/harmony-node/internal/events"
	"github.com/Priya8975/harmony-node/internal/store"
	ws "github.com/Priya8975/harmony-node/internal/websocket"
)

// Store is the persistence the HTTP handlers use directly.
// *store.PostgresStore satisfies it.
type Store interface {
	RestoreDataSource(ctx context.Context, organizationID int64, dataSourceType string) (*domain.DataSource, error)
	UpdateDataSource(ctx context.Context, organizationID int64, userName, password string, endpoints []domain.Endpoint) (int64, error)
	DeleteDataSource(ctx context.Context, organizationID int64) (bool, error)
	SetPublicKey(ctx context.Context, organizationID int64, publicKey string) error
	ClearPublicKey(ctx context.Context, organizationID int64) error
	ListContractRequests(ctx context.Context, organizationID int64, limit int) ([]domain.CorrelationRecord, error)
	GetNodeMetrics(ctx context.Context) (*store.NodeMetrics, error)
}

// EventRouter handles inbound events. *events.Router satisfies it.
type EventRouter interface {
	HandleEvent(ctx context.Context, callerOrganizationID int64, env domain.Envelope) (*events.Result, error)
}

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP surface. Breaker and Limiter are
// nil when Redis is not configured.
type Deps struct {
	Store          Store
	Events         EventRouter
	Hub            *ws.Hub
	Authority      *auth.Authority
	Decryptor      *credential.Decryptor
	Breaker        *engine.CircuitBreaker
	Limiter        *engine.RateLimiter
	EventRateLimit int
	Checks         map[string]Pinger
	Logger         *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(requestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware)

	errs := &errorWriter{logger: d.Logger}

	eventHandler := NewEventHandler(d.Events, errs)
	dsHandler := NewDataSourceHandler(d.Store, d.Decryptor, d.Breaker, errs)
	keyHandler := NewKeyPairHandler(d.Store, errs)
	requestHandler := NewRequestHandler(d.Store, errs)
	metricsHandler := NewMetricsHandler(d.Store, d.Hub, d.Breaker != nil, d.EventRateLimit, errs)

	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/api/v1/health", HealthHandler(d.Checks))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(d.Authority))

		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			d.Hub.Serve(w, r, OrganizationID(r.Context()))
		})

		r.With(rateLimitMiddleware(d.Limiter, d.EventRateLimit)).Post("/events", eventHandler.Create)

		r.Route("/datasources", func(r chi.Router) {
			r.Get("/", dsHandler.Get)
			r.Post("/", dsHandler.Update)
			r.Delete("/", dsHandler.Delete)
		})

		r.Route("/keypairs", func(r chi.Router) {
			r.Post("/", keyHandler.Register)
			r.Delete("/", keyHandler.Delete)
			r.Post("/generate", keyHandler.Generate)
		})

		r.Get("/requests", requestHandler.List)
	})

	return r
}

// corsMiddleware adds CORS headers for browser-based clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
