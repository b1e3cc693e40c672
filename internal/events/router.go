// Package events validates inbound Pathfinder events and dispatches them:
// master-data updates go to the stores, contract requests and replies are
// relayed to counterpart nodes.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/Priya8975/harmony-node/internal/engine"
)

// Store is the persistence the router needs. *store.PostgresStore satisfies it.
type Store interface {
	GetOrganization(ctx context.Context, organizationID int64) (*domain.Organization, error)
	SearchOrganizations(ctx context.Context, name *string, urns []string) ([]domain.Organization, error)
	UpdateOrganization(ctx context.Context, organizationID int64, name string, urns []string) error
	UpdateProduct(ctx context.Context, organizationID int64, name string, urns []string) (int64, error)
	UpdateProductFootprint(ctx context.Context, organizationID int64, ev domain.ProductFootprintUpdated) error
	GetProductFootprint(ctx context.Context, dataID string) (*domain.ProductFootprint, error)
	RestoreDataSource(ctx context.Context, organizationID int64, dataSourceType string) (*domain.DataSource, error)

	HasContractRequest(ctx context.Context, eventID, source string, requesteeOrganizationID int64) (bool, error)
	CreateContractRequest(ctx context.Context, rec domain.CorrelationRecord) (*domain.CorrelationRecord, error)
	FindContractRequest(ctx context.Context, eventID, source string, requesteeOrganizationID int64) (*domain.CorrelationRecord, error)
	DeleteContractRequest(ctx context.Context, requestID int64) error
}

// TokenAcquirer fetches a bearer token from a counterpart's Authenticate endpoint.
type TokenAcquirer interface {
	AcquireToken(ctx context.Context, authURL, userName, password string) (string, error)
}

// RemoteInvoker sends a signed request to a counterpart.
type RemoteInvoker interface {
	Call(ctx context.Context, method, rawURL, token, contentType string, body []byte) ([]byte, error)
}

// Breaker guards counterparts whose endpoints keep failing.
type Breaker interface {
	AllowRequest(ctx context.Context, counterpart string) (string, bool)
	RecordSuccess(ctx context.Context, counterpart string)
	RecordFailure(ctx context.Context, counterpart string)
}

// Observer is told about every contract leg once it has finished.
type Observer interface {
	LegCompleted(outcome LegOutcome)
}

// Leg statuses.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusDropped   = "dropped"
)

// LegOutcome describes one relayed contract request or reply.
type LegOutcome struct {
	EventID                 string `json:"event_id"`
	Source                  string `json:"source"`
	Type                    string `json:"event_type"`
	RequestorOrganizationID int64  `json:"requestor_organization_id"`
	RequesteeOrganizationID int64  `json:"requestee_organization_id"`
	Status                  string `json:"status"`
	Error                   string `json:"error,omitempty"`
	DurationMs              int64  `json:"duration_ms"`

	Err error `json:"-"`
}

// Result is what HandleEvent did with an event.
type Result struct {
	EventID string       `json:"event_id"`
	Type    string       `json:"type"`
	RunID   string       `json:"run_id,omitempty"`
	Legs    []LegOutcome `json:"legs,omitempty"`
}

// Option configures a Router.
type Option func(*Router)

// WithBreaker guards counterparts with a circuit breaker.
func WithBreaker(b Breaker) Option {
	return func(r *Router) { r.breaker = b }
}

// WithObserver reports finished legs to o.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// Router dispatches inbound events.
type Router struct {
	store    Store
	tokens   TokenAcquirer
	invoker  RemoteInvoker
	fanout   *engine.FanOutEngine
	breaker  Breaker
	observer Observer
	logger   *slog.Logger
}

func NewRouter(store Store, tokens TokenAcquirer, invoker RemoteInvoker, fanout *engine.FanOutEngine, logger *slog.Logger, opts ...Option) *Router {
	r := &Router{
		store:   store,
		tokens:  tokens,
		invoker: invoker,
		fanout:  fanout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleEvent validates env and acts on it on behalf of the calling
// organization. Nothing is read or written before validation passes.
// Unknown event types are accepted and ignored.
func (r *Router) HandleEvent(ctx context.Context, callerOrganizationID int64, env domain.Envelope) (*Result, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	ev, err := domain.ParseEvent(env)
	if err != nil {
		return nil, err
	}

	result := &Result{EventID: env.ID, Type: env.Type}

	switch e := ev.(type) {
	case domain.CompanyUpdated:
		if err := r.store.UpdateOrganization(ctx, callerOrganizationID, *e.CompanyName, e.CompanyIDs); err != nil {
			return nil, fmt.Errorf("updating organization: %w", err)
		}

	case domain.ProductUpdated:
		if _, err := r.store.UpdateProduct(ctx, callerOrganizationID, *e.ProductNameCompany, e.ProductIDs); err != nil {
			return nil, fmt.Errorf("updating product: %w", err)
		}

	case domain.ProductFootprintUpdated:
		if err := r.store.UpdateProductFootprint(ctx, callerOrganizationID, e); err != nil {
			return nil, fmt.Errorf("updating product footprint: %w", err)
		}

	case domain.ContractRequest:
		return r.handleContractRequest(ctx, callerOrganizationID, env, e, result)

	case domain.ContractReply:
		return r.handleContractReply(ctx, callerOrganizationID, env, e, result)

	default:
		r.logger.Debug("ignoring event", "event_id", env.ID, "type", env.Type)
		return result, nil
	}

	r.logger.Info("event applied",
		"event_id", env.ID,
		"type", env.Type,
		"organization_id", callerOrganizationID,
	)
	return result, nil
}

// deliver authenticates against ds and posts body to its UpdateEvent endpoint.
func (r *Router) deliver(ctx context.Context, ds *domain.DataSource, body []byte) error {
	auth, _ := ds.Endpoint(domain.EndpointAuthenticate)
	update, _ := ds.Endpoint(domain.EndpointUpdateEvent)

	counterpart := engine.CounterpartKey(ds.DataSourceID)
	if r.breaker != nil {
		if state, ok := r.breaker.AllowRequest(ctx, counterpart); !ok {
			r.logger.Warn("counterpart circuit open",
				"organization_id", ds.OrganizationID,
				"data_source_id", ds.DataSourceID,
				"state", state,
			)
			return &domain.RemoteError{URL: update.URL, Message: "The counterpart is temporarily unavailable."}
		}
	}

	token, err := r.tokens.AcquireToken(ctx, auth.URL, ds.UserName, ds.Password)
	if err == nil {
		_, err = r.invoker.Call(ctx, http.MethodPost, update.URL, token, domain.ContentTypeCloudEvents, body)
	}

	if r.breaker != nil {
		if err != nil {
			r.breaker.RecordFailure(ctx, counterpart)
		} else {
			r.breaker.RecordSuccess(ctx, counterpart)
		}
	}
	return err
}

func (r *Router) observe(outcome LegOutcome) {
	if r.observer != nil {
		r.observer.LegCompleted(outcome)
	}
}

// publicMessage is the part of a leg error that may be shown to the caller.
func publicMessage(err error) string {
	if err == nil {
		return ""
	}
	if domain.IsValidation(err) {
		return err.Error()
	}
	return "The request could not be delivered."
}
