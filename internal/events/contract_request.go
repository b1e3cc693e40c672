package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/Priya8975/harmony-node/internal/engine"
)

const (
	msgRequesteeNotRegistered = "The company associated with the data specified in the requestee property is not registered."
	msgRequestorNoDataSource  = "The requestor's data source is not registered."
	msgDuplicateRequest       = "A request for the same event ID has already been received."
)

// handleContractRequest forwards a contract request to every registered
// organization the requestee selects. Legs run concurrently; the call fails
// only when no leg succeeded.
func (r *Router) handleContractRequest(ctx context.Context, callerOrganizationID int64, env domain.Envelope, req domain.ContractRequest, result *Result) (*Result, error) {
	org, err := r.store.GetOrganization(ctx, callerOrganizationID)
	if err != nil {
		return nil, fmt.Errorf("loading requestor organization: %w", err)
	}
	if org == nil {
		return nil, domain.Statef("Invalid state.")
	}

	candidates, err := r.resolveRequestees(ctx, *req.Requestee)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.Validationf(msgRequesteeNotRegistered)
	}

	var targets []*domain.DataSource
	for _, organizationID := range candidates {
		ds, err := r.store.RestoreDataSource(ctx, organizationID, domain.DataSourceTypePathfinder)
		if err != nil {
			return nil, fmt.Errorf("loading requestee data source: %w", err)
		}
		if ds.Usable() {
			targets = append(targets, ds)
		}
	}
	if len(targets) == 0 {
		return nil, domain.Validationf(msgRequesteeNotRegistered)
	}

	own, err := r.store.RestoreDataSource(ctx, callerOrganizationID, domain.DataSourceTypePathfinder)
	if err != nil {
		return nil, fmt.Errorf("loading requestor data source: %w", err)
	}
	if own == nil {
		return nil, domain.Validationf(msgRequestorNoDataSource)
	}

	forwarded, err := env.WithRequestorPublicKey(org.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("attaching requestor public key: %w", err)
	}
	body, err := json.Marshal(forwarded)
	if err != nil {
		return nil, fmt.Errorf("encoding contract request: %w", err)
	}

	legs := make([]engine.Leg, len(targets))
	for i, ds := range targets {
		ds := ds
		legs[i] = engine.Leg{
			Key: fmt.Sprintf("organization:%d", ds.OrganizationID),
			Run: func(ctx context.Context) error {
				return r.forwardRequest(ctx, callerOrganizationID, env, ds, body)
			},
		}
	}

	fan := r.fanout.FanOut(ctx, legs)
	result.RunID = fan.RunID

	for i, leg := range fan.Legs {
		outcome := LegOutcome{
			EventID:                 env.ID,
			Source:                  env.Source,
			Type:                    env.Type,
			RequestorOrganizationID: callerOrganizationID,
			RequesteeOrganizationID: targets[i].OrganizationID,
			Status:                  StatusDelivered,
			DurationMs:              leg.Duration.Milliseconds(),
		}
		if leg.Err != nil {
			outcome.Status = StatusFailed
			outcome.Err = leg.Err
			outcome.Error = publicMessage(leg.Err)
			r.logger.Warn("contract request leg failed",
				"run_id", fan.RunID,
				"event_id", env.ID,
				"source", env.Source,
				"requestee_organization_id", targets[i].OrganizationID,
				"error", leg.Err,
			)
		}
		result.Legs = append(result.Legs, outcome)
		r.observe(outcome)
	}

	if fan.Succeeded() == 0 {
		return result, fan.FirstError()
	}
	return result, nil
}

// resolveRequestees returns the organization ids the requestee selects: the
// owner of the referenced footprint, followed by organizations matched by
// company name or identifiers.
func (r *Router) resolveRequestees(ctx context.Context, requestee domain.Requestee) ([]int64, error) {
	var ids []int64

	if requestee.ID != nil {
		fp, err := r.store.GetProductFootprint(ctx, *requestee.ID)
		if err != nil {
			return nil, fmt.Errorf("loading product footprint: %w", err)
		}
		if fp != nil {
			ids = append(ids, fp.OrganizationID)
		}
	}

	if requestee.CompanyName != nil || requestee.CompanyIDs != nil {
		orgs, err := r.store.SearchOrganizations(ctx, requestee.CompanyName, requestee.CompanyIDs)
		if err != nil {
			return nil, fmt.Errorf("searching organizations: %w", err)
		}
		for _, o := range orgs {
			ids = append(ids, o.ID)
		}
	}

	return ids, nil
}

// forwardRequest is one leg: duplicate check, delivery, then the
// correlation record that lets the requestee reply.
func (r *Router) forwardRequest(ctx context.Context, requestorOrganizationID int64, env domain.Envelope, ds *domain.DataSource, body []byte) error {
	exists, err := r.store.HasContractRequest(ctx, env.ID, env.Source, ds.OrganizationID)
	if err != nil {
		return fmt.Errorf("checking for duplicate request: %w", err)
	}
	if exists {
		return domain.Validationf(msgDuplicateRequest)
	}

	start := time.Now()
	if err := r.deliver(ctx, ds, body); err != nil {
		return err
	}

	_, err = r.store.CreateContractRequest(ctx, domain.CorrelationRecord{
		RequestType:             domain.RequestTypeContract,
		EventID:                 env.ID,
		Source:                  env.Source,
		RequestorOrganizationID: requestorOrganizationID,
		RequesteeOrganizationID: ds.OrganizationID,
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		return domain.Validationf(msgDuplicateRequest)
	}
	if err != nil {
		return fmt.Errorf("storing contract request: %w", err)
	}

	r.logger.Info("contract request forwarded",
		"event_id", env.ID,
		"source", env.Source,
		"organization_id", requestorOrganizationID,
		"requestee_organization_id", ds.OrganizationID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
