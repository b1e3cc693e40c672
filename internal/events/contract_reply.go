package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Priya8975/harmony-node/internal/domain"
)

const msgRequestNotReceived = "Request corresponding to the specified event ID has not been received."

// handleContractReply relays a reply back to the organization that made the
// request and closes the correlation record. Only the requestee the request
// was forwarded to may answer it.
func (r *Router) handleContractReply(ctx context.Context, callerOrganizationID int64, env domain.Envelope, reply domain.ContractReply, result *Result) (*Result, error) {
	rec, err := r.store.FindContractRequest(ctx, *reply.RequestEventID, *reply.RequestSource, callerOrganizationID)
	if err != nil {
		return nil, fmt.Errorf("loading contract request: %w", err)
	}
	if rec == nil {
		return nil, domain.Validationf(msgRequestNotReceived)
	}

	ds, err := r.store.RestoreDataSource(ctx, rec.RequestorOrganizationID, domain.DataSourceTypePathfinder)
	if err != nil {
		return nil, fmt.Errorf("loading requestor data source: %w", err)
	}
	if ds == nil {
		return nil, domain.Statef("Invalid state.")
	}

	outcome := LegOutcome{
		EventID:                 env.ID,
		Source:                  env.Source,
		Type:                    env.Type,
		RequestorOrganizationID: rec.RequestorOrganizationID,
		RequesteeOrganizationID: callerOrganizationID,
	}

	if !ds.HasDeliveryEndpoints() {
		r.logger.Info("requestor has no delivery endpoints, dropping reply",
			"event_id", env.ID,
			"request_event_id", rec.EventID,
			"organization_id", rec.RequestorOrganizationID,
		)
		outcome.Status = StatusDropped
		result.Legs = append(result.Legs, outcome)
		r.observe(outcome)
		return result, nil
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding contract reply: %w", err)
	}

	start := time.Now()
	err = r.deliver(ctx, ds, body)
	outcome.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.Error = publicMessage(err)
		result.Legs = append(result.Legs, outcome)
		r.observe(outcome)
		return result, err
	}

	if err := r.store.DeleteContractRequest(ctx, rec.RequestID); err != nil {
		return nil, fmt.Errorf("closing contract request: %w", err)
	}

	outcome.Status = StatusDelivered
	result.Legs = append(result.Legs, outcome)
	r.observe(outcome)

	r.logger.Info("contract reply relayed",
		"event_id", env.ID,
		"request_event_id", rec.EventID,
		"organization_id", rec.RequestorOrganizationID,
		"requestee_organization_id", callerOrganizationID,
	)
	return result, nil
}
