package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `request_id, request_type, event_id, source,
	requestor_organization_id, requestee_organization_id, updated_time`

func scanRequest(row pgx.Row) (*domain.CorrelationRecord, error) {
	var rec domain.CorrelationRecord
	err := row.Scan(
		&rec.RequestID, &rec.RequestType, &rec.EventID, &rec.Source,
		&rec.RequestorOrganizationID, &rec.RequesteeOrganizationID, &rec.UpdatedTime,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// HasContractRequest reports whether a live record exists for the event and requestee.
func (s *PostgresStore) HasContractRequest(ctx context.Context, eventID, source string, requesteeOrganizationID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM requests
			WHERE event_id = $1 AND source = $2 AND requestee_organization_id = $3
		)
	`, eventID, source, requesteeOrganizationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking contract request: %w", err)
	}
	return exists, nil
}

// CreateContractRequest records a forwarded contract request. A record for
// the same event, source and requestee yields domain.ErrDuplicateRequest.
func (s *PostgresStore) CreateContractRequest(ctx context.Context, rec domain.CorrelationRecord) (*domain.CorrelationRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if rec.RequestType == "" {
		rec.RequestType = domain.RequestTypeContract
	}

	created, err := scanRequest(tx.QueryRow(ctx, `
		INSERT INTO requests (request_type, event_id, source, requestor_organization_id, requestee_organization_id, updated_time)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (event_id, source, requestee_organization_id) DO NOTHING
		RETURNING `+requestColumns,
		rec.RequestType, rec.EventID, rec.Source, rec.RequestorOrganizationID, rec.RequesteeOrganizationID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRequest
		}
		return nil, fmt.Errorf("inserting contract request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return created, nil
}

// FindContractRequest returns the live record a reply from the requestee
// refers to, or nil when there is none.
func (s *PostgresStore) FindContractRequest(ctx context.Context, eventID, source string, requesteeOrganizationID int64) (*domain.CorrelationRecord, error) {
	rec, err := scanRequest(s.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE event_id = $1 AND source = $2 AND requestee_organization_id = $3
	`, eventID, source, requesteeOrganizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying contract request: %w", err)
	}
	return rec, nil
}

// DeleteContractRequest disposes of a record once its reply was delivered.
func (s *PostgresStore) DeleteContractRequest(ctx context.Context, requestID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM requests WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("deleting contract request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListContractRequests returns live records the organization sent or received.
func (s *PostgresStore) ListContractRequests(ctx context.Context, organizationID int64, limit int) ([]domain.CorrelationRecord, error) {
	query := `SELECT ` + requestColumns + ` FROM requests
		WHERE requestor_organization_id = $1 OR requestee_organization_id = $1
		ORDER BY updated_time DESC`
	args := []interface{}{organizationID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying contract requests: %w", err)
	}
	defer rows.Close()

	records := []domain.CorrelationRecord{}
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contract request: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contract requests: %w", err)
	}
	return records, nil
}
