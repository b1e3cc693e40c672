package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/jackc/pgx/v5"
)

// RestoreDataSource loads the organization's data source of the given type
// with its password decrypted, or nil when none is registered.
func (s *PostgresStore) RestoreDataSource(ctx context.Context, organizationID int64, dataSourceType string) (*domain.DataSource, error) {
	var (
		ds       domain.DataSource
		userName *string
		password []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT data_source_id, data_source_type, user_name, password, organization_id
		FROM data_sources
		WHERE organization_id = $1 AND data_source_type = $2
	`, organizationID, dataSourceType).Scan(
		&ds.DataSourceID, &ds.Type, &userName, &password, &ds.OrganizationID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying data source: %w", err)
	}

	if userName != nil {
		ds.UserName = *userName
	}
	if len(password) > 0 {
		if s.vault == nil {
			return nil, fmt.Errorf("decrypting data source password: no vault configured")
		}
		if ds.Password, err = s.vault.Decrypt(password, organizationID); err != nil {
			return nil, fmt.Errorf("decrypting data source password: %w", err)
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT type, url FROM endpoints
		WHERE data_source_id = $1
		ORDER BY endpoint_id
	`, ds.DataSourceID)
	if err != nil {
		return nil, fmt.Errorf("querying endpoints: %w", err)
	}
	defer rows.Close()

	ds.Endpoints = []domain.Endpoint{}
	for rows.Next() {
		var ep domain.Endpoint
		if err := rows.Scan(&ep.Type, &ep.URL); err != nil {
			return nil, fmt.Errorf("scanning endpoint: %w", err)
		}
		ds.Endpoints = append(ds.Endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoints: %w", err)
	}

	return &ds, nil
}

// UpdateDataSource creates or replaces the organization's Pathfinder data
// source and its endpoints in one transaction. The password is stored
// encrypted.
func (s *PostgresStore) UpdateDataSource(ctx context.Context, organizationID int64, userName, password string, endpoints []domain.Endpoint) (int64, error) {
	if s.vault == nil {
		return 0, fmt.Errorf("encrypting data source password: no vault configured")
	}
	encrypted, err := s.vault.Encrypt(password, organizationID)
	if err != nil {
		return 0, fmt.Errorf("encrypting data source password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var dataSourceID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO data_sources (data_source_type, user_name, password, organization_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, data_source_type)
		DO UPDATE SET user_name = EXCLUDED.user_name, password = EXCLUDED.password
		RETURNING data_source_id
	`, domain.DataSourceTypePathfinder, userName, encrypted, organizationID).Scan(&dataSourceID)
	if err != nil {
		return 0, fmt.Errorf("upserting data source: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM endpoints WHERE data_source_id = $1`, dataSourceID); err != nil {
		return 0, fmt.Errorf("deleting endpoints: %w", err)
	}
	for _, ep := range endpoints {
		if _, err := tx.Exec(ctx, `
			INSERT INTO endpoints (data_source_id, type, url) VALUES ($1, $2, $3)
		`, dataSourceID, ep.Type, ep.URL); err != nil {
			return 0, fmt.Errorf("inserting %s endpoint: %w", ep.Type, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return dataSourceID, nil
}

// DeleteDataSource removes the organization's data source. It reports
// whether anything was deleted.
func (s *PostgresStore) DeleteDataSource(ctx context.Context, organizationID int64) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM data_sources WHERE organization_id = $1`, organizationID)
	if err != nil {
		return false, fmt.Errorf("deleting data source: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
