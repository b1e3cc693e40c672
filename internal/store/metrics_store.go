package store

import (
	"context"
	"fmt"
)

// NodeMetrics holds aggregate counts for the operator dashboard.
type NodeMetrics struct {
	Organizations        int `json:"organizations"`
	OrganizationsWithKey int `json:"organizations_with_public_key"`
	DataSources          int `json:"data_sources"`
	Products             int `json:"products"`
	ProductFootprints    int `json:"product_footprints"`
	PendingContracts     int `json:"pending_contract_requests"`
}

// GetNodeMetrics returns aggregate counts from the database.
func (s *PostgresStore) GetNodeMetrics(ctx context.Context) (*NodeMetrics, error) {
	var m NodeMetrics

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE public_key IS NOT NULL) AS with_key
		FROM organizations
	`).Scan(&m.Organizations, &m.OrganizationsWithKey)
	if err != nil {
		return nil, fmt.Errorf("querying organization metrics: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM data_sources),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM product_footprints),
			(SELECT COUNT(*) FROM requests)
	`).Scan(&m.DataSources, &m.Products, &m.ProductFootprints, &m.PendingContracts)
	if err != nil {
		return nil, fmt.Errorf("querying node metrics: %w", err)
	}

	return &m, nil
}
