package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/jackc/pgx/v5"
)

// UpdateProductFootprint records that the organization hosts footprint
// dataID for the product. The organization is updated first when both its
// name and identifiers are given. Recording the same (product, dataID)
// twice is a no-op. Everything happens in one transaction.
func (s *PostgresStore) UpdateProductFootprint(ctx context.Context, organizationID int64, ev domain.ProductFootprintUpdated) error {
	if ev.ID == nil || ev.ProductNameCompany == nil {
		return domain.Validationf("The id and productNameCompany properties are required.")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if ev.CompanyName != nil && ev.CompanyIDs != nil {
		if err := updateOrganizationTx(ctx, tx, organizationID, *ev.CompanyName, ev.CompanyIDs); err != nil {
			return err
		}
	}

	productID, err := updateProductTx(ctx, tx, organizationID, *ev.ProductNameCompany, ev.ProductIDs)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO product_footprints (data_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (product_id, data_id) DO NOTHING
	`, *ev.ID, productID); err != nil {
		return fmt.Errorf("inserting product footprint: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetProductFootprint resolves a footprint id to its product and owning
// organization, or nil when no organization registered it.
func (s *PostgresStore) GetProductFootprint(ctx context.Context, dataID string) (*domain.ProductFootprint, error) {
	var fp domain.ProductFootprint
	err := s.pool.QueryRow(ctx, `
		SELECT pf.product_footprint_id, pf.data_id, p.product_id, p.product_name,
			   o.organization_id, o.organization_name
		FROM product_footprints pf
		JOIN products p ON p.product_id = pf.product_id
		JOIN organizations o ON o.organization_id = p.organization_id
		WHERE pf.data_id = $1
		ORDER BY pf.product_footprint_id
		LIMIT 1
	`, dataID).Scan(
		&fp.ID, &fp.DataID, &fp.ProductID, &fp.ProductName,
		&fp.OrganizationID, &fp.OrganizationName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying product footprint: %w", err)
	}
	return &fp, nil
}
