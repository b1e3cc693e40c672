package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/jackc/pgx/v5"
)

// UpdateProduct creates the organization's product on first sight and
// replaces its identifiers. It returns the product id.
func (s *PostgresStore) UpdateProduct(ctx context.Context, organizationID int64, name string, urns []string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productID, err := updateProductTx(ctx, tx, organizationID, name, urns)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return productID, nil
}

func updateProductTx(ctx context.Context, tx pgx.Tx, organizationID int64, name string, urns []string) (int64, error) {
	ids, err := domain.ProductIdentifiers(urns)
	if err != nil {
		return 0, err
	}

	// The no-op update makes RETURNING yield the id of an existing row too.
	var productID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO products (product_name, organization_id)
		VALUES ($1, $2)
		ON CONFLICT (organization_id, product_name) DO UPDATE SET product_name = EXCLUDED.product_name
		RETURNING product_id
	`, name, organizationID).Scan(&productID)
	if err != nil {
		return 0, fmt.Errorf("upserting product: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM product_identifiers WHERE product_id = $1`, productID); err != nil {
		return 0, fmt.Errorf("deleting product identifiers: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_identifiers (product_id, type, code)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, productID, id.Type, id.Code); err != nil {
			return 0, fmt.Errorf("inserting product identifier %s: %w", id.Code, err)
		}
	}
	return productID, nil
}
