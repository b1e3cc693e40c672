package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CreateOrganization registers a new organization on the node.
func (s *PostgresStore) CreateOrganization(ctx context.Context, name string) (*domain.Organization, error) {
	var org domain.Organization
	err := s.pool.QueryRow(ctx, `
		INSERT INTO organizations (organization_name)
		VALUES ($1)
		RETURNING organization_id, organization_name, public_key, created_at
	`, name).Scan(&org.ID, &org.Name, &org.PublicKey, &org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting organization: %w", err)
	}
	return &org, nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, organizationID int64) (*domain.Organization, error) {
	var org domain.Organization
	err := s.pool.QueryRow(ctx, `
		SELECT organization_id, organization_name, public_key, created_at
		FROM organizations WHERE organization_id = $1
	`, organizationID).Scan(&org.ID, &org.Name, &org.PublicKey, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying organization: %w", err)
	}
	return &org, nil
}

// SearchOrganizations finds organizations by identifier URNs or, when no
// URNs are given, by a substring of their name. Identifiers win over the
// name. Unrecognized URNs fail with a ValidationError.
func (s *PostgresStore) SearchOrganizations(ctx context.Context, name *string, urns []string) ([]domain.Organization, error) {
	var (
		rows pgx.Rows
		err  error
	)

	switch {
	case len(urns) > 0:
		ids, convErr := domain.CompanyIdentifiers(urns)
		if convErr != nil {
			return nil, convErr
		}
		types := make([]string, len(ids))
		codes := make([]string, len(ids))
		for i, id := range ids {
			types[i], codes[i] = id.Type, id.Code
		}
		rows, err = s.pool.Query(ctx, `
			SELECT DISTINCT o.organization_id, o.organization_name, o.public_key, o.created_at
			FROM organization_identifiers oi
			JOIN organizations o ON o.organization_id = oi.organization_id
			JOIN UNNEST($1::text[], $2::text[]) AS want(type, code)
			  ON want.type = oi.type AND want.code = oi.code
			ORDER BY o.organization_id
		`, types, codes)

	case name != nil && *name != "":
		rows, err = s.pool.Query(ctx, `
			SELECT organization_id, organization_name, public_key, created_at
			FROM organizations
			WHERE organization_name ILIKE $1
			ORDER BY organization_id
		`, likePattern(*name))

	default:
		return []domain.Organization{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searching organizations: %w", err)
	}
	defer rows.Close()

	orgs := []domain.Organization{}
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.PublicKey, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organizations: %w", err)
	}
	return orgs, nil
}

// UpdateOrganization renames the organization if needed and replaces its
// identifiers, all in one transaction.
func (s *PostgresStore) UpdateOrganization(ctx context.Context, organizationID int64, name string, urns []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := updateOrganizationTx(ctx, tx, organizationID, name, urns); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func updateOrganizationTx(ctx context.Context, tx pgx.Tx, organizationID int64, name string, urns []string) error {
	var current string
	err := tx.QueryRow(ctx, `
		SELECT organization_name FROM organizations WHERE organization_id = $1 FOR UPDATE
	`, organizationID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.AccessError{Message: "Invalid access."}
		}
		return fmt.Errorf("querying organization: %w", err)
	}

	if name != current {
		if _, err := tx.Exec(ctx, `
			UPDATE organizations SET organization_name = $1 WHERE organization_id = $2
		`, name, organizationID); err != nil {
			return fmt.Errorf("renaming organization: %w", err)
		}
	}

	ids, err := domain.CompanyIdentifiers(urns)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM organization_identifiers WHERE organization_id = $1`, organizationID); err != nil {
		return fmt.Errorf("deleting organization identifiers: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `
			INSERT INTO organization_identifiers (organization_id, type, code)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, organizationID, id.Type, id.Code); err != nil {
			return fmt.Errorf("inserting organization identifier %s: %w", id.Code, err)
		}
	}
	return nil
}

// SetPublicKey stores the PEM public key counterparts use to verify the
// organization's signed replies.
func (s *PostgresStore) SetPublicKey(ctx context.Context, organizationID int64, publicKey string) error {
	if publicKey == "" {
		return domain.Validationf("The publicKey property is required.")
	}
	return s.updatePublicKey(ctx, organizationID, &publicKey)
}

func (s *PostgresStore) ClearPublicKey(ctx context.Context, organizationID int64) error {
	return s.updatePublicKey(ctx, organizationID, nil)
}

func (s *PostgresStore) updatePublicKey(ctx context.Context, organizationID int64, publicKey *string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE organizations SET public_key = $1 WHERE organization_id = $2
	`, publicKey, organizationID)
	if err != nil {
		return fmt.Errorf("updating public key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Statef("Invalid state.")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
