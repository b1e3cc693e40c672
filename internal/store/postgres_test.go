package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/domain"
)

// These tests need a disposable database: TEST_DATABASE_URL=postgres://...
func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn, credential.NewVault("test-passphrase"))
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.RunMigrations(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE organizations RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncating: %v", err)
	}
	return s
}

func createOrg(t *testing.T, s *PostgresStore, name string) *domain.Organization {
	t.Helper()
	org, err := s.CreateOrganization(context.Background(), name)
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return org
}

func TestContractRequest_Lifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	a := createOrg(t, s, "A")
	b := createOrg(t, s, "B")
	c := createOrg(t, s, "C")

	rec := domain.CorrelationRecord{
		EventID: "e1", Source: "https://a.example/2/events",
		RequestorOrganizationID: a.ID, RequesteeOrganizationID: b.ID,
	}
	created, err := s.CreateContractRequest(ctx, rec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.RequestType != domain.RequestTypeContract {
		t.Errorf("expected type Contract, got %s", created.RequestType)
	}

	if _, err := s.CreateContractRequest(ctx, rec); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	// same event to another requestee is its own leg
	rec.RequesteeOrganizationID = c.ID
	if _, err := s.CreateContractRequest(ctx, rec); err != nil {
		t.Fatalf("create second leg: %v", err)
	}

	exists, err := s.HasContractRequest(ctx, "e1", "https://a.example/2/events", b.ID)
	if err != nil || !exists {
		t.Fatalf("expected record to exist, got %v %v", exists, err)
	}

	found, err := s.FindContractRequest(ctx, "e1", "https://a.example/2/events", b.ID)
	if err != nil || found == nil {
		t.Fatalf("find: %v %v", found, err)
	}
	if found.RequestID != created.RequestID {
		t.Errorf("found record %d, want %d", found.RequestID, created.RequestID)
	}

	if err := s.DeleteContractRequest(ctx, found.RequestID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if found, _ := s.FindContractRequest(ctx, "e1", "https://a.example/2/events", b.ID); found != nil {
		t.Error("record still present after delete")
	}
	if other, _ := s.FindContractRequest(ctx, "e1", "https://a.example/2/events", c.ID); other == nil {
		t.Error("other leg's record must stay live")
	}

	list, err := s.ListContractRequests(ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 live record for requestor, got %d", len(list))
	}
}

func TestUpdateOrganization_ReplacesIdentifiers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	org := createOrg(t, s, "Old Name")

	if err := s.UpdateOrganization(ctx, org.ID, "Acme Corp", []string{"urn:lei:AAA", "urn:uuid:1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateOrganization(ctx, org.ID, "Acme Corp", []string{"urn:lei:BBB"}); err != nil {
		t.Fatalf("second update: %v", err)
	}

	found, err := s.SearchOrganizations(ctx, nil, []string{"urn:lei:BBB"})
	if err != nil || len(found) != 1 || found[0].Name != "Acme Corp" {
		t.Fatalf("search by new id: %v %v", found, err)
	}
	if old, _ := s.SearchOrganizations(ctx, nil, []string{"urn:lei:AAA"}); len(old) != 0 {
		t.Error("old identifiers should be gone")
	}

	name := "acme"
	byName, err := s.SearchOrganizations(ctx, &name, nil)
	if err != nil || len(byName) != 1 {
		t.Errorf("search by name: %v %v", byName, err)
	}

	if _, err := s.SearchOrganizations(ctx, nil, []string{"urn:unknown:1"}); !domain.IsValidation(err) {
		t.Errorf("expected ValidationError for unknown URN, got %v", err)
	}
}

func TestUpdateOrganization_UnrecognizedIDsRollBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	org := createOrg(t, s, "Keep")

	err := s.UpdateOrganization(ctx, org.ID, "Renamed", []string{"urn:unknown:1"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got, _ := s.GetOrganization(ctx, org.ID)
	if got.Name != "Keep" {
		t.Errorf("rename must roll back, got %q", got.Name)
	}
}

func TestUpdateOrganization_UnknownOrganization(t *testing.T) {
	s := setupTestStore(t)
	err := s.UpdateOrganization(context.Background(), 9999, "X", []string{"urn:lei:X"})
	if !domain.IsAccess(err) {
		t.Errorf("expected AccessError, got %v", err)
	}
}

func TestUpdateProductFootprint_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	org := createOrg(t, s, "A")

	id, company, product := "fp-1", "A", "Widget"
	ev := domain.ProductFootprintUpdated{
		ID: &id, CompanyName: &company, CompanyIDs: []string{"urn:lei:A"},
		ProductNameCompany: &product, ProductIDs: []string{"urn:uuid:w"},
	}

	for i := 0; i < 2; i++ {
		if err := s.UpdateProductFootprint(ctx, org.ID, ev); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	fp, err := s.GetProductFootprint(ctx, "fp-1")
	if err != nil || fp == nil {
		t.Fatalf("get footprint: %v %v", fp, err)
	}
	if fp.OrganizationID != org.ID || fp.ProductName != "Widget" {
		t.Errorf("unexpected footprint %+v", fp)
	}

	var n int
	s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product_footprints`).Scan(&n)
	if n != 1 {
		t.Errorf("expected one footprint row, got %d", n)
	}

	if missing, _ := s.GetProductFootprint(ctx, "nope"); missing != nil {
		t.Error("expected nil for unknown footprint")
	}
}

func TestDataSource_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	org := createOrg(t, s, "B")

	if ds, _ := s.RestoreDataSource(ctx, org.ID, domain.DataSourceTypePathfinder); ds != nil {
		t.Fatal("expected no data source yet")
	}

	endpoints := []domain.Endpoint{
		{Type: domain.EndpointAuthenticate, URL: "https://b.example/auth/token"},
		{Type: domain.EndpointUpdateEvent, URL: "https://b.example/2/events"},
	}
	if _, err := s.UpdateDataSource(ctx, org.ID, "user", "Passw0rd!", endpoints); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.UpdateDataSource(ctx, org.ID, "user2", "Passw0rd?", endpoints[1:]); err != nil {
		t.Fatalf("second update: %v", err)
	}

	ds, err := s.RestoreDataSource(ctx, org.ID, domain.DataSourceTypePathfinder)
	if err != nil || ds == nil {
		t.Fatalf("restore: %v %v", ds, err)
	}
	if ds.UserName != "user2" || ds.Password != "Passw0rd?" {
		t.Errorf("credentials not replaced: %q %q", ds.UserName, ds.Password)
	}
	if len(ds.Endpoints) != 1 || ds.Usable() {
		t.Errorf("expected only the UpdateEvent endpoint, got %v", ds.Endpoints)
	}

	deleted, err := s.DeleteDataSource(ctx, org.ID)
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
}
