//go:build integration

package seed_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/policy"
	"guardian/internal/seed"
	"guardian/pkg/testutil/containers"
)

// PostgresSeedSuite exercises the COPY loader and the Postgres stores it feeds.
type PostgresSeedSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	loader   *seed.PostgresLoader
	dataset  *seed.Dataset
}

func TestPostgresSeedSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSeedSuite))
}

func (s *PostgresSeedSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.loader = seed.NewPostgresLoader(s.postgres.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	d, err := seed.Demo()
	s.Require().NoError(err)
	s.dataset = d
}

func (s *PostgresSeedSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "employee_directory", "software_access_policy", "audit_ledger")
	s.Require().NoError(err)
}

func (s *PostgresSeedSuite) TestLoadFeedsStores() {
	ctx := context.Background()

	res, err := s.loader.Load(ctx, s.dataset)
	s.Require().NoError(err)
	s.Equal(int64(2), res.Employees)
	s.Equal(int64(4), res.Policies)
	s.Equal(int64(1), res.LedgerEntries)

	dir := directory.NewPostgres(s.postgres.DB)
	edna, err := dir.Lookup(ctx, "EDNA.ENG@company.demo")
	s.Require().NoError(err)
	s.Require().NotNil(edna)
	s.Equal("Edna Engineer", edna.Name)

	missing, err := dir.Lookup(ctx, "new.user@company.demo")
	s.Require().NoError(err)
	s.Nil(missing)

	policies := policy.NewPostgres(s.postgres.DB)
	rule, err := policies.Resolve(ctx, "GitHub", "Sales")
	s.Require().NoError(err)
	s.Require().NotNil(rule)
	s.True(rule.RequiresManagerApproval)

	none, err := policies.Resolve(ctx, "github", "Sales")
	s.Require().NoError(err)
	s.Nil(none)

	l := ledger.NewPostgres(s.postgres.DB, ledger.DefaultSeed)
	entry, err := l.Append(ctx, ledger.Draft{
		EmployeeEmail: "sam.sales@company.demo",
		RequestType:   ledger.RequestTypeGrant,
		SoftwareName:  "Salesforce",
		Status:        ledger.StatusApproved,
		Notes:         "Auto-approved per policy.",
	})
	s.Require().NoError(err)
	s.Equal(int64(1002), entry.RequestID)
}

func (s *PostgresSeedSuite) TestReloadKeepsLedger() {
	ctx := context.Background()
	_, err := s.loader.Load(ctx, s.dataset)
	s.Require().NoError(err)

	l := ledger.NewPostgres(s.postgres.DB, ledger.DefaultSeed)
	_, err = l.Append(ctx, ledger.Draft{
		EmployeeEmail: "sam.sales@company.demo",
		RequestType:   ledger.RequestTypeRemove,
		SoftwareName:  "GitHub",
		Status:        ledger.StatusPendingDeprovisioning,
		Notes:         "Removal email sent to manager.",
	})
	s.Require().NoError(err)

	res, err := s.loader.Load(ctx, s.dataset)
	s.Require().NoError(err)
	s.Zero(res.LedgerEntries)

	all, err := l.All(ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}
