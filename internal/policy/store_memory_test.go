package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PolicySuite struct {
	suite.Suite
	table *InMemory
	ctx   context.Context
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	table, err := NewInMemory([]Policy{
		{SoftwareName: "Salesforce", Role: "Sales", RequiresManagerApproval: false, ApprovalContactEmail: "it-support@company.demo"},
		{SoftwareName: "GitHub", Role: "Sales", RequiresManagerApproval: true, ApprovalContactEmail: "it-support@company.demo"},
		{SoftwareName: "GitHub", Role: "Engineering", RequiresManagerApproval: false, ApprovalContactEmail: "it-support@company.demo"},
	})
	s.Require().NoError(err)
	s.table = table
	s.ctx = context.Background()
}

func (s *PolicySuite) TestResolve() {
	s.Run("returns rule for the exact pair", func() {
		p, err := s.table.Resolve(s.ctx, "GitHub", "Sales")
		s.Require().NoError(err)
		s.Require().NotNil(p)
		s.True(p.RequiresManagerApproval)
	})

	s.Run("same software differs per role", func() {
		p, err := s.table.Resolve(s.ctx, "GitHub", "Engineering")
		s.Require().NoError(err)
		s.Require().NotNil(p)
		s.False(p.RequiresManagerApproval)
	})

	s.Run("match is case-sensitive on software and role", func() {
		p, err := s.table.Resolve(s.ctx, "github", "Sales")
		s.Require().NoError(err)
		s.Nil(p)

		p, err = s.table.Resolve(s.ctx, "GitHub", "sales")
		s.Require().NoError(err)
		s.Nil(p)
	})

	s.Run("unknown pair is a nil result", func() {
		p, err := s.table.Resolve(s.ctx, "Figma", "Sales")
		s.Require().NoError(err)
		s.Nil(p)
	})
}

func (s *PolicySuite) TestConstructionRejectsDuplicates() {
	_, err := NewInMemory([]Policy{
		{SoftwareName: "Figma", Role: "Design"},
		{SoftwareName: "Figma", Role: "Design"},
	})
	s.Error(err)
}

func TestParseApprovalFlag(t *testing.T) {
	for raw, want := range map[string]bool{"Yes": true, "yes": true, " No ": false, "NO": false} {
		got, err := ParseApprovalFlag(raw)
		assert.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseApprovalFlag("maybe")
	assert.Error(t, err)
	assert.Equal(t, "Yes", ApprovalFlag(true))
	assert.Equal(t, "No", ApprovalFlag(false))
}
