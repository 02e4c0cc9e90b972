package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DirectorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	store, err := NewInMemory([]Employee{
		{Email: "sam.sales@company.demo", Name: "Sam Sales", Role: "Sales", ManagerEmail: "sales.manager@company.demo"},
		{Email: "Edna.Eng@Company.demo", Name: "Edna Engineer", Role: "Engineering", ManagerEmail: "eng.manager@company.demo"},
	})
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *DirectorySuite) TestLookup() {
	s.Run("finds employee by exact email", func() {
		employee, err := s.store.Lookup(s.ctx, "sam.sales@company.demo")
		s.Require().NoError(err)
		s.Require().NotNil(employee)
		s.Equal("Sales", employee.Role)
		s.Equal("sales.manager@company.demo", employee.ManagerEmail)
	})

	s.Run("matches case-insensitively in both directions", func() {
		employee, err := s.store.Lookup(s.ctx, "SAM.Sales@COMPANY.demo")
		s.Require().NoError(err)
		s.Require().NotNil(employee)
		s.Equal("Sam Sales", employee.Name)

		employee, err = s.store.Lookup(s.ctx, "edna.eng@company.demo")
		s.Require().NoError(err)
		s.Require().NotNil(employee)
		s.Equal("Edna Engineer", employee.Name)
	})

	s.Run("ignores surrounding whitespace", func() {
		employee, err := s.store.Lookup(s.ctx, "  sam.sales@company.demo ")
		s.Require().NoError(err)
		s.NotNil(employee)
	})

	s.Run("miss returns nil without error", func() {
		employee, err := s.store.Lookup(s.ctx, "new.user@company.demo")
		s.Require().NoError(err)
		s.Nil(employee)
	})

	s.Run("partial email does not match", func() {
		employee, err := s.store.Lookup(s.ctx, "sam.sales")
		s.Require().NoError(err)
		s.Nil(employee)
	})
}

func (s *DirectorySuite) TestLookupReturnsCopy() {
	employee, err := s.store.Lookup(s.ctx, "sam.sales@company.demo")
	s.Require().NoError(err)
	employee.Role = "Admin"

	again, err := s.store.Lookup(s.ctx, "sam.sales@company.demo")
	s.Require().NoError(err)
	s.Equal("Sales", again.Role)
}

func (s *DirectorySuite) TestConstructionRejectsBadRows() {
	s.Run("case-variant duplicate email", func() {
		_, err := NewInMemory([]Employee{
			{Email: "a@company.demo", Name: "A"},
			{Email: "A@Company.Demo", Name: "B"},
		})
		s.Error(err)
	})

	s.Run("blank email", func() {
		_, err := NewInMemory([]Employee{{Email: "  ", Name: "Nobody"}})
		s.Error(err)
	})
}
