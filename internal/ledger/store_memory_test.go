package ledger

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"guardian/pkg/platform/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	ledger *InMemory
	ctx    context.Context
	now    time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s.now = time.Date(2025, 11, 15, 12, 0, 0, 0, loc)
	s.ledger = NewInMemory(DefaultSeed, WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *LedgerSuite) grant(email, software string, status Status) *Entry {
	entry, err := s.ledger.Append(s.ctx, Draft{
		EmployeeEmail: email,
		RequestType:   RequestTypeGrant,
		SoftwareName:  software,
		Status:        status,
		Notes:         "test",
	})
	s.Require().NoError(err)
	return entry
}

func (s *LedgerSuite) TestAppend() {
	s.Run("assigns ids from the seed in append order", func() {
		first := s.grant("sam.sales@company.demo", "Salesforce", StatusApproved)
		second := s.grant("sam.sales@company.demo", "GitHub", StatusPendingManager)

		s.Equal(int64(1001), first.RequestID)
		s.Equal(int64(1002), second.RequestID)
	})

	s.Run("stamps append time in UTC", func() {
		entry := s.grant("edna.eng@company.demo", "Figma", StatusRejected)
		s.Equal(time.UTC, entry.Timestamp.Location())
		s.True(entry.Timestamp.Equal(s.now))
	})

	s.Run("rejects invalid drafts without consuming an id", func() {
		before, err := s.ledger.All(s.ctx)
		s.Require().NoError(err)

		_, err = s.ledger.Append(s.ctx, Draft{EmployeeEmail: "x@company.demo", RequestType: "Upgrade", SoftwareName: "X", Status: StatusApproved})
		s.Error(err)
		_, err = s.ledger.Append(s.ctx, Draft{EmployeeEmail: "x@company.demo", RequestType: RequestTypeGrant, Status: StatusApproved})
		s.Error(err)

		next := s.grant("x@company.demo", "X", StatusApproved)
		s.Equal(before[len(before)-1].RequestID+1, next.RequestID)
	})

	s.Run("cancelled context appends nothing", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		before, _ := s.ledger.All(s.ctx)

		_, err := s.ledger.Append(ctx, Draft{EmployeeEmail: "x@company.demo", RequestType: RequestTypeGrant, SoftwareName: "X", Status: StatusApproved})
		s.ErrorIs(err, context.Canceled)

		after, _ := s.ledger.All(s.ctx)
		s.Len(after, len(before))
	})
}

func (s *LedgerSuite) TestCustomSeed() {
	l := NewInMemory(1)
	entry, err := l.Append(s.ctx, Draft{EmployeeEmail: "a@company.demo", RequestType: RequestTypeError, SoftwareName: NoSoftware, Status: StatusErrorUserNotFound})
	s.Require().NoError(err)
	s.Equal(int64(1), entry.RequestID)
}

func (s *LedgerSuite) TestFindActiveDuplicate() {
	s.Run("no history returns nil", func() {
		found, err := s.ledger.FindActiveDuplicate(s.ctx, "sam.sales@company.demo", "Figma")
		s.Require().NoError(err)
		s.Nil(found)
	})

	s.Run("rejected and not-found history does not block", func() {
		s.grant("sam.sales@company.demo", "Figma", StatusRejected)
		found, err := s.ledger.FindActiveDuplicate(s.ctx, "sam.sales@company.demo", "Figma")
		s.Require().NoError(err)
		s.Nil(found)
	})

	s.Run("active entry is found with case-insensitive email", func() {
		pending := s.grant("Edna.Eng@company.demo", "Figma", StatusPendingManager)
		found, err := s.ledger.FindActiveDuplicate(s.ctx, "edna.eng@COMPANY.demo", "Figma")
		s.Require().NoError(err)
		s.Require().NotNil(found)
		s.Equal(pending.RequestID, found.RequestID)
	})

	s.Run("software name must match exactly", func() {
		found, err := s.ledger.FindActiveDuplicate(s.ctx, "edna.eng@company.demo", "figma")
		s.Require().NoError(err)
		s.Nil(found)
	})

	s.Run("most recent active entry wins", func() {
		s.grant("sam.sales@company.demo", "GitHub", StatusPendingManager)
		s.grant("sam.sales@company.demo", "GitHub", StatusRejected)
		latest := s.grant("sam.sales@company.demo", "GitHub", StatusApproved)

		found, err := s.ledger.FindActiveDuplicate(s.ctx, "sam.sales@company.demo", "GitHub")
		s.Require().NoError(err)
		s.Require().NotNil(found)
		s.Equal(latest.RequestID, found.RequestID)
		s.Equal(StatusApproved, found.Status)
	})

	s.Run("removal requests count as active", func() {
		_, err := s.ledger.Append(s.ctx, Draft{
			EmployeeEmail: "sam.sales@company.demo",
			RequestType:   RequestTypeRemove,
			SoftwareName:  "Slack",
			Status:        StatusPendingDeprovisioning,
		})
		s.Require().NoError(err)

		found, err := s.ledger.FindActiveDuplicate(s.ctx, "sam.sales@company.demo", "Slack")
		s.Require().NoError(err)
		s.Require().NotNil(found)
		s.Equal(StatusPendingDeprovisioning, found.Status)
	})
}

func (s *LedgerSuite) TestAllReturnsCopy() {
	s.grant("sam.sales@company.demo", "Salesforce", StatusApproved)
	entries, err := s.ledger.All(s.ctx)
	s.Require().NoError(err)
	entries[0].Status = StatusRejected

	again, err := s.ledger.All(s.ctx)
	s.Require().NoError(err)
	s.Equal(StatusApproved, again[0].Status)
}

func (s *LedgerSuite) TestImport() {
	history := []Entry{{
		RequestID:     1001,
		Timestamp:     time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC),
		EmployeeEmail: "edna.eng@company.demo",
		RequestType:   RequestTypeGrant,
		SoftwareName:  "Figma",
		Status:        StatusPendingManager,
		Notes:         "Waiting for manager.",
	}}

	s.Run("keeps ids and continues after the last one", func() {
		s.Require().NoError(s.ledger.Import(s.ctx, history))
		next := s.grant("sam.sales@company.demo", "Salesforce", StatusApproved)
		s.Equal(int64(1002), next.RequestID)

		dup, err := s.ledger.FindActiveDuplicate(s.ctx, "EDNA.ENG@company.demo", "Figma")
		s.Require().NoError(err)
		s.Require().NotNil(dup)
		s.Equal(int64(1001), dup.RequestID)
		s.Equal(history[0].Timestamp, dup.Timestamp)
	})

	s.Run("refuses a non-empty ledger", func() {
		s.SetupTest()
		s.grant("sam.sales@company.demo", "Salesforce", StatusApproved)
		err := s.ledger.Import(s.ctx, history)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("rejects out of order ids", func() {
		s.SetupTest()
		bad := []Entry{history[0], history[0]}
		s.Require().Error(s.ledger.Import(s.ctx, bad))
		all, err := s.ledger.All(s.ctx)
		s.Require().NoError(err)
		s.Empty(all)
	})

	s.Run("ids below the seed keep the seed", func() {
		s.SetupTest()
		old := history[0]
		old.RequestID = 5
		s.Require().NoError(s.ledger.Import(s.ctx, []Entry{old}))
		s.Equal(DefaultSeed, s.grant("a@b.c", "X", StatusApproved).RequestID)
	})
}

// TestConcurrentAppends verifies ids stay distinct and ordered under contention.
func (s *LedgerSuite) TestConcurrentAppends() {
	const goroutines = 64
	const perGoroutine = 25

	var wg sync.WaitGroup
	ids := make(chan int64, goroutines*perGoroutine)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				entry, err := s.ledger.Append(s.ctx, Draft{
					EmployeeEmail: "load@company.demo",
					RequestType:   RequestTypeGrant,
					SoftwareName:  "Load",
					Status:        StatusRejected,
				})
				if err != nil {
					s.Fail(err.Error())
					return
				}
				ids <- entry.RequestID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	var collected []int64
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
		collected = append(collected, id)
	}
	s.Len(collected, goroutines*perGoroutine)

	sort.Slice(collected, func(i, j int) bool { return collected[i] < collected[j] })
	s.Equal(DefaultSeed, collected[0])
	s.Equal(DefaultSeed+int64(len(collected))-1, collected[len(collected)-1])

	entries, err := s.ledger.All(s.ctx)
	s.Require().NoError(err)
	for i := 1; i < len(entries); i++ {
		s.Less(entries[i-1].RequestID, entries[i].RequestID)
	}
}

func TestMetricsCountAppends(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	l := NewInMemory(DefaultSeed, WithMetrics(m))

	_, err := l.Append(context.Background(), Draft{EmployeeEmail: "a@company.demo", RequestType: RequestTypeGrant, SoftwareName: "X", Status: StatusApproved})
	assert.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Appended.WithLabelValues(string(StatusApproved))))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.IncAppended(StatusApproved) })
}

func TestParseHelpers(t *testing.T) {
	status, err := ParseStatus("Pending Manager")
	assert.NoError(t, err)
	assert.True(t, status.IsActive())
	assert.False(t, StatusRejected.IsActive())
	assert.False(t, StatusErrorUserNotFound.IsActive())

	_, err = ParseStatus("pending manager")
	assert.Error(t, err)

	_, err = ParseRequestType("Revoke")
	assert.Error(t, err)
}
