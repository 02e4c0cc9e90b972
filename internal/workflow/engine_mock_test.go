package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/notify"
	"guardian/internal/policy"
	"guardian/internal/workflow/mocks"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/sentinel"
)

// EngineOrderingSuite drives the engine against mocks to pin down call order
// and failure translation.
type EngineOrderingSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	directory *mocks.MockDirectory
	policies  *mocks.MockPolicyTable
	ledger    *mocks.MockLedger
	notifier  *mocks.MockNotifier
	locker    *mocks.MockLocker
	engine    *Engine

	sam  *directory.Employee
	step []string
}

func TestEngineOrderingSuite(t *testing.T) {
	suite.Run(t, new(EngineOrderingSuite))
}

func (s *EngineOrderingSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.policies = mocks.NewMockPolicyTable(s.ctrl)
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.locker = mocks.NewMockLocker(s.ctrl)
	s.engine = New(s.directory, s.policies, s.ledger, s.notifier, WithLocker(s.locker))
	s.sam = &directory.Employee{
		Email:        "sam.sales@company.demo",
		Name:         "Sam Sales",
		Role:         "Sales",
		ManagerEmail: "sales.manager@company.demo",
	}
	s.step = nil
}

func (s *EngineOrderingSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EngineOrderingSuite) grantRequest() Request {
	return Request{Intent: IntentGetAccess, EmployeeEmail: s.sam.Email, SoftwareName: "GitHub", ManagerConfirmed: true}
}

func (s *EngineOrderingSuite) expectLock() {
	s.locker.EXPECT().Lock(gomock.Any(), lockKey(s.sam.Email, "GitHub")).
		Return(func() { s.step = append(s.step, "release") }, nil)
}

func (s *EngineOrderingSuite) TestGrantOrdering() {
	entry := &ledger.Entry{RequestID: 1002, Status: ledger.StatusPendingManager}
	gomock.InOrder(
		s.directory.EXPECT().Lookup(gomock.Any(), s.sam.Email).Return(s.sam, nil),
		s.locker.EXPECT().Lock(gomock.Any(), gomock.Any()).
			Return(func() { s.step = append(s.step, "release") }, nil),
		s.ledger.EXPECT().FindActiveDuplicate(gomock.Any(), s.sam.Email, "GitHub").Return(nil, nil),
		s.policies.EXPECT().Resolve(gomock.Any(), "GitHub", "Sales").Return(&policy.Policy{
			SoftwareName: "GitHub", Role: "Sales", RequiresManagerApproval: true, ApprovalContactEmail: "it-support@company.demo",
		}, nil),
		s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, d ledger.Draft) (*ledger.Entry, error) {
				s.Equal(ledger.StatusPendingManager, d.Status)
				s.step = append(s.step, "append")
				return entry, nil
			}),
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg notify.Message) error {
				s.step = append(s.step, "notify")
				return nil
			}),
	)

	res, err := s.engine.Decide(context.Background(), s.grantRequest())
	s.Require().NoError(err)
	s.Equal(OutcomePendingManager, res.Outcome)
	s.Equal([]string{"append", "release", "notify"}, s.step)
}

func (s *EngineOrderingSuite) TestRemoveSkipsDuplicateAndPolicy() {
	s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(s.sam, nil)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return(&ledger.Entry{RequestID: 7, Status: ledger.StatusPendingDeprovisioning}, nil)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	res, err := s.engine.Decide(context.Background(), Request{
		Intent: IntentRemoveAccess, EmployeeEmail: s.sam.Email, SoftwareName: "GitHub",
	})
	s.Require().NoError(err)
	s.Equal(OutcomePendingDeprovisioning, res.Outcome)
}

func (s *EngineOrderingSuite) TestLedgerFailures() {
	cases := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"unavailable", sentinel.ErrUnavailable, dErrors.CodeUnavailable},
		{"write conflict", sentinel.ErrConflict, dErrors.CodeConflict},
		{"deadline", context.DeadlineExceeded, dErrors.CodeTimeout},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(s.sam, nil)
			s.expectLock()
			s.ledger.EXPECT().FindActiveDuplicate(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
			s.policies.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
			s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			// no Notify expected: nothing was recorded

			res, err := s.engine.Decide(context.Background(), s.grantRequest())
			s.Require().Error(err)
			s.Nil(res)
			s.True(dErrors.HasCode(err, tc.code))
			s.ErrorIs(err, tc.err)
		})
	}
}

func (s *EngineOrderingSuite) TestNotFoundAppendFailureSkipsNotification() {
	s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, nil)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)

	_, err := s.engine.Decide(context.Background(), Request{Intent: IntentGetAccess, EmployeeEmail: "ghost@company.demo"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *EngineOrderingSuite) TestReadFailures() {
	s.Run("directory error", func() {
		s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrUnavailable)

		_, err := s.engine.Decide(context.Background(), s.grantRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("duplicate lookup error stops before policy", func() {
		s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(s.sam, nil)
		s.expectLock()
		s.ledger.EXPECT().FindActiveDuplicate(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("io"))

		_, err := s.engine.Decide(context.Background(), s.grantRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("policy error", func() {
		s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(s.sam, nil)
		s.expectLock()
		s.ledger.EXPECT().FindActiveDuplicate(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		s.policies.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("io"))

		_, err := s.engine.Decide(context.Background(), s.grantRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("lock error", func() {
		s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(s.sam, nil)
		s.locker.EXPECT().Lock(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))

		_, err := s.engine.Decide(context.Background(), s.grantRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *EngineOrderingSuite) TestNotificationIgnoresCallerCancellation() {
	ctx, cancel := context.WithCancel(context.Background())

	s.directory.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(s.sam, nil)
	s.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, ledger.Draft) (*ledger.Entry, error) {
			cancel()
			return &ledger.Entry{RequestID: 9, Status: ledger.StatusPendingDeprovisioning}, nil
		})
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(nctx context.Context, _ notify.Message) error {
			s.NoError(nctx.Err())
			deadline, ok := nctx.Deadline()
			s.True(ok)
			s.WithinDuration(time.Now().Add(defaultNotifyTimeout), deadline, 5*time.Second)
			return nil
		})

	res, err := s.engine.Decide(ctx, Request{Intent: IntentRemoveAccess, EmployeeEmail: s.sam.Email, SoftwareName: "GitHub"})
	s.Require().NoError(err)
	s.True(res.Notified)
}
