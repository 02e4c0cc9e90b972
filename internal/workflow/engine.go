// Package workflow turns a structured access request into exactly one governed
// outcome.
//
// Each Decide call identifies the employee, then for GetAccess checks the ledger
// for an active duplicate and resolves policy, appends one ledger entry and
// sends at most one notification. The entry is appended before the
// notification, so a failed send never loses or repeats a decision.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"guardian/internal/directory"
	"guardian/internal/ledger"
	"guardian/internal/notify"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/requestcontext"
)

const (
	tracerName = "guardian/internal/workflow"

	defaultITSupportEmail    = "it-support@company.demo"
	defaultHROnboardingEmail = "hr-onboarding@company.demo"
	defaultNotifyTimeout     = time.Minute
)

// Engine orchestrates the directory, policy table, ledger and notifier. It holds
// no per-request state; everything it decides comes from the request and the
// current store contents.
type Engine struct {
	directory Directory
	policies  PolicyTable
	ledger    Ledger
	notifier  Notifier
	locker    Locker

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	itSupportEmail    string
	hrOnboardingEmail string
	notifyTimeout     time.Duration
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLocker replaces the default in-process locker, e.g. with a RedisLocker
// when several replicas share one ledger.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithRecipients sets the fixed IT support and HR onboarding addresses.
func WithRecipients(itSupport, hrOnboarding string) Option {
	return func(e *Engine) {
		if itSupport != "" {
			e.itSupportEmail = itSupport
		}
		if hrOnboarding != "" {
			e.hrOnboardingEmail = hrOnboarding
		}
	}
}

// WithNotifyTimeout bounds a notification attempt once its decision is recorded.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyTimeout = d
		}
	}
}

// New constructs an Engine.
func New(dir Directory, policies PolicyTable, l Ledger, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		directory:         dir,
		policies:          policies,
		ledger:            l,
		notifier:          notifier,
		itSupportEmail:    defaultITSupportEmail,
		hrOnboardingEmail: defaultHROnboardingEmail,
		notifyTimeout:     defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.locker == nil {
		e.locker = NewShardedLocker()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// Decide runs one request to a terminal outcome.
//
// Business outcomes, including not-found, rejection, duplicate and awaiting
// confirmation, are returned as a Result. An error means nothing could be
// decided or the decision could not be recorded.
func (e *Engine) Decide(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	req.Normalize()

	ctx, span := e.tracer.Start(ctx, "workflow.Decide", trace.WithAttributes(
		attribute.String("workflow.intent", string(req.Intent)),
		attribute.String("workflow.software", req.SoftwareName),
	))
	defer func() {
		e.metrics.ObserveDecideLatency(time.Since(start))
		if err != nil {
			code := string(dErrors.CodeOf(err))
			e.metrics.IncrementFailure(code)
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
		} else {
			e.metrics.IncrementDecision(req.Intent, res.Outcome)
			span.SetAttributes(
				attribute.String("workflow.outcome", string(res.Outcome)),
				attribute.Bool("workflow.delivery_degraded", res.DeliveryDegraded),
			)
			e.logger.InfoContext(ctx, "access request decided",
				"request_id", requestcontext.RequestID(ctx),
				"employee_email", req.EmployeeEmail,
				"software", req.SoftwareName,
				"intent", req.Intent,
				"outcome", res.Outcome,
				"request_ledger_id", ledgerID(res.Entry),
			)
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	employee, err := e.directory.Lookup(ctx, req.EmployeeEmail)
	if err != nil {
		return nil, e.storeError(ctx, err, "directory lookup failed")
	}
	if employee == nil {
		return e.employeeNotFound(ctx, req)
	}
	if req.SoftwareName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "software name is required")
	}

	if req.Intent == IntentRemoveAccess {
		return e.removeAccess(ctx, req, employee)
	}
	return e.getAccess(ctx, req, employee)
}

// employeeNotFound records the unknown email as given and flags it to IT and HR.
func (e *Engine) employeeNotFound(ctx context.Context, req Request) (*Result, error) {
	entry, err := e.record(ctx, ledger.Draft{
		EmployeeEmail: req.EmployeeEmail,
		RequestType:   ledger.RequestTypeError,
		SoftwareName:  ledger.NoSoftware,
		Status:        ledger.StatusErrorUserNotFound,
		Notes:         notesUserNotFound,
	})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Outcome: OutcomeEmployeeNotFound,
		Status:  entry.Status,
		Entry:   entry,
		Message: msgNotFound,
	}
	e.dispatch(ctx, res, notify.Message{
		To:      e.itSupportEmail,
		Cc:      e.hrOnboardingEmail,
		Subject: subjectUnknownUser,
		Body:    bodyUnknownUser(req.EmployeeEmail),
	})
	return res, nil
}

// getAccess holds the (employee, software) lock from the duplicate check
// through the append, so two concurrent identical requests cannot both be recorded.
func (e *Engine) getAccess(ctx context.Context, req Request, employee *directory.Employee) (*Result, error) {
	release, err := e.lock(ctx, employee.Email, req.SoftwareName)
	if err != nil {
		return nil, err
	}
	res, msg, err := e.decideGrant(ctx, req, employee)
	release()
	if err != nil {
		return nil, err
	}
	if msg != nil {
		e.dispatch(ctx, res, *msg)
	}
	return res, nil
}

func (e *Engine) decideGrant(ctx context.Context, req Request, employee *directory.Employee) (*Result, *notify.Message, error) {
	existing, err := e.ledger.FindActiveDuplicate(ctx, employee.Email, req.SoftwareName)
	if err != nil {
		return nil, nil, e.storeError(ctx, err, "could not check existing requests")
	}
	if existing != nil {
		return &Result{
			Outcome:      OutcomeDuplicateActiveRequest,
			Status:       existing.Status,
			Entry:        existing,
			EmployeeName: employee.Name,
			Message:      msgDuplicate(req.SoftwareName, existing.Status),
		}, nil, nil
	}

	rule, err := e.policies.Resolve(ctx, req.SoftwareName, employee.Role)
	if err != nil {
		return nil, nil, e.storeError(ctx, err, "policy lookup failed")
	}

	switch {
	case rule == nil:
		entry, err := e.record(ctx, grantDraft(employee, req.SoftwareName, ledger.StatusRejected, notesNoPolicy(employee.Role)))
		if err != nil {
			return nil, nil, err
		}
		return &Result{
			Outcome:      OutcomeRejected,
			Status:       entry.Status,
			Entry:        entry,
			EmployeeName: employee.Name,
			Message:      msgRejected(req.SoftwareName, employee.Role),
		}, nil, nil

	case !rule.RequiresManagerApproval:
		entry, err := e.record(ctx, grantDraft(employee, req.SoftwareName, ledger.StatusApproved, notesAutoApproved))
		if err != nil {
			return nil, nil, err
		}
		return &Result{
				Outcome:      OutcomeApproved,
				Status:       entry.Status,
				Entry:        entry,
				EmployeeName: employee.Name,
				Message:      msgApproved,
			}, &notify.Message{
				To:      rule.ApprovalContactEmail,
				Subject: subjectAutoApproved(req.SoftwareName, employee.Name),
				Body:    bodyAutoApproved(employee.Name, employee.Email, req.SoftwareName),
			}, nil

	case !req.ManagerConfirmed:
		return &Result{
			Outcome:      OutcomeAwaitingConfirmation,
			EmployeeName: employee.Name,
			ManagerEmail: employee.ManagerEmail,
			Message:      msgAwaitingConfirmation(req.SoftwareName, employee.ManagerEmail),
		}, nil, nil

	default:
		entry, err := e.record(ctx, grantDraft(employee, req.SoftwareName, ledger.StatusPendingManager, notesManagerEmail))
		if err != nil {
			return nil, nil, err
		}
		return &Result{
				Outcome:      OutcomePendingManager,
				Status:       entry.Status,
				Entry:        entry,
				EmployeeName: employee.Name,
				ManagerEmail: employee.ManagerEmail,
				Message:      msgPending,
			}, &notify.Message{
				To:      employee.ManagerEmail,
				Cc:      rule.ApprovalContactEmail,
				Subject: subjectApprovalNeeded(req.SoftwareName, employee.Name),
				Body:    bodyApprovalNeeded(employee.Name, req.SoftwareName),
			}, nil
	}
}

// removeAccess always proceeds: no duplicate check and no policy lookup.
func (e *Engine) removeAccess(ctx context.Context, req Request, employee *directory.Employee) (*Result, error) {
	entry, err := e.record(ctx, ledger.Draft{
		EmployeeEmail: employee.Email,
		RequestType:   ledger.RequestTypeRemove,
		SoftwareName:  req.SoftwareName,
		Status:        ledger.StatusPendingDeprovisioning,
		Notes:         notesRemoval,
	})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Outcome:      OutcomePendingDeprovisioning,
		Status:       entry.Status,
		Entry:        entry,
		EmployeeName: employee.Name,
		ManagerEmail: employee.ManagerEmail,
		Message:      msgRemoval,
	}
	e.dispatch(ctx, res, notify.Message{
		To:      employee.ManagerEmail,
		Cc:      e.itSupportEmail,
		Subject: subjectRemoval,
		Body:    bodyRemoval(employee.Name, req.SoftwareName),
	})
	return res, nil
}

func grantDraft(employee *directory.Employee, software string, status ledger.Status, notes string) ledger.Draft {
	return ledger.Draft{
		EmployeeEmail: employee.Email,
		RequestType:   ledger.RequestTypeGrant,
		SoftwareName:  software,
		Status:        status,
		Notes:         notes,
	}
}

// record appends exactly once. A cancelled context short-circuits before the
// append; once appended there is nothing to undo.
func (e *Engine) record(ctx context.Context, draft ledger.Draft) (*ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled before it was recorded")
	}

	ctx, span := e.tracer.Start(ctx, "workflow.ledger.Append", trace.WithAttributes(
		attribute.String("ledger.status", string(draft.Status)),
	))
	defer span.End()

	entry, err := e.ledger.Append(ctx, draft)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		e.logger.ErrorContext(ctx, "ledger append failed",
			"request_id", requestcontext.RequestID(ctx),
			"employee_email", draft.EmployeeEmail,
			"software", draft.SoftwareName,
			"status", draft.Status,
			"error", err,
		)
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "decision could not be recorded")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled before it was recorded")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "decision could not be recorded")
		}
	}
	span.SetAttributes(attribute.Int64("ledger.request_id", entry.RequestID))
	return entry, nil
}

// dispatch sends the notification for a recorded decision. The caller's
// cancellation no longer applies; the notify timeout bounds it instead.
func (e *Engine) dispatch(ctx context.Context, res *Result, msg notify.Message) {
	if msg.ID == "" && res.Entry != nil {
		msg.ID = notify.MessageID(res.Entry.RequestID)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "workflow.Notify", trace.WithAttributes(
		attribute.String("notify.subject", msg.Subject),
		attribute.String("notify.message_id", msg.ID),
	))
	defer span.End()

	if err := e.notifier.Notify(ctx, msg); err != nil {
		res.DeliveryDegraded = true
		e.metrics.IncrementDeliveryDegraded(res.Outcome)
		span.RecordError(err)
		span.SetStatus(codes.Error, "notification not delivered")
		e.logger.WarnContext(ctx, "decision recorded but notification not delivered",
			"request_id", requestcontext.RequestID(ctx),
			"request_ledger_id", ledgerID(res.Entry),
			"message_id", msg.ID,
			"to", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
		return
	}
	res.Notified = true
}

func (e *Engine) lock(ctx context.Context, email, software string) (func(), error) {
	start := time.Now()
	release, err := e.locker.Lock(ctx, lockKey(email, software))
	e.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for a concurrent request")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "request lock unavailable")
	}
	return release, nil
}

// storeError translates read-side store failures. Lookups never see business
// misses here, only infrastructure faults.
func (e *Engine) storeError(ctx context.Context, err error, msg string) error {
	e.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}

// lockKey matches the ledger's duplicate semantics: email case-insensitive, software exact.
func lockKey(email, software string) string {
	return directory.NormalizeEmail(email) + "\x00" + software
}

func ledgerID(entry *ledger.Entry) int64 {
	if entry == nil {
		return 0
	}
	return entry.RequestID
}
