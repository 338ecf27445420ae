package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitorfp/academia/event"
	"github.com/vitorfp/academia/fault"

	"go.uber.org/zap"
)

// ManagerOptions contains the dependencies of the subscription Manager
type ManagerOptions struct {
	Store  Store
	Events event.Producer
	Logger *zap.Logger
}

// Manager enforces the subscription lifecycle: one Active subscription
// per member, and Cancelled reachable only from Active.
type Manager struct {
	ManagerOptions
}

// NewManager returns a new Manager for subscriptions
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Events == nil {
		return nil, fmt.Errorf("nil Events is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Manager{
		ManagerOptions: option,
	}, nil
}

// CreateOption describes a new subscription
type CreateOption struct {
	MemberID  int64
	PlanID    int64
	StartDate time.Time
	EndDate   *time.Time
}

// Create inserts a new Active subscription after verifying that the
// member and plan exist and that the member holds no other Active one.
// The checks and the insert run in a single store transaction.
func (m *Manager) Create(ctx context.Context, opt CreateOption) (*Subscription, error) {
	if err := validateID(opt.MemberID, "memberId"); err != nil {
		return nil, err
	}
	if err := validateID(opt.PlanID, "planId"); err != nil {
		return nil, err
	}
	if err := validateDates(opt.StartDate, opt.EndDate); err != nil {
		return nil, err
	}

	sub := &Subscription{
		MemberID:  opt.MemberID,
		PlanID:    opt.PlanID,
		StartDate: opt.StartDate,
		EndDate:   opt.EndDate,
		Status:    StatusActive,
	}

	err := m.Store.Transact(ctx, func(tx Store) error {
		memberOK, err := tx.MemberExists(ctx, opt.MemberID)
		if err != nil {
			return fault.Store(err, "Cannot verify member")
		}
		if !memberOK {
			return fault.NotFoundf("member not found: %d", opt.MemberID)
		}
		planOK, err := tx.PlanExists(ctx, opt.PlanID)
		if err != nil {
			return fault.Store(err, "Cannot verify plan")
		}
		if !planOK {
			return fault.NotFoundf("plan not found: %d", opt.PlanID)
		}
		active, err := tx.HasActiveForMember(ctx, opt.MemberID)
		if err != nil {
			return fault.Store(err, "Cannot check for an active subscription")
		}
		if active {
			return fault.Conflictf("member %d already has an Active subscription", opt.MemberID)
		}
		if err := tx.Insert(ctx, sub); err != nil {
			return fault.Store(err, "Cannot create subscription")
		}
		return nil
	})
	if err != nil {
		m.logFailure("Unable to create subscription", err)
		return nil, err
	}

	ev := event.New(event.TypeSubscriptionCreated)
	ev.MemberID = sub.MemberID
	ev.SubscriptionID = sub.ID
	ev.Status = string(sub.Status)
	m.publish(ev)

	return sub, nil
}

// UpdateOption overwrites the mutable fields of a subscription
type UpdateOption struct {
	ID        int64
	StartDate time.Time
	EndDate   *time.Time
	Status    Status
}

// Update overwrites start date, end date and status without a
// transition guard. This is the administrative correction path, kept
// separate from the guarded Cancel.
func (m *Manager) Update(ctx context.Context, opt UpdateOption) (*Subscription, error) {
	if err := validateID(opt.ID, "id"); err != nil {
		return nil, err
	}
	if err := validateDates(opt.StartDate, opt.EndDate); err != nil {
		return nil, err
	}
	if _, ok := ParseStatus(string(opt.Status)); !ok {
		return nil, fault.Validationf("invalid status: %q", opt.Status)
	}

	existing, err := m.Store.FetchByID(ctx, opt.ID)
	if err != nil {
		m.logFailure("Unable to fetch subscription", err)
		return nil, fault.Store(err, "Cannot fetch subscription")
	}
	if existing == nil {
		return nil, fault.NotFoundf("subscription not found: %d", opt.ID)
	}

	existing.StartDate = opt.StartDate
	existing.EndDate = opt.EndDate
	existing.Status = opt.Status

	rows, err := m.Store.Update(ctx, existing)
	if err != nil {
		m.logFailure("Unable to update subscription", err)
		return nil, fault.Store(err, "Cannot update subscription")
	}
	if rows == 0 {
		return nil, fault.Conflictf("update not applied (id=%d)", opt.ID)
	}
	return existing, nil
}

// ChangeStatus sets the status unconditionally, beyond checking that
// the subscription exists and the status is a valid value
func (m *Manager) ChangeStatus(ctx context.Context, id int64, status Status) error {
	if err := validateID(id, "id"); err != nil {
		return err
	}
	if _, ok := ParseStatus(string(status)); !ok {
		return fault.Validationf("invalid status: %q", status)
	}

	existing, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch subscription", err)
		return fault.Store(err, "Cannot fetch subscription")
	}
	if existing == nil {
		return fault.NotFoundf("subscription not found: %d", id)
	}

	rows, err := m.Store.SetStatus(ctx, id, status)
	if err != nil {
		m.logFailure("Unable to change subscription status", err)
		return fault.Store(err, "Cannot change subscription status")
	}
	if rows == 0 {
		return fault.Conflictf("status not changed (id=%d)", id)
	}
	return nil
}

// Cancel soft deletes an Active subscription: status becomes Cancelled
// and the end date is raised to at least today. The write is a single
// conditional update guarded on the row still being Active, so 0
// affected rows means another caller deactivated it first.
func (m *Manager) Cancel(ctx context.Context, id int64) error {
	if err := validateID(id, "id"); err != nil {
		return err
	}

	existing, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch subscription", err)
		return fault.Store(err, "Cannot fetch subscription")
	}
	if existing == nil {
		return fault.NotFoundf("subscription not found: %d", id)
	}

	switch existing.Status {
	case StatusActive:
		// fall through to the conditional cancel
	case StatusInactive:
		return fault.Conflictf("cannot cancel an inactive subscription")
	case StatusOverdue:
		return fault.Conflictf("cannot cancel an overdue subscription")
	case StatusCancelled:
		return fault.Conflictf("subscription is already cancelled")
	default:
		return fault.Conflictf("invalid status for cancellation: %s", existing.Status)
	}

	rows, err := m.Store.CancelActive(ctx, id, today())
	if err != nil {
		m.logFailure("Unable to cancel subscription", err)
		return fault.Store(err, "Cannot cancel subscription")
	}
	if rows == 0 {
		return fault.Conflictf("cannot cancel: the subscription is no longer active")
	}

	ev := event.New(event.TypeSubscriptionCancelled)
	ev.MemberID = existing.MemberID
	ev.SubscriptionID = existing.ID
	ev.Status = string(StatusCancelled)
	m.publish(ev)

	return nil
}

// Get returns the subscription with the given id
func (m *Manager) Get(ctx context.Context, id int64) (*Subscription, error) {
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	sub, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch subscription", err)
		return nil, fault.Store(err, "Cannot fetch subscription")
	}
	if sub == nil {
		return nil, fault.NotFoundf("subscription not found: %d", id)
	}
	return sub, nil
}

// List returns subscriptions, optionally narrowed by member or plan.
// The result is never nil.
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	if opt.MemberID < 0 {
		return nil, fault.Validationf("memberId must be positive")
	}
	if opt.PlanID < 0 {
		return nil, fault.Validationf("planId must be positive")
	}
	results, err := m.Store.List(ctx, opt)
	if err != nil {
		m.logFailure("Unable to list subscriptions", err)
		return nil, fault.Store(err, "Cannot list subscriptions")
	}
	return results, nil
}

func (m *Manager) publish(ev event.MembershipEvent) {
	if err := m.Events.PublishMembershipEvent(ev); err != nil {
		m.Logger.Error("Unable to publish membership event",
			zap.String("EventType", string(ev.Type)),
			zap.Error(err),
		)
	}
}

// logFailure logs store-level failures; business faults are the
// caller's concern and stay out of the error log
func (m *Manager) logFailure(msg string, err error) {
	var f *fault.Fault
	if errors.As(err, &f) && f.Kind != fault.KindStore {
		return
	}
	m.Logger.Error(msg,
		zap.Error(err),
	)
}

func validateID(id int64, field string) error {
	if id <= 0 {
		return fault.Validationf("%s must be positive", field)
	}
	return nil
}

func validateDates(start time.Time, end *time.Time) error {
	if start.IsZero() {
		return fault.Validationf("startDate is required")
	}
	if end != nil && end.Before(start) {
		return fault.Validationf("endDate cannot be before startDate")
	}
	return nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
