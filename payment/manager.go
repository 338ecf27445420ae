package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitorfp/academia/event"
	"github.com/vitorfp/academia/fault"

	"go.uber.org/zap"
)

// ManagerOptions contains the dependencies of the payment Manager
type ManagerOptions struct {
	Store  Store
	Events event.Producer
	Logger *zap.Logger
}

// Manager enforces the payment lifecycle. Settlement is one-way: once
// a payment is Paid its status never changes again and its paid-on
// date is never erased.
type Manager struct {
	ManagerOptions
}

// NewManager returns a new Manager for payments
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

// CreateOption describes a new payment. Status defaults to Pending
// when empty.
type CreateOption struct {
	SubscriptionID int64
	Period         time.Time
	AmountCents    int64
	DueDate        time.Time
	Status         Status
}

// Create inserts a new payment for an existing subscription, with a
// nil paid-on date regardless of the initial status
func (m *Manager) Create(ctx context.Context, opt CreateOption) (*Payment, error) {
	if err := validateID(opt.SubscriptionID, "subscriptionId"); err != nil {
		return nil, err
	}
	if err := validateBilling(opt.Period, opt.AmountCents, opt.DueDate); err != nil {
		return nil, err
	}
	status := opt.Status
	if status == "" {
		status = StatusPending
	}
	if _, ok := ParseStatus(string(status)); !ok {
		return nil, fault.Validationf("invalid status: %q", status)
	}

	exists, err := m.Store.SubscriptionExists(ctx, opt.SubscriptionID)
	if err != nil {
		m.logFailure("Unable to verify subscription", err)
		return nil, fault.Store(err, "Cannot verify subscription")
	}
	if !exists {
		return nil, fault.NotFoundf("subscription not found: %d", opt.SubscriptionID)
	}

	p := &Payment{
		SubscriptionID: opt.SubscriptionID,
		Period:         opt.Period,
		AmountCents:    opt.AmountCents,
		DueDate:        opt.DueDate,
		Status:         status,
		PaidOn:         nil,
	}
	if err := m.Store.Insert(ctx, p); err != nil {
		m.logFailure("Unable to create payment", err)
		return nil, fault.Store(err, "Cannot create payment")
	}
	return p, nil
}

// UpdateOption overwrites the mutable fields of a payment
type UpdateOption struct {
	ID             int64
	SubscriptionID int64
	Period         time.Time
	AmountCents    int64
	DueDate        time.Time
	Status         Status
	PaidOn         *time.Time
}

// Update overwrites the payment. When the stored status is Paid, the
// target status must also be Paid, and a nil paid-on date is
// backfilled with the stored one (or today) so settlement is never
// erased.
func (m *Manager) Update(ctx context.Context, opt UpdateOption) (*Payment, error) {
	if err := validateID(opt.ID, "id"); err != nil {
		return nil, err
	}
	if err := validateID(opt.SubscriptionID, "subscriptionId"); err != nil {
		return nil, err
	}
	if err := validateBilling(opt.Period, opt.AmountCents, opt.DueDate); err != nil {
		return nil, err
	}
	if _, ok := ParseStatus(string(opt.Status)); !ok {
		return nil, fault.Validationf("invalid status: %q", opt.Status)
	}

	existing, err := m.Store.FetchByID(ctx, opt.ID)
	if err != nil {
		m.logFailure("Unable to fetch payment", err)
		return nil, fault.Store(err, "Cannot fetch payment")
	}
	if existing == nil {
		return nil, fault.NotFoundf("payment not found: %d", opt.ID)
	}

	subOK, err := m.Store.SubscriptionExists(ctx, opt.SubscriptionID)
	if err != nil {
		m.logFailure("Unable to verify subscription", err)
		return nil, fault.Store(err, "Cannot verify subscription")
	}
	if !subOK {
		return nil, fault.NotFoundf("subscription not found: %d", opt.SubscriptionID)
	}

	paidOn := opt.PaidOn
	if existing.Status == StatusPaid {
		if opt.Status != StatusPaid {
			return nil, fault.Conflictf("payment is already Paid, changing to another status is not allowed")
		}
		if paidOn == nil {
			if existing.PaidOn != nil {
				paidOn = existing.PaidOn
			} else {
				now := today()
				paidOn = &now
			}
		}
	}

	existing.SubscriptionID = opt.SubscriptionID
	existing.Period = opt.Period
	existing.AmountCents = opt.AmountCents
	existing.DueDate = opt.DueDate
	existing.Status = opt.Status
	existing.PaidOn = paidOn

	rows, err := m.Store.Update(ctx, existing)
	if err != nil {
		m.logFailure("Unable to update payment", err)
		return nil, fault.Store(err, "Cannot update payment")
	}
	if rows == 0 {
		return nil, fault.Conflictf("update not applied (id=%d)", opt.ID)
	}
	return existing, nil
}

// ChangeStatus moves the payment to the given status, except away from
// Paid. The write is conditional on the row not being Paid, so the
// guard also holds against a settlement racing in between.
func (m *Manager) ChangeStatus(ctx context.Context, id int64, status Status) error {
	if err := validateID(id, "id"); err != nil {
		return err
	}
	if _, ok := ParseStatus(string(status)); !ok {
		return fault.Validationf("invalid status: %q", status)
	}

	existing, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch payment", err)
		return fault.Store(err, "Cannot fetch payment")
	}
	if existing == nil {
		return fault.NotFoundf("payment not found: %d", id)
	}
	if existing.Status == StatusPaid && status != StatusPaid {
		return fault.Conflictf("payment is already Paid, changing to another status is not allowed")
	}

	if status == StatusPaid && existing.Status == StatusPaid {
		return nil
	}

	var rows int64
	if status == StatusPaid {
		rows, err = m.Store.SetStatus(ctx, id, status)
	} else {
		rows, err = m.Store.SetStatusUnlessPaid(ctx, id, status)
	}
	if err != nil {
		m.logFailure("Unable to change payment status", err)
		return fault.Store(err, "Cannot change payment status")
	}
	if rows == 0 {
		return fault.Conflictf("status not changed (id=%d)", id)
	}
	return nil
}

// Settle records the payment as Paid, defaulting the settlement date
// to today. One conditional write guarded on the payment not being
// Paid yet makes double settlement impossible.
func (m *Manager) Settle(ctx context.Context, id int64, when *time.Time) (*Payment, error) {
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	settledOn := today()
	if when != nil {
		settledOn = *when
	}

	existing, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch payment", err)
		return nil, fault.Store(err, "Cannot fetch payment")
	}
	if existing == nil {
		return nil, fault.NotFoundf("payment not found: %d", id)
	}
	if existing.Status == StatusPaid {
		return nil, fault.Conflictf("payment is already Paid")
	}

	rows, err := m.Store.Settle(ctx, id, settledOn)
	if err != nil {
		m.logFailure("Unable to settle payment", err)
		return nil, fault.Store(err, "Cannot settle payment")
	}
	if rows == 0 {
		return nil, fault.Conflictf("payment is already Paid")
	}

	existing.Status = StatusPaid
	existing.PaidOn = &settledOn

	ev := event.New(event.TypePaymentSettled)
	ev.SubscriptionID = existing.SubscriptionID
	ev.PaymentID = existing.ID
	ev.Status = string(StatusPaid)
	m.publish(ev)

	return existing, nil
}

// Delete removes an unsettled payment. Paid payments are immutable and
// can never be destroyed.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := validateID(id, "id"); err != nil {
		return err
	}

	existing, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch payment", err)
		return fault.Store(err, "Cannot fetch payment")
	}
	if existing == nil {
		return fault.NotFoundf("payment not found: %d", id)
	}
	if existing.Status == StatusPaid {
		return fault.Conflictf("deleting a Paid payment is not allowed (id=%d)", id)
	}

	rows, err := m.Store.DeleteUnlessPaid(ctx, id)
	if err != nil {
		m.logFailure("Unable to delete payment", err)
		return fault.Store(err, "Cannot delete payment")
	}
	if rows == 0 {
		return fault.Conflictf("cannot delete: the payment settled in the meantime")
	}
	return nil
}

// Get returns the payment with the given id
func (m *Manager) Get(ctx context.Context, id int64) (*Payment, error) {
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	p, err := m.Store.FetchByID(ctx, id)
	if err != nil {
		m.logFailure("Unable to fetch payment", err)
		return nil, fault.Store(err, "Cannot fetch payment")
	}
	if p == nil {
		return nil, fault.NotFoundf("payment not found: %d", id)
	}
	return p, nil
}

// List returns payments, optionally narrowed by subscription or
// status. The result is never nil.
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Payment, error) {
	if opt.SubscriptionID < 0 {
		return nil, fault.Validationf("subscriptionId must be positive")
	}
	if opt.Status != "" {
		if _, ok := ParseStatus(string(opt.Status)); !ok {
			return nil, fault.Validationf("invalid status: %q", opt.Status)
		}
	}
	results, err := m.Store.List(ctx, opt)
	if err != nil {
		m.logFailure("Unable to list payments", err)
		return nil, fault.Store(err, "Cannot list payments")
	}
	return results, nil
}

// ListOverdue returns the pending payments whose due date is strictly
// before today. Lateness here is a view, not a stored status: rows are
// only ever marked Overdue by an explicit ChangeStatus call.
func (m *Manager) ListOverdue(ctx context.Context) ([]Payment, error) {
	results, err := m.Store.ListOverdue(ctx, today())
	if err != nil {
		m.logFailure("Unable to list overdue payments", err)
		return nil, fault.Store(err, "Cannot list overdue payments")
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

func validateBilling(period time.Time, amountCents int64, due time.Time) error {
	if period.IsZero() {
		return fault.Validationf("period is required")
	}
	if amountCents <= 0 {
		return fault.Validationf("amount must be positive")
	}
	if due.IsZero() {
		return fault.Validationf("dueDate is required")
	}
	if due.Before(period) {
		return fault.Validationf("dueDate cannot be before the billing period")
	}
	return nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
