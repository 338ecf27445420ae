package payment

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/vitorfp/academia/event"
	"github.com/vitorfp/academia/fault"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	subscriptions map[int64]bool
	payments      map[int64]*Payment
	nextID        int64
}

var _ Store = &fakeStore{}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subscriptions: map[int64]bool{1: true},
		payments:      make(map[int64]*Payment),
		nextID:        1,
	}
}

func (f *fakeStore) SubscriptionExists(ctx context.Context, subscriptionID int64) (bool, error) {
	return f.subscriptions[subscriptionID], nil
}

func (f *fakeStore) Insert(ctx context.Context, p *Payment) error {
	p.ID = f.nextID
	f.nextID++
	copied := *p
	f.payments[p.ID] = &copied
	return nil
}

func (f *fakeStore) FetchByID(ctx context.Context, id int64) (*Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) Update(ctx context.Context, p *Payment) (int64, error) {
	existing, ok := f.payments[p.ID]
	if !ok {
		return 0, nil
	}
	copied := *p
	copied.ID = existing.ID
	f.payments[p.ID] = &copied
	return 1, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id int64, status Status) (int64, error) {
	existing, ok := f.payments[id]
	if !ok {
		return 0, nil
	}
	existing.Status = status
	return 1, nil
}

func (f *fakeStore) SetStatusUnlessPaid(ctx context.Context, id int64, status Status) (int64, error) {
	existing, ok := f.payments[id]
	if !ok || existing.Status == StatusPaid {
		return 0, nil
	}
	existing.Status = status
	return 1, nil
}

func (f *fakeStore) Settle(ctx context.Context, id int64, when time.Time) (int64, error) {
	existing, ok := f.payments[id]
	if !ok || existing.Status == StatusPaid {
		return 0, nil
	}
	existing.Status = StatusPaid
	settledOn := when
	existing.PaidOn = &settledOn
	return 1, nil
}

func (f *fakeStore) DeleteUnlessPaid(ctx context.Context, id int64) (int64, error) {
	existing, ok := f.payments[id]
	if !ok || existing.Status == StatusPaid {
		return 0, nil
	}
	delete(f.payments, id)
	return 1, nil
}

func (f *fakeStore) List(ctx context.Context, opt ListOption) ([]Payment, error) {
	results := make([]Payment, 0, 1)
	for _, p := range f.payments {
		if opt.SubscriptionID > 0 && p.SubscriptionID != opt.SubscriptionID {
			continue
		}
		if opt.Status != "" && p.Status != opt.Status {
			continue
		}
		results = append(results, *p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (f *fakeStore) ListOverdue(ctx context.Context, before time.Time) ([]Payment, error) {
	results := make([]Payment, 0, 1)
	for _, p := range f.payments {
		if p.Status == StatusPending && p.DueDate.Before(before) {
			results = append(results, *p)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].DueDate.Equal(results[j].DueDate) {
			return results[i].DueDate.Before(results[j].DueDate)
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}

func testManager(t *testing.T, store Store) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerOptions{
		Store:  store,
		Events: event.Discard(),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return manager
}

func pendingPayment(t *testing.T, manager *Manager) *Payment {
	t.Helper()
	p, err := manager.Create(context.Background(), CreateOption{
		SubscriptionID: 1,
		Period:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AmountCents:    9900,
		DueDate:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestCreatePaymentDefaults(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	require.Equal(t, StatusPending, p.Status)
	require.Nil(t, p.PaidOn)
}

func TestCreatePaymentUnknownSubscription(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	_, err := manager.Create(context.Background(), CreateOption{
		SubscriptionID: 42,
		Period:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AmountCents:    9900,
		DueDate:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestCreatePaymentDueBeforePeriod(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	_, err := manager.Create(context.Background(), CreateOption{
		SubscriptionID: 1,
		Period:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AmountCents:    9900,
		DueDate:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestSettlePayment(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)

	settled, err := manager.Settle(context.Background(), p.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, settled.Status)
	require.NotNil(t, settled.PaidOn)

	// defaulted to today
	now := time.Now().UTC()
	require.Equal(t, now.Truncate(24*time.Hour), settled.PaidOn.Truncate(24*time.Hour))
}

func TestSettlePaymentExplicitDate(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	when := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	settled, err := manager.Settle(context.Background(), p.ID, &when)
	require.NoError(t, err)
	require.NotNil(t, settled.PaidOn)
	require.True(t, settled.PaidOn.Equal(when))
}

func TestSettlePaymentTwice(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)

	_, err := manager.Settle(context.Background(), p.ID, nil)
	require.NoError(t, err)

	_, err = manager.Settle(context.Background(), p.ID, nil)
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestChangeStatusAwayFromPaid(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	_, err := manager.Settle(context.Background(), p.ID, nil)
	require.NoError(t, err)

	err = manager.ChangeStatus(context.Background(), p.ID, StatusPending)
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestChangeStatusPaidToPaidIsNoop(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	settled, err := manager.Settle(context.Background(), p.ID, nil)
	require.NoError(t, err)

	require.NoError(t, manager.ChangeStatus(context.Background(), p.ID, StatusPaid))

	after, err := manager.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, after.Status)
	require.True(t, after.PaidOn.Equal(*settled.PaidOn))
}

func TestUpdatePaidPaymentBackfillsPaidOn(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	when := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	_, err := manager.Settle(context.Background(), p.ID, &when)
	require.NoError(t, err)

	updated, err := manager.Update(context.Background(), UpdateOption{
		ID:             p.ID,
		SubscriptionID: 1,
		Period:         p.Period,
		AmountCents:    10900,
		DueDate:        p.DueDate,
		Status:         StatusPaid,
		PaidOn:         nil,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.PaidOn)
	require.True(t, updated.PaidOn.Equal(when))
}

func TestUpdatePaidPaymentRejectsDowngrade(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	_, err := manager.Settle(context.Background(), p.ID, nil)
	require.NoError(t, err)

	_, err = manager.Update(context.Background(), UpdateOption{
		ID:             p.ID,
		SubscriptionID: 1,
		Period:         p.Period,
		AmountCents:    p.AmountCents,
		DueDate:        p.DueDate,
		Status:         StatusPending,
	})
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestDeletePaidPayment(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	_, err := manager.Settle(context.Background(), p.ID, nil)
	require.NoError(t, err)

	err = manager.Delete(context.Background(), p.ID)
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestDeletePendingPayment(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	p := pendingPayment(t, manager)
	require.NoError(t, manager.Delete(context.Background(), p.ID))

	_, err := manager.Get(context.Background(), p.ID)
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestListOverdue(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)

	late, err := manager.Create(context.Background(), CreateOption{
		SubscriptionID: 1,
		Period:         yesterday.AddDate(0, -1, 0),
		AmountCents:    9900,
		DueDate:        yesterday,
	})
	require.NoError(t, err)

	_, err = manager.Create(context.Background(), CreateOption{
		SubscriptionID: 1,
		Period:         yesterday.AddDate(0, -1, 0),
		AmountCents:    9900,
		DueDate:        tomorrow,
	})
	require.NoError(t, err)

	settledLate, err := manager.Create(context.Background(), CreateOption{
		SubscriptionID: 1,
		Period:         yesterday.AddDate(0, -1, 0),
		AmountCents:    9900,
		DueDate:        yesterday,
	})
	require.NoError(t, err)
	_, err = manager.Settle(context.Background(), settledLate.ID, nil)
	require.NoError(t, err)

	overdue, err := manager.ListOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, late.ID, overdue[0].ID)
}
