package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/vitorfp/academia/event"
	"github.com/vitorfp/academia/fault"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	members       map[int64]bool
	plans         map[int64]bool
	subscriptions map[int64]*Subscription
	nextID        int64
}

var _ Store = &fakeStore{}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:       map[int64]bool{1: true},
		plans:         map[int64]bool{1: true},
		subscriptions: make(map[int64]*Subscription),
		nextID:        1,
	}
}

func (f *fakeStore) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) MemberExists(ctx context.Context, memberID int64) (bool, error) {
	return f.members[memberID], nil
}

func (f *fakeStore) PlanExists(ctx context.Context, planID int64) (bool, error) {
	return f.plans[planID], nil
}

func (f *fakeStore) HasActiveForMember(ctx context.Context, memberID int64) (bool, error) {
	for _, sub := range f.subscriptions {
		if sub.MemberID == memberID && sub.Status == StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Insert(ctx context.Context, sub *Subscription) error {
	sub.ID = f.nextID
	f.nextID++
	copied := *sub
	f.subscriptions[sub.ID] = &copied
	return nil
}

func (f *fakeStore) FetchByID(ctx context.Context, id int64) (*Subscription, error) {
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeStore) Update(ctx context.Context, sub *Subscription) (int64, error) {
	existing, ok := f.subscriptions[sub.ID]
	if !ok {
		return 0, nil
	}
	existing.StartDate = sub.StartDate
	existing.EndDate = sub.EndDate
	existing.Status = sub.Status
	return 1, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id int64, status Status) (int64, error) {
	existing, ok := f.subscriptions[id]
	if !ok {
		return 0, nil
	}
	existing.Status = status
	return 1, nil
}

func (f *fakeStore) CancelActive(ctx context.Context, id int64, endFloor time.Time) (int64, error) {
	existing, ok := f.subscriptions[id]
	if !ok || existing.Status != StatusActive {
		return 0, nil
	}
	existing.Status = StatusCancelled
	if existing.EndDate == nil || existing.EndDate.Before(endFloor) {
		floor := endFloor
		existing.EndDate = &floor
	}
	return 1, nil
}

func (f *fakeStore) List(ctx context.Context, opt ListOption) ([]Subscription, error) {
	results := make([]Subscription, 0, 1)
	for _, sub := range f.subscriptions {
		if opt.MemberID > 0 && sub.MemberID != opt.MemberID {
			continue
		}
		if opt.PlanID > 0 && sub.PlanID != opt.PlanID {
			continue
		}
		results = append(results, *sub)
	}
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

func activeSubscription(t *testing.T, manager *Manager) *Subscription {
	t.Helper()
	sub, err := manager.Create(context.Background(), CreateOption{
		MemberID:  1,
		PlanID:    1,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return sub
}

func TestCreateSubscription(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	sub := activeSubscription(t, manager)
	require.Equal(t, StatusActive, sub.Status)
	require.NotZero(t, sub.ID)
}

func TestCreateSubscriptionUnknownMember(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	_, err := manager.Create(context.Background(), CreateOption{
		MemberID:  42,
		PlanID:    1,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestCreateSubscriptionDuplicateActive(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	activeSubscription(t, manager)

	_, err := manager.Create(context.Background(), CreateOption{
		MemberID:  1,
		PlanID:    1,
		StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestCreateSubscriptionEndBeforeStart(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	end := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err := manager.Create(context.Background(), CreateOption{
		MemberID:  1,
		PlanID:    1,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
	})
	require.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestCancelSubscription(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	sub := activeSubscription(t, manager)

	require.NoError(t, manager.Cancel(context.Background(), sub.ID))

	cancelled, err := manager.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndDate)
	require.False(t, cancelled.EndDate.After(time.Now().UTC().AddDate(0, 0, 1)))
}

func TestCancelSubscriptionKeepsLaterEndDate(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	future := time.Now().UTC().AddDate(1, 0, 0)
	sub, err := manager.Create(context.Background(), CreateOption{
		MemberID:  1,
		PlanID:    1,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &future,
	})
	require.NoError(t, err)

	require.NoError(t, manager.Cancel(context.Background(), sub.ID))

	cancelled, err := manager.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	require.NotNil(t, cancelled.EndDate)
	require.True(t, cancelled.EndDate.Equal(future))
}

func TestCancelSubscriptionWrongStatus(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status Status
	}{
		{"inactive", StatusInactive},
		{"overdue", StatusOverdue},
		{"cancelled", StatusCancelled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			manager := testManager(t, store)

			sub := activeSubscription(t, manager)
			store.subscriptions[sub.ID].Status = tc.status

			err := manager.Cancel(context.Background(), sub.ID)
			require.True(t, fault.IsKind(err, fault.KindConflict))
		})
	}
}

func TestCancelSubscriptionLostRace(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	sub := activeSubscription(t, manager)
	// flips to Inactive between the fetch and the conditional update
	store.subscriptions[sub.ID].Status = StatusActive
	racing := &racingStore{fakeStore: store, flipTo: StatusInactive, id: sub.ID}

	racingManager := testManager(t, racing)
	err := racingManager.Cancel(context.Background(), sub.ID)
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

// racingStore reports the subscription Active on fetch, then flips it
// before the conditional cancel runs
type racingStore struct {
	*fakeStore
	flipTo Status
	id     int64
}

func (r *racingStore) CancelActive(ctx context.Context, id int64, endFloor time.Time) (int64, error) {
	r.subscriptions[r.id].Status = r.flipTo
	return r.fakeStore.CancelActive(ctx, id, endFloor)
}

func TestCancelSubscriptionNotFound(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	err := manager.Cancel(context.Background(), 99)
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestChangeStatus(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	sub := activeSubscription(t, manager)

	require.NoError(t, manager.ChangeStatus(context.Background(), sub.ID, StatusOverdue))

	changed, err := manager.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, changed.Status)
}

func TestChangeStatusInvalidValue(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	sub := activeSubscription(t, manager)

	err := manager.ChangeStatus(context.Background(), sub.ID, Status("Frozen"))
	require.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestListSubscriptionsNeverNil(t *testing.T) {
	store := newFakeStore()
	manager := testManager(t, store)

	results, err := manager.List(context.Background(), ListOption{})
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}
