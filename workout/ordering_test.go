package workout

import (
	"context"
	"errors"
	"testing"

	"github.com/vitorfp/academia/fault"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type itemKey struct {
	workoutID int64
	position  int
}

type fakeStore struct {
	workouts  map[int64]bool
	exercises map[int64]bool
	items     map[itemKey]*Item
	nextID    int64
}

var _ Store = &fakeStore{}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workouts:  map[int64]bool{1: true},
		exercises: map[int64]bool{1: true, 2: true},
		items:     make(map[itemKey]*Item),
		nextID:    1,
	}
}

func (f *fakeStore) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) WorkoutExists(ctx context.Context, workoutID int64) (bool, error) {
	return f.workouts[workoutID], nil
}

func (f *fakeStore) ExerciseExists(ctx context.Context, exerciseID int64) (bool, error) {
	return f.exercises[exerciseID], nil
}

func (f *fakeStore) PositionTaken(ctx context.Context, workoutID int64, position int) (bool, error) {
	_, taken := f.items[itemKey{workoutID, position}]
	return taken, nil
}

func (f *fakeStore) InsertItem(ctx context.Context, item *Item) error {
	key := itemKey{item.WorkoutID, item.Position}
	if _, taken := f.items[key]; taken {
		return errors.New(`duplicate key value violates unique constraint "uq_workout_items_position"`)
	}
	item.ID = f.nextID
	f.nextID++
	copied := *item
	f.items[key] = &copied
	return nil
}

func (f *fakeStore) FetchItem(ctx context.Context, workoutID int64, position int) (*Item, error) {
	item, ok := f.items[itemKey{workoutID, position}]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStore) UpdateItemFields(ctx context.Context, item *Item) (int64, error) {
	existing, ok := f.items[itemKey{item.WorkoutID, item.Position}]
	if !ok {
		return 0, nil
	}
	existing.ExerciseID = item.ExerciseID
	existing.Sets = item.Sets
	existing.Reps = item.Reps
	existing.LoadKg = item.LoadKg
	existing.RestSec = item.RestSec
	return 1, nil
}

func (f *fakeStore) Relocate(ctx context.Context, workoutID int64, oldPosition, newPosition int) (int64, error) {
	oldKey := itemKey{workoutID, oldPosition}
	existing, ok := f.items[oldKey]
	if !ok {
		return 0, nil
	}
	newKey := itemKey{workoutID, newPosition}
	if _, taken := f.items[newKey]; taken {
		return 0, errors.New(`duplicate key value violates unique constraint "uq_workout_items_position"`)
	}
	delete(f.items, oldKey)
	existing.Position = newPosition
	f.items[newKey] = existing
	return 1, nil
}

func (f *fakeStore) SwapPositions(ctx context.Context, workoutID int64, positionA, positionB int) (int64, error) {
	keyA := itemKey{workoutID, positionA}
	keyB := itemKey{workoutID, positionB}
	itemA, okA := f.items[keyA]
	itemB, okB := f.items[keyB]
	var rows int64
	if okA {
		rows++
	}
	if okB {
		rows++
	}
	if rows != 2 {
		// rolled back, nothing changes
		return rows, nil
	}
	itemA.Position = positionB
	itemB.Position = positionA
	f.items[keyA] = itemB
	f.items[keyB] = itemA
	return 2, nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, workoutID int64, position int) (int64, error) {
	key := itemKey{workoutID, position}
	if _, ok := f.items[key]; !ok {
		return 0, nil
	}
	delete(f.items, key)
	return 1, nil
}

func (f *fakeStore) DeleteAllItems(ctx context.Context, workoutID int64) (int64, error) {
	var removed int64
	for key := range f.items {
		if key.workoutID == workoutID {
			delete(f.items, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeStore) ListItems(ctx context.Context, workoutID int64) ([]Item, error) {
	results := make([]Item, 0, 1)
	for position := 1; position <= MaxPosition; position++ {
		if item, ok := f.items[itemKey{workoutID, position}]; ok {
			results = append(results, *item)
		}
	}
	return results, nil
}

func testOrdering(t *testing.T, store Store) *Ordering {
	t.Helper()
	ordering, err := NewOrdering(OrderingOptions{
		Store:  store,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return ordering
}

func addItem(t *testing.T, ordering *Ordering, position int) *Item {
	t.Helper()
	item, err := ordering.Add(context.Background(), AddOption{
		WorkoutID:  1,
		Position:   position,
		ExerciseID: 1,
		Sets:       3,
		Reps:       12,
		RestSec:    60,
	})
	require.NoError(t, err)
	return item
}

func TestAddItem(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	item := addItem(t, ordering, 1)
	require.Equal(t, 1, item.Position)
	require.Nil(t, item.LoadKg)
}

func TestAddItemOccupiedPosition(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)

	_, err := ordering.Add(context.Background(), AddOption{
		WorkoutID:  1,
		Position:   1,
		ExerciseID: 2,
		Sets:       3,
		Reps:       10,
		RestSec:    90,
	})
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestAddItemUnknownWorkout(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	_, err := ordering.Add(context.Background(), AddOption{
		WorkoutID:  42,
		Position:   1,
		ExerciseID: 1,
		Sets:       3,
		Reps:       12,
		RestSec:    60,
	})
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestAddItemValidation(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	negativeLoad := -10

	for _, tc := range []struct {
		name string
		opt  AddOption
	}{
		{"zero position", AddOption{WorkoutID: 1, Position: 0, ExerciseID: 1, Sets: 3, Reps: 12}},
		{"position beyond cap", AddOption{WorkoutID: 1, Position: MaxPosition + 1, ExerciseID: 1, Sets: 3, Reps: 12}},
		{"zero sets", AddOption{WorkoutID: 1, Position: 1, ExerciseID: 1, Sets: 0, Reps: 12}},
		{"zero reps", AddOption{WorkoutID: 1, Position: 1, ExerciseID: 1, Sets: 3, Reps: 0}},
		{"negative rest", AddOption{WorkoutID: 1, Position: 1, ExerciseID: 1, Sets: 3, Reps: 12, RestSec: -1}},
		{"negative load", AddOption{WorkoutID: 1, Position: 1, ExerciseID: 1, Sets: 3, Reps: 12, LoadKg: &negativeLoad}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ordering.Add(context.Background(), tc.opt)
			require.True(t, fault.IsKind(err, fault.KindValidation))
		})
	}
}

func TestSwapExchangesExactlyTwo(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	first := addItem(t, ordering, 1)
	second, err := ordering.Add(context.Background(), AddOption{
		WorkoutID:  1,
		Position:   2,
		ExerciseID: 2,
		Sets:       4,
		Reps:       8,
		RestSec:    120,
	})
	require.NoError(t, err)

	require.NoError(t, ordering.Swap(context.Background(), 1, 1, 2))

	atOne, err := ordering.Get(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, second.ExerciseID, atOne.ExerciseID)

	atTwo, err := ordering.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, first.ExerciseID, atTwo.ExerciseID)
}

func TestSwapMissingSide(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)

	err := ordering.Swap(context.Background(), 1, 1, 2)
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestSwapSamePosition(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)

	err := ordering.Swap(context.Background(), 1, 1, 1)
	require.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestSwapLostRace(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)
	addItem(t, ordering, 2)

	// one side vanishes between the existence checks and the swap
	racing := &vanishingStore{fakeStore: store, vanish: itemKey{1, 2}}
	racingOrdering := testOrdering(t, racing)

	err := racingOrdering.Swap(context.Background(), 1, 1, 2)
	require.True(t, fault.IsKind(err, fault.KindConflict))

	// nothing changed
	remaining, listErr := ordering.Get(context.Background(), 1, 1)
	require.NoError(t, listErr)
	require.Equal(t, 1, remaining.Position)
}

type vanishingStore struct {
	*fakeStore
	vanish itemKey
}

func (v *vanishingStore) SwapPositions(ctx context.Context, workoutID int64, positionA, positionB int) (int64, error) {
	delete(v.items, v.vanish)
	return v.fakeStore.SwapPositions(ctx, workoutID, positionA, positionB)
}

func TestRelocate(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)

	require.NoError(t, ordering.Relocate(context.Background(), 1, 1, 5))

	moved, err := ordering.Get(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Equal(t, 5, moved.Position)

	_, err = ordering.Get(context.Background(), 1, 1)
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestRelocateOccupiedDestination(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)
	addItem(t, ordering, 2)

	err := ordering.Relocate(context.Background(), 1, 1, 2)
	require.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestRelocateMissingSource(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	err := ordering.Relocate(context.Background(), 1, 3, 4)
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestUpdateItem(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)

	load := 40
	updated, err := ordering.Update(context.Background(), UpdateItemOption{
		WorkoutID:  1,
		Position:   1,
		ExerciseID: 2,
		Sets:       5,
		Reps:       5,
		LoadKg:     &load,
		RestSec:    180,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.ExerciseID)
	require.Equal(t, 5, updated.Sets)
	require.NotNil(t, updated.LoadKg)
	require.Equal(t, 40, *updated.LoadKg)

	// position is identity, not a mutable field
	require.Equal(t, 1, updated.Position)
}

func TestRemoveAllItems(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)
	addItem(t, ordering, 2)
	addItem(t, ordering, 3)

	removed, err := ordering.RemoveAll(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)

	removed, err = ordering.RemoveAll(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestRemoveItemLeavesGap(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	addItem(t, ordering, 1)
	addItem(t, ordering, 2)
	addItem(t, ordering, 3)

	require.NoError(t, ordering.Remove(context.Background(), 1, 2))

	items, err := ordering.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 1, items[0].Position)
	require.Equal(t, 3, items[1].Position)
}

func TestListItemsUnknownWorkout(t *testing.T) {
	store := newFakeStore()
	ordering := testOrdering(t, store)

	_, err := ordering.List(context.Background(), 42)
	require.True(t, fault.IsKind(err, fault.KindNotFound))
}
