package workout

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitorfp/academia/fault"

	"go.uber.org/zap"
)

// OrderingOptions contains the dependencies of the Ordering manager
type OrderingOptions struct {
	Store  Store
	Logger *zap.Logger
}

// Ordering maintains the exercise sequence of a workout. Its one
// invariant: no two items of the same workout ever share a position,
// before or after any operation.
type Ordering struct {
	OrderingOptions
}

// NewOrdering returns the ordering engine for workout items
func NewOrdering(option OrderingOptions) (*Ordering, error) {
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Ordering{
		OrderingOptions: option,
	}, nil
}

// AddOption describes a new item at a caller-chosen position
type AddOption struct {
	WorkoutID  int64
	Position   int
	ExerciseID int64
	Sets       int
	Reps       int
	LoadKg     *int
	RestSec    int
}

// Add inserts an item at the given position. The occupancy check and
// the insert run in one store transaction so a concurrent Add to the
// same slot cannot slip between them.
func (o *Ordering) Add(ctx context.Context, opt AddOption) (*Item, error) {
	if err := validateIDs(opt.WorkoutID, opt.ExerciseID); err != nil {
		return nil, err
	}
	if err := validatePosition(opt.Position); err != nil {
		return nil, err
	}
	if err := validateFields(opt.Sets, opt.Reps, opt.LoadKg, opt.RestSec); err != nil {
		return nil, err
	}

	item := &Item{
		WorkoutID:  opt.WorkoutID,
		Position:   opt.Position,
		ExerciseID: opt.ExerciseID,
		Sets:       opt.Sets,
		Reps:       opt.Reps,
		LoadKg:     opt.LoadKg,
		RestSec:    opt.RestSec,
	}

	err := o.Store.Transact(ctx, func(tx Store) error {
		if err := o.ensureWorkout(ctx, tx, opt.WorkoutID); err != nil {
			return err
		}
		exerciseOK, err := tx.ExerciseExists(ctx, opt.ExerciseID)
		if err != nil {
			return fault.Store(err, "Cannot verify exercise")
		}
		if !exerciseOK {
			return fault.NotFoundf("exercise not found: %d", opt.ExerciseID)
		}
		taken, err := tx.PositionTaken(ctx, opt.WorkoutID, opt.Position)
		if err != nil {
			return fault.Store(err, "Cannot check the position")
		}
		if taken {
			return fault.Conflictf("position %d of workout %d is already occupied", opt.Position, opt.WorkoutID)
		}
		if err := tx.InsertItem(ctx, item); err != nil {
			if IsUniqueViolation(err) {
				return fault.Conflictf("position %d of workout %d is already occupied", opt.Position, opt.WorkoutID)
			}
			return fault.Store(err, "Cannot add item to workout")
		}
		return nil
	})
	if err != nil {
		o.logFailure("Unable to add workout item", err)
		return nil, err
	}
	return item, nil
}

// UpdateItemOption overwrites an item in place. The position is
// identity here, never a mutable field.
type UpdateItemOption struct {
	WorkoutID  int64
	Position   int
	ExerciseID int64
	Sets       int
	Reps       int
	LoadKg     *int
	RestSec    int
}

// Update overwrites the exercise reference and the numeric fields of
// the item at (workout, position)
func (o *Ordering) Update(ctx context.Context, opt UpdateItemOption) (*Item, error) {
	if err := validateIDs(opt.WorkoutID, opt.ExerciseID); err != nil {
		return nil, err
	}
	if err := validatePosition(opt.Position); err != nil {
		return nil, err
	}
	if err := validateFields(opt.Sets, opt.Reps, opt.LoadKg, opt.RestSec); err != nil {
		return nil, err
	}

	if err := o.ensureWorkout(ctx, o.Store, opt.WorkoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return nil, err
	}

	existing, err := o.Store.FetchItem(ctx, opt.WorkoutID, opt.Position)
	if err != nil {
		o.logFailure("Unable to fetch workout item", err)
		return nil, fault.Store(err, "Cannot fetch workout item")
	}
	if existing == nil {
		return nil, fault.NotFoundf("workout item not found (workout=%d, position=%d)", opt.WorkoutID, opt.Position)
	}

	exerciseOK, err := o.Store.ExerciseExists(ctx, opt.ExerciseID)
	if err != nil {
		o.logFailure("Unable to verify exercise", err)
		return nil, fault.Store(err, "Cannot verify exercise")
	}
	if !exerciseOK {
		return nil, fault.NotFoundf("exercise not found: %d", opt.ExerciseID)
	}

	existing.ExerciseID = opt.ExerciseID
	existing.Sets = opt.Sets
	existing.Reps = opt.Reps
	existing.LoadKg = opt.LoadKg
	existing.RestSec = opt.RestSec

	rows, err := o.Store.UpdateItemFields(ctx, existing)
	if err != nil {
		o.logFailure("Unable to update workout item", err)
		return nil, fault.Store(err, "Cannot update workout item")
	}
	if rows == 0 {
		return nil, fault.Conflictf("update not applied (workout=%d, position=%d)", opt.WorkoutID, opt.Position)
	}
	return existing, nil
}

// Relocate moves the item at oldPosition to newPosition with a single
// update. The destination is deliberately not pre-checked: a collision
// comes back from the store's uniqueness constraint and surfaces as a
// conflict at write time.
func (o *Ordering) Relocate(ctx context.Context, workoutID int64, oldPosition, newPosition int) error {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return err
	}
	if err := validatePosition(oldPosition); err != nil {
		return err
	}
	if err := validatePosition(newPosition); err != nil {
		return err
	}

	if err := o.ensureWorkout(ctx, o.Store, workoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return err
	}

	existing, err := o.Store.FetchItem(ctx, workoutID, oldPosition)
	if err != nil {
		o.logFailure("Unable to fetch workout item", err)
		return fault.Store(err, "Cannot fetch workout item")
	}
	if existing == nil {
		return fault.NotFoundf("no item to move (workout=%d, position=%d)", workoutID, oldPosition)
	}

	rows, err := o.Store.Relocate(ctx, workoutID, oldPosition, newPosition)
	if err != nil {
		if IsUniqueViolation(err) {
			return fault.Conflictf("position %d of workout %d is already occupied", newPosition, workoutID)
		}
		o.logFailure("Unable to relocate workout item", err)
		return fault.Store(err, "Cannot change the item position")
	}
	if rows == 0 {
		return fault.Conflictf("the item moved away before the relocation (workout=%d, position=%d)", workoutID, oldPosition)
	}
	return nil
}

// Swap exchanges the items at positionA and positionB atomically. The
// store performs it as one multi-row update; anything other than
// exactly two affected rows means one side vanished, and nothing is
// changed.
func (o *Ordering) Swap(ctx context.Context, workoutID int64, positionA, positionB int) error {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return err
	}
	if err := validatePosition(positionA); err != nil {
		return err
	}
	if err := validatePosition(positionB); err != nil {
		return err
	}
	if positionA == positionB {
		return fault.Validationf("cannot swap a position with itself")
	}

	if err := o.ensureWorkout(ctx, o.Store, workoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return err
	}

	for _, position := range []int{positionA, positionB} {
		item, err := o.Store.FetchItem(ctx, workoutID, position)
		if err != nil {
			o.logFailure("Unable to fetch workout item", err)
			return fault.Store(err, "Cannot fetch workout item")
		}
		if item == nil {
			return fault.NotFoundf("item not found (workout=%d, position=%d)", workoutID, position)
		}
	}

	rows, err := o.Store.SwapPositions(ctx, workoutID, positionA, positionB)
	if err != nil {
		o.logFailure("Unable to swap workout items", err)
		return fault.Store(err, "Cannot swap the item positions")
	}
	if rows != 2 {
		return fault.Conflictf("swap aborted: one of the positions changed underneath (workout=%d)", workoutID)
	}
	return nil
}

// Remove deletes the item at the given position, leaving a gap
func (o *Ordering) Remove(ctx context.Context, workoutID int64, position int) error {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return err
	}
	if err := validatePosition(position); err != nil {
		return err
	}

	if err := o.ensureWorkout(ctx, o.Store, workoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return err
	}

	rows, err := o.Store.DeleteItem(ctx, workoutID, position)
	if err != nil {
		o.logFailure("Unable to delete workout item", err)
		return fault.Store(err, "Cannot delete workout item")
	}
	if rows == 0 {
		return fault.NotFoundf("no item to remove (workout=%d, position=%d)", workoutID, position)
	}
	return nil
}

// RemoveAll deletes every item of the workout and returns how many
// rows went away, possibly zero
func (o *Ordering) RemoveAll(ctx context.Context, workoutID int64) (int64, error) {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return 0, err
	}

	if err := o.ensureWorkout(ctx, o.Store, workoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return 0, err
	}

	rows, err := o.Store.DeleteAllItems(ctx, workoutID)
	if err != nil {
		o.logFailure("Unable to clear workout items", err)
		return 0, fault.Store(err, "Cannot clear workout items")
	}
	return rows, nil
}

// Get returns the item at (workout, position)
func (o *Ordering) Get(ctx context.Context, workoutID int64, position int) (*Item, error) {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return nil, err
	}
	if err := validatePosition(position); err != nil {
		return nil, err
	}

	if err := o.ensureWorkout(ctx, o.Store, workoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return nil, err
	}

	item, err := o.Store.FetchItem(ctx, workoutID, position)
	if err != nil {
		o.logFailure("Unable to fetch workout item", err)
		return nil, fault.Store(err, "Cannot fetch workout item")
	}
	if item == nil {
		return nil, fault.NotFoundf("workout item not found (workout=%d, position=%d)", workoutID, position)
	}
	return item, nil
}

// List returns the items of the workout in ascending position order.
// The result is never nil.
func (o *Ordering) List(ctx context.Context, workoutID int64) ([]Item, error) {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return nil, err
	}

	if err := o.ensureWorkout(ctx, o.Store, workoutID); err != nil {
		o.logFailure("Unable to verify workout", err)
		return nil, err
	}

	results, err := o.Store.ListItems(ctx, workoutID)
	if err != nil {
		o.logFailure("Unable to list workout items", err)
		return nil, fault.Store(err, "Cannot list workout items")
	}
	return results, nil
}

func (o *Ordering) ensureWorkout(ctx context.Context, store Store, workoutID int64) error {
	ok, err := store.WorkoutExists(ctx, workoutID)
	if err != nil {
		return fault.Store(err, "Cannot verify workout")
	}
	if !ok {
		return fault.NotFoundf("workout not found: %d", workoutID)
	}
	return nil
}

func (o *Ordering) logFailure(msg string, err error) {
	var f *fault.Fault
	if errors.As(err, &f) && f.Kind != fault.KindStore {
		return
	}
	o.Logger.Error(msg,
		zap.Error(err),
	)
}

func validateID(id int64, field string) error {
	if id <= 0 {
		return fault.Validationf("%s must be positive", field)
	}
	return nil
}

func validateIDs(workoutID, exerciseID int64) error {
	if err := validateID(workoutID, "workoutId"); err != nil {
		return err
	}
	return validateID(exerciseID, "exerciseId")
}

func validatePosition(position int) error {
	if position < 1 {
		return fault.Validationf("position must be at least 1")
	}
	if position > MaxPosition {
		return fault.Validationf("position cannot exceed %d", MaxPosition)
	}
	return nil
}

func validateFields(sets, reps int, loadKg *int, restSec int) error {
	if sets < 1 {
		return fault.Validationf("sets must be at least 1")
	}
	if reps < 1 {
		return fault.Validationf("reps must be at least 1")
	}
	if restSec < 0 {
		return fault.Validationf("restSec cannot be negative")
	}
	if loadKg != nil && *loadKg < 0 {
		return fault.Validationf("loadKg cannot be negative")
	}
	return nil
}
